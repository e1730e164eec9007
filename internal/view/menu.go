package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/tonimelisma/blobfm/internal/blobapi"
)

// MenuKind is what a context menu was opened on.
type MenuKind string

// Menu kinds.
const (
	MenuFolder MenuKind = "folder"
	MenuFile   MenuKind = "file"
)

// Context menu actions.
const (
	ActionOpen         = "open"
	ActionCreate       = "create"
	ActionDeleteFolder = "deleteFolder"
	ActionDownload     = "download"
	ActionDelete       = "delete"
)

// Menu errors.
var (
	ErrNoMenu          = errors.New("view: no context menu open")
	ErrUnknownMenuKind = errors.New("view: unknown menu kind")
	ErrUnknownAction   = errors.New("view: unknown menu action")
)

// Menu is an open context menu.
type Menu struct {
	X, Y int
	Kind MenuKind
	Name string
}

// Actions lists the actions a menu of kind offers, in display order.
func Actions(kind MenuKind) []string {
	switch kind {
	case MenuFolder:
		return []string{ActionOpen, ActionCreate, ActionDeleteFolder}
	case MenuFile:
		return []string{ActionDownload, ActionDelete}
	default:
		return nil
	}
}

// OpenMenu opens a context menu for the named folder or file, replacing any
// menu already open.
func (c *Controller) OpenMenu(kind MenuKind, name string, x, y int) error {
	if kind != MenuFolder && kind != MenuFile {
		return fmt.Errorf("%w: %q", ErrUnknownMenuKind, kind)
	}

	c.mu.Lock()
	c.menu = &Menu{X: x, Y: y, Kind: kind, Name: blobapi.NormalizeName(name)}
	c.mu.Unlock()

	return nil
}

// DismissMenu closes the context menu without acting.
func (c *Controller) DismissMenu() {
	c.mu.Lock()
	c.menu = nil
	c.mu.Unlock()
}

// MenuAction closes the menu and runs action on its target. The folder
// menu's "create" acts on the current folder name, not the menu target.
func (c *Controller) MenuAction(ctx context.Context, action string) error {
	c.mu.Lock()
	m := c.menu
	c.menu = nil
	c.mu.Unlock()

	if m == nil {
		return ErrNoMenu
	}

	switch m.Kind {
	case MenuFile:
		switch action {
		case ActionDownload:
			_, err := c.Download(ctx, m.Name, "")
			return err
		case ActionDelete:
			return c.DeleteFile(ctx, m.Name)
		}
	case MenuFolder:
		switch action {
		case ActionOpen:
			return c.Open(ctx, m.Name)
		case ActionCreate:
			return c.CreateFolder(ctx, "")
		case ActionDeleteFolder:
			return c.DeleteFolder(ctx, m.Name)
		}
	}

	return fmt.Errorf("%w: %q on %s", ErrUnknownAction, action, m.Kind)
}
