package view

import (
	"context"
	"log/slog"
	"slices"

	"github.com/tonimelisma/blobfm/internal/session"
	"github.com/tonimelisma/blobfm/internal/statedb"
)

// Restore loads persisted state. Folder and file lists are not persisted;
// they are fetched again, so HasFetched starts false.
func (c *Controller) Restore(v statedb.ViewState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.mode = Mode(v.Mode)
	c.currentFolder = v.CurrentFolder

	if c.mode != ModeFolder || c.currentFolder == "" {
		c.mode = ModeRoot
	}

	c.selectedFile = v.SelectedFile
	c.status = v.Status
	c.hasFetched = false
	c.tree = c.tree[:0]

	for _, ef := range v.Expanded {
		files := ef.Files
		if files == nil {
			files = []string{}
		}

		c.tree = append(c.tree, treeEntry{name: ef.Name, files: slices.Clone(files)})
	}
}

// ViewState returns the state worth persisting.
func (c *Controller) ViewState() statedb.ViewState {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := statedb.ViewState{
		Mode:          string(c.mode),
		CurrentFolder: c.currentFolder,
		SelectedFile:  c.selectedFile,
		Status:        c.status,
	}

	for _, e := range c.tree {
		v.Expanded = append(v.Expanded, statedb.ExpandedFolder{Name: e.name, Files: slices.Clone(e.files)})
	}

	return v
}

// HandleSession reacts to a session change. Signing in refreshes the folder
// list; signing out clears everything fetched.
func (c *Controller) HandleSession(ctx context.Context, ev session.Event) error {
	switch ev.Kind {
	case session.SignedIn:
		c.mu.Lock()
		c.username = ev.Account.Display()
		c.status = StatusSignedIn
		c.mu.Unlock()

		return c.ListFolders(ctx)
	case session.SignedOut:
		c.mu.Lock()
		c.username = ""
		c.status = StatusSignedOut
		c.mode = ModeRoot
		c.currentFolder = ""
		c.folders = nil
		c.files = nil
		c.hasFetched = false
		c.tree = nil
		c.menu = nil
		c.seq.next(targetFolders)
		c.seq.next(targetFiles)
		c.seq.nextAll(targetTree)
		c.mu.Unlock()
	}

	return nil
}

// Run applies session events until ctx is done or events is closed.
func (c *Controller) Run(ctx context.Context, events <-chan session.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}

			if err := c.HandleSession(ctx, ev); err != nil {
				c.logger.Debug("session event handling failed",
					slog.String("kind", ev.Kind.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
