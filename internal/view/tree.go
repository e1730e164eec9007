package view

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/notify"
)

func (c *Controller) treeEntryLocked(name string) *treeEntry {
	for i := range c.tree {
		if c.tree[i].name == name {
			return &c.tree[i]
		}
	}

	return nil
}

func (c *Controller) dropTreeEntryLocked(name string) bool {
	before := len(c.tree)
	c.tree = slices.DeleteFunc(c.tree, func(e treeEntry) bool { return e.name == name })
	c.seq.next(treeTarget(name))

	return len(c.tree) != before
}

// IsExpanded reports whether folder is open in the tree.
func (c *Controller) IsExpanded(folder string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.treeEntryLocked(blobapi.NormalizeName(folder)) != nil
}

// Expand opens folder in the tree. The first expansion fetches its files
// and caches them; expanding an open folder does nothing.
func (c *Controller) Expand(ctx context.Context, folder string) error {
	name := blobapi.NormalizeName(folder)
	if name == "" {
		c.note(notify.SeverityError, msgNoFolderName)
		return ErrNoFolder
	}

	c.mu.Lock()
	if c.treeEntryLocked(name) != nil {
		c.mu.Unlock()
		return nil
	}

	target := treeTarget(name)
	n := c.seq.next(target)
	c.mu.Unlock()

	files, err := c.storage.ListBlobs(ctx, name)
	c.observe(err)

	c.mu.Lock()

	// Collapsed, or expanded again, while the fetch was in flight.
	if !c.seq.current(target, n) || c.treeEntryLocked(name) != nil {
		c.mu.Unlock()
		return nil
	}

	if err == nil {
		if files == nil {
			files = []string{}
		}

		c.tree = append(c.tree, treeEntry{name: name, files: files})
	}
	c.mu.Unlock()

	if err != nil {
		if errors.Is(err, blobapi.ErrNotFound) {
			c.note(notify.SeverityError, msgFolderMissing)
		}

		return fmt.Errorf("expanding %s: %w", name, err)
	}

	return nil
}

// Collapse closes folder and discards its cached files. Reports whether it
// was open.
func (c *Controller) Collapse(folder string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.dropTreeEntryLocked(blobapi.NormalizeName(folder))
}

// Toggle collapses an open folder or expands a closed one.
func (c *Controller) Toggle(ctx context.Context, folder string) error {
	if c.Collapse(folder) {
		return nil
	}

	return c.Expand(ctx, folder)
}

// ExpandAll expands every listed folder that is not open yet, fetching
// with bounded concurrency. Every folder is attempted; the first failure is
// returned.
func (c *Controller) ExpandAll(ctx context.Context) error {
	c.mu.Lock()
	var pending []string
	for _, f := range c.folders {
		if c.treeEntryLocked(f) == nil {
			pending = append(pending, f)
		}
	}
	c.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(c.expandConcurrency)

	for _, f := range pending {
		g.Go(func() error {
			return c.Expand(ctx, f)
		})
	}

	return g.Wait()
}

// CollapseAll closes every folder.
func (c *Controller) CollapseAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq.nextAll(targetTree)
	c.tree = nil
}
