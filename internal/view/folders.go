package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/notify"
)

// sortFolders orders names with locale-aware collation. Collators are not
// safe for concurrent use, so each call builds its own.
func sortFolders(names []string) []string {
	out := slices.Clone(names)
	collate.New(language.Und).SortStrings(out)

	return out
}

// ListFolders replaces the folder list and returns to the root view.
func (c *Controller) ListFolders(ctx context.Context) error {
	n := c.begin(targetFolders)

	names, err := c.storage.Containers(ctx)
	c.observe(err)

	c.mu.Lock()

	if !c.seq.current(targetFolders, n) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale folder list")

		return nil
	}

	if err != nil {
		if !handled(err) {
			c.folders = []string{}
		}
		c.mu.Unlock()

		if !handled(err) {
			c.note(notify.SeverityError, msgFoldersFailed)
		}

		return fmt.Errorf("listing folders: %w", err)
	}

	c.folders = sortFolders(names)
	c.mode = ModeRoot
	c.currentFolder = ""
	c.files = nil
	c.hasFetched = true
	c.seq.next(targetFiles)
	count := len(c.folders)
	c.mu.Unlock()

	c.logger.Debug("folders listed", slog.Int("count", count))

	if count == 0 {
		c.note(notify.SeverityInfo, msgNoFolders)
	}

	return nil
}

// Open switches to the folder view of name and lists its files.
func (c *Controller) Open(ctx context.Context, name string) error {
	name = blobapi.NormalizeName(name)
	if name == "" {
		c.note(notify.SeverityError, msgNoFolderName)
		return ErrNoFolder
	}

	c.mu.Lock()
	c.mode = ModeFolder
	c.currentFolder = name
	c.files = nil
	c.seq.next(targetFolders)
	c.mu.Unlock()

	return c.ListFiles(ctx, name)
}

// Back returns to the root view and refreshes the folder list.
func (c *Controller) Back(ctx context.Context) error {
	c.mu.Lock()
	c.mode = ModeRoot
	c.currentFolder = ""
	c.files = nil
	c.seq.next(targetFiles)
	c.mu.Unlock()

	return c.ListFolders(ctx)
}

// DeleteFolder deletes name, or the current folder when name is empty, and
// always ends in a freshly listed root view.
func (c *Controller) DeleteFolder(ctx context.Context, name string) error {
	name, err := c.requireFolder(name)
	if err != nil {
		return err
	}

	err = c.storage.DeleteContainer(ctx, name)
	c.observe(err)
	c.record(ctx, "rmdir", name, "", err)

	if err != nil {
		if !handled(err) {
			c.note(notify.SeverityError, fmtFolderNotDelete, name)
		}

		return fmt.Errorf("deleting folder %s: %w", name, err)
	}

	c.note(notify.SeveritySuccess, fmtFolderDeleted, name)

	c.mu.Lock()
	c.mode = ModeRoot
	c.currentFolder = ""
	c.files = nil
	c.seq.next(targetFiles)
	c.dropTreeEntryLocked(name)
	c.mu.Unlock()

	// A failed refresh has already been reported; the delete itself succeeded.
	if listErr := c.ListFolders(ctx); listErr != nil {
		c.logger.Debug("refresh after folder delete failed", slog.String("error", listErr.Error()))
	}

	return nil
}

// CreateFolder creates name, or the current folder name when name is
// empty. The status line reports the outcome.
func (c *Controller) CreateFolder(ctx context.Context, name string) error {
	name, err := c.requireFolder(name)
	if err != nil {
		return err
	}

	err = c.storage.CreateContainer(ctx, name)
	c.observe(err)
	c.record(ctx, "mkdir", name, "", err)

	if err != nil {
		var apiErr *blobapi.APIError

		switch {
		case handled(err):
		case errors.As(err, &apiErr):
			c.SetStatus(fmt.Sprintf(fmtStatusCreateErr, apiErr.StatusCode))
			c.note(notify.SeverityError, fmtCreateFailed, apiErr.StatusText())
		default:
			c.SetStatus(StatusCreateNetwork)
			c.note(notify.SeverityError, msgCreateNetwork)
		}

		return fmt.Errorf("creating folder %s: %w", name, err)
	}

	c.SetStatus(fmt.Sprintf(fmtStatusCreated, name))
	c.note(notify.SeveritySuccess, fmtFolderCreated, name)

	c.mu.Lock()
	atRoot := c.mode == ModeRoot
	c.mu.Unlock()

	if atRoot {
		if listErr := c.ListFolders(ctx); listErr != nil {
			c.logger.Debug("refresh after folder create failed", slog.String("error", listErr.Error()))
		}
	}

	return nil
}
