package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/notify"
)

// partialSuffix marks a download still in progress.
const partialSuffix = ".partial"

// ListFiles replaces the file list with the contents of name, or of the
// current folder when name is empty. Failures other than a missing folder
// leave the list untouched and push nothing beyond the session-level note.
func (c *Controller) ListFiles(ctx context.Context, name string) error {
	name, err := c.requireFolder(name)
	if err != nil {
		return err
	}

	n := c.begin(targetFiles)

	files, err := c.storage.ListBlobs(ctx, name)
	c.observe(err)

	c.mu.Lock()

	if !c.seq.current(targetFiles, n) {
		c.mu.Unlock()
		c.logger.Debug("discarding stale file list", slog.String("folder", name))

		return nil
	}

	switch {
	case err == nil:
		if files == nil {
			files = []string{}
		}

		c.currentFolder = name
		c.files = files
		c.hasFetched = true
		c.status = StatusConnected
		c.mu.Unlock()

		if len(files) == 0 {
			c.note(notify.SeverityInfo, msgNoFiles)
		}

		return nil
	case errors.Is(err, blobapi.ErrNotFound):
		c.currentFolder = name
		c.files = []string{}
		c.hasFetched = true
		c.mu.Unlock()

		c.note(notify.SeverityError, msgFolderMissing)
	default:
		c.mu.Unlock()
	}

	return fmt.Errorf("listing files in %s: %w", name, err)
}

// SelectFile chooses the local file the next Upload sends. An empty path
// clears the selection.
func (c *Controller) SelectFile(localPath string) error {
	if localPath != "" {
		abs, err := filepath.Abs(localPath)
		if err != nil {
			c.note(notify.SeverityError, fmtCannotRead, localPath)
			return fmt.Errorf("selecting %s: %w", localPath, err)
		}

		localPath = abs

		info, err := os.Stat(localPath)
		if err != nil || info.IsDir() {
			c.note(notify.SeverityError, fmtCannotRead, localPath)

			if err == nil {
				err = fmt.Errorf("%s is a directory", localPath)
			}

			return fmt.Errorf("selecting %s: %w", localPath, err)
		}
	}

	c.mu.Lock()
	c.selectedFile = localPath
	c.mu.Unlock()

	return nil
}

// Upload sends the selected local file into the current folder. The file
// is checked before the folder; neither check touches the network.
func (c *Controller) Upload(ctx context.Context) error {
	c.mu.Lock()
	selected := c.selectedFile
	folder := c.currentFolder
	c.mu.Unlock()

	if selected == "" {
		c.note(notify.SeverityError, msgNoFileSelected)
		return ErrNoFileSelected
	}

	if folder == "" {
		c.note(notify.SeverityError, msgNoFolderName)
		return ErrNoFolder
	}

	if err := c.upload(ctx, folder, selected); err != nil {
		return err
	}

	c.mu.Lock()
	if c.selectedFile == selected {
		c.selectedFile = ""
	}
	c.mu.Unlock()

	c.refreshFiles(ctx, folder)

	return nil
}

// UploadFile sends localPath into folder without touching the selection.
// The file list is refreshed when folder is the one being viewed.
func (c *Controller) UploadFile(ctx context.Context, folder, localPath string) error {
	if localPath == "" {
		c.note(notify.SeverityError, msgNoFileSelected)
		return ErrNoFileSelected
	}

	folder = blobapi.NormalizeName(folder)
	if folder == "" {
		c.note(notify.SeverityError, msgNoFolderName)
		return ErrNoFolder
	}

	if err := c.upload(ctx, folder, localPath); err != nil {
		return err
	}

	c.mu.Lock()
	viewing := c.mode == ModeFolder && c.currentFolder == folder
	c.mu.Unlock()

	if viewing {
		c.refreshFiles(ctx, folder)
	}

	return nil
}

func (c *Controller) upload(ctx context.Context, folder, localPath string) error {
	name := filepath.Base(localPath)

	f, err := os.Open(localPath)
	if err != nil {
		c.note(notify.SeverityError, msgUploadFailed)
		c.record(ctx, "upload", folder, name, err)

		return fmt.Errorf("opening %s: %w", localPath, err)
	}
	defer f.Close()

	err = c.storage.Upload(ctx, folder, name, f)
	c.observe(err)
	c.record(ctx, "upload", folder, name, err)

	if err != nil {
		if !handled(err) {
			c.note(notify.SeverityError, msgUploadFailed)
		}

		return fmt.Errorf("uploading %s to %s: %w", name, folder, err)
	}

	c.logger.Info("file uploaded", slog.String("folder", folder), slog.String("name", name))
	c.note(notify.SeveritySuccess, fmtUploaded, name)

	return nil
}

func (c *Controller) refreshFiles(ctx context.Context, folder string) {
	if err := c.ListFiles(ctx, folder); err != nil {
		c.logger.Debug("file list refresh failed", slog.String("error", err.Error()))
	}
}

// DeleteFile deletes name from the current folder. Failures are silent
// apart from the session-level note.
func (c *Controller) DeleteFile(ctx context.Context, name string) error {
	folder, err := c.requireFolder("")
	if err != nil {
		return err
	}

	if name == "" {
		c.note(notify.SeverityError, msgNoFileName)
		return ErrNoFile
	}

	err = c.storage.DeleteBlob(ctx, folder, name)
	c.observe(err)
	c.record(ctx, "rm", folder, name, err)

	if err != nil {
		return fmt.Errorf("deleting %s from %s: %w", name, folder, err)
	}

	c.note(notify.SeveritySuccess, fmtFileDeleted, name)
	c.refreshFiles(ctx, folder)

	return nil
}

// Download saves name from the current folder under its original file
// name. dest may be empty (download directory), an existing directory, or
// a file path. Content is written to a ".partial" file and renamed into
// place once complete. Returns the final path.
func (c *Controller) Download(ctx context.Context, name, dest string) (string, error) {
	folder, err := c.requireFolder("")
	if err != nil {
		return "", err
	}

	if name == "" {
		c.note(notify.SeverityError, msgNoFileName)
		return "", ErrNoFile
	}

	target := c.downloadTarget(name, dest)

	err = c.downloadTo(ctx, folder, name, target)
	c.observe(err)
	c.record(ctx, "get", folder, name, err)

	if err != nil {
		if !handled(err) {
			c.note(notify.SeverityError, msgDownloadFailed)
		}

		return "", err
	}

	c.note(notify.SeveritySuccess, fmtFileDownloaded, name)

	return target, nil
}

func (c *Controller) downloadTo(ctx context.Context, folder, name, target string) error {
	tmp := target + partialSuffix

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating %s: %w", tmp, err)
	}

	n, err := c.storage.Download(ctx, folder, name, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("closing %s: %w", tmp, closeErr)
	}

	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("downloading %s from %s: %w", name, folder, err)
	}

	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("moving download into place: %w", err)
	}

	c.logger.Info("file downloaded",
		slog.String("folder", folder),
		slog.String("name", name),
		slog.Int64("bytes", n),
	)

	return nil
}

// downloadTarget picks the local path for blob name. Blob names may carry
// "/"-separated prefixes; only the last element is used locally.
func (c *Controller) downloadTarget(name, dest string) string {
	base := path.Base(name)
	if base == "." || base == ".." || base == "/" {
		base = "download"
	}

	if dest == "" {
		return filepath.Join(c.downloadDir, base)
	}

	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, base)
	}

	return dest
}
