package blobapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
)

// uploadField is the multipart form field the upload endpoint reads.
const uploadField = "entry"

// ListBlobs lists the blob (file) names in a container. A missing container
// is reported as ErrNotFound.
func (c *Client) ListBlobs(ctx context.Context, container string) ([]string, error) {
	c.logger.Debug("listing blobs", slog.String("container", container))

	resp, err := c.Do(ctx, http.MethodGet, joinPath("/listblobs", container), nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	names, err := decodeNames(resp)
	if err != nil {
		return nil, fmt.Errorf("blobapi: decoding blob list for %q: %w", container, err)
	}

	return names, nil
}

// Upload sends r as a multipart file named name into container. The body
// is streamed through a pipe, so r is read while the request is in flight.
func (c *Client) Upload(ctx context.Context, container, name string, r io.Reader) error {
	c.logger.Info("uploading blob",
		slog.String("container", container),
		slog.String("name", name),
	)

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	contentType := mw.FormDataContentType()

	go func() {
		part, err := mw.CreateFormFile(uploadField, NormalizeName(name))
		if err != nil {
			pw.CloseWithError(err)
			return
		}

		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}

		pw.CloseWithError(mw.Close())
	}()

	// Closing the read side unblocks the writer goroutine when the request
	// never consumed the body (token failure, early transport error).
	defer pr.Close()

	resp, err := c.Do(ctx, http.MethodPost, joinPath("/upload", container), pr, contentType)
	if err != nil {
		return err
	}

	drain(resp)

	c.logger.Debug("upload complete",
		slog.String("container", container),
		slog.String("name", name),
	)

	return nil
}

// DeleteBlob deletes a single blob from a container.
func (c *Client) DeleteBlob(ctx context.Context, container, name string) error {
	c.logger.Info("deleting blob",
		slog.String("container", container),
		slog.String("name", name),
	)

	resp, err := c.Do(ctx, http.MethodDelete, joinPath("/delete", container, name), nil, "")
	if err != nil {
		return err
	}

	drain(resp)

	return nil
}
