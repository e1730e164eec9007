package blobapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// maxDownloadURLBody caps the size of the download endpoint's response.
const maxDownloadURLBody = 16 * 1024

// DownloadURL asks the API for a pre-signed URL for a blob. The endpoint
// answers with a JSON string; a bare URL in the body is accepted too.
func (c *Client) DownloadURL(ctx context.Context, container, name string) (string, error) {
	resp, err := c.Do(ctx, http.MethodGet, joinPath("/download", container, name), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadURLBody))
	if err != nil {
		return "", fmt.Errorf("%w: reading download URL: %w", ErrNetwork, err)
	}

	return parseDownloadURL(body)
}

// parseDownloadURL accepts `"https://..."` or `https://...` and checks the
// result is an absolute http(s) URL.
func parseDownloadURL(body []byte) (string, error) {
	body = bytes.TrimSpace(body)

	raw := string(body)
	if len(body) > 0 && body[0] == '"' {
		if err := json.Unmarshal(body, &raw); err != nil {
			return "", fmt.Errorf("%w: %w", ErrInvalidDownloadURL, err)
		}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidDownloadURL, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: not an absolute http(s) URL", ErrInvalidDownloadURL)
	}

	return raw, nil
}

// FetchURL streams the content at a pre-signed URL into w. The URL carries
// its own authorization, so no bearer token is sent, and the URL itself is
// never logged.
func (c *Client) FetchURL(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("blobapi: creating fetch request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("blobapi: request canceled: %w", ctx.Err())
		}

		// *url.Error embeds the URL, so only the operation is reported.
		return 0, fmt.Errorf("%w: fetching blob content", ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return 0, &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(bytes.TrimSpace(msg)),
			Err:        classifyStatus(resp.StatusCode),
		}
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.logger.Error("streaming blob content failed",
			slog.String("error", err.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("blobapi: streaming blob content: %w", err)
	}

	return n, nil
}

// Download resolves the pre-signed URL for a blob and streams its content
// into w. Returns the number of bytes written.
func (c *Client) Download(ctx context.Context, container, name string, w io.Writer) (int64, error) {
	c.logger.Info("downloading blob",
		slog.String("container", container),
		slog.String("name", name),
	)

	u, err := c.DownloadURL(ctx, container, name)
	if err != nil {
		return 0, err
	}

	n, err := c.FetchURL(ctx, u, w)
	if err != nil {
		return n, err
	}

	c.logger.Debug("download complete",
		slog.String("container", container),
		slog.String("name", name),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}
