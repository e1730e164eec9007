package blobapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Containers lists the names of all containers (folders) in the account.
func (c *Client) Containers(ctx context.Context) ([]string, error) {
	c.logger.Debug("listing containers")

	resp, err := c.Do(ctx, http.MethodGet, "/containers", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	names, err := decodeNames(resp)
	if err != nil {
		return nil, fmt.Errorf("blobapi: decoding container list: %w", err)
	}

	c.logger.Debug("listed containers", slog.Int("count", len(names)))

	return names, nil
}

// CreateContainer creates a container. The name is URL-encoded into the
// path. Duplicate-name behavior is left to the server.
func (c *Client) CreateContainer(ctx context.Context, name string) error {
	c.logger.Info("creating container", slog.String("container", name))

	resp, err := c.Do(ctx, http.MethodPost, joinPath("/container/create", name), nil, "")
	if err != nil {
		return err
	}

	drain(resp)

	return nil
}

// DeleteContainer deletes a container and everything in it.
func (c *Client) DeleteContainer(ctx context.Context, name string) error {
	c.logger.Info("deleting container", slog.String("container", name))

	resp, err := c.Do(ctx, http.MethodDelete, joinPath("/delete", name), nil, "")
	if err != nil {
		return err
	}

	drain(resp)

	return nil
}

// decodeNames decodes a JSON array of strings. A JSON null decodes to an
// empty, non-nil slice.
func decodeNames(resp *http.Response) ([]string, error) {
	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		return nil, err
	}

	if names == nil {
		names = []string{}
	}

	return names, nil
}
