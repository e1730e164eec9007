// Package tokenfile persists the signed-in account: its OAuth2 token and
// the identity read from the id_token at sign-in, so commands can show the
// user without asking the identity provider again.
package tokenfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
)

const (
	filePerms = 0o600
	dirPerms  = 0o700
)

// ErrUnusable is returned for a token file that exists but cannot sign
// anyone in. The fix is to sign in again.
var ErrUnusable = errors.New("tokenfile: unusable token file")

// Identity labels the account a token belongs to.
type Identity struct {
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Tenant   string `json:"tenant,omitempty"`
}

// Credentials is the content of a token file.
type Credentials struct {
	Token    *oauth2.Token `json:"token"`
	Identity Identity      `json:"identity"`
	SavedAt  time.Time     `json:"saved_at"`
}

// Read loads the credentials at path. ok is false when no file exists.
func Read(path string) (creds Credentials, ok bool, err error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Credentials{}, false, nil
	}

	if err != nil {
		return Credentials{}, false, fmt.Errorf("tokenfile: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &creds); err != nil {
		return Credentials{}, false, fmt.Errorf("%w: %s: %w", ErrUnusable, path, err)
	}

	if creds.Token == nil || (creds.Token.AccessToken == "" && creds.Token.RefreshToken == "") {
		return Credentials{}, false, fmt.Errorf("%w: %s holds no token", ErrUnusable, path)
	}

	return creds, true, nil
}

// Write stores creds at path, owner-only, replacing any previous file in
// one rename. SavedAt is stamped when zero.
func Write(path string, creds Credentials) error {
	if creds.Token == nil {
		return errors.New("tokenfile: no token to write")
	}

	if creds.SavedAt.IsZero() {
		creds.SavedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("tokenfile: encoding: %w", err)
	}

	return replaceFile(path, data)
}

// replaceFile writes data next to path and renames it into place.
func replaceFile(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return fmt.Errorf("tokenfile: creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("tokenfile: creating temp file: %w", err)
	}

	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = tmp.Chmod(filePerms); err != nil {
		return fmt.Errorf("tokenfile: restricting permissions: %w", err)
	}

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("tokenfile: writing: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("tokenfile: syncing: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("tokenfile: closing: %w", err)
	}

	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("tokenfile: replacing %s: %w", path, err)
	}

	return nil
}

// Delete removes the token file. A missing file is not an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("tokenfile: removing %s: %w", path, err)
	}

	return nil
}
