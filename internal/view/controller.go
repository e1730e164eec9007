// Package view holds the file manager's application state (root or folder
// view, expanded tree, context menu, status line) and the operations that
// change it. Every operation turns failures into notifications; nothing is
// fatal to the caller's session.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/session"
	"github.com/tonimelisma/blobfm/internal/statedb"
)

// Mode is the current top-level view.
type Mode string

// View modes.
const (
	ModeRoot   Mode = statedb.ModeRoot
	ModeFolder Mode = statedb.ModeFolder
)

// Validation errors. The matching notification has already been pushed
// when an operation returns one of these.
var (
	ErrNoFolder       = errors.New("view: no folder name")
	ErrNoFile         = errors.New("view: no file name")
	ErrNoFileSelected = errors.New("view: no local file selected")
)

const defaultExpandConcurrency = 4

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRecorder records every mutating operation's outcome.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithDownloadDir sets where downloads land when no destination is given.
func WithDownloadDir(dir string) Option {
	return func(c *Controller) { c.downloadDir = dir }
}

// WithExpandConcurrency bounds ExpandAll's parallel fetches.
func WithExpandConcurrency(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.expandConcurrency = n
		}
	}
}

// treeEntry is an expanded folder and the files fetched on expansion.
type treeEntry struct {
	name  string
	files []string
}

// Controller is the single owner of view state. It is safe for concurrent
// use; network calls run without holding the state lock.
type Controller struct {
	storage           Storage
	notes             Notifier
	recorder          Recorder
	logger            *slog.Logger
	downloadDir       string
	expandConcurrency int

	mu            sync.Mutex
	mode          Mode
	currentFolder string
	folders       []string
	files         []string
	selectedFile  string
	status        string
	username      string
	hasFetched    bool
	tree          []treeEntry
	menu          *Menu
	seq           sequencer
}

// NewController returns a controller in root view with nothing fetched.
func NewController(storage Storage, notes Notifier, opts ...Option) *Controller {
	c := &Controller{
		storage:           storage,
		notes:             notes,
		logger:            slog.Default(),
		downloadDir:       ".",
		expandConcurrency: defaultExpandConcurrency,
		mode:              ModeRoot,
		seq:               sequencer{issued: make(map[string]uint64)},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Snapshot is a consistent copy of the view state for rendering.
type Snapshot struct {
	Mode          Mode
	CurrentFolder string
	Folders       []string
	Files         []string
	SelectedFile  string
	Status        string
	Username      string
	HasFetched    bool
	Tree          []TreeNode
	Menu          *Menu
}

// TreeNode is one folder of the tree view.
type TreeNode struct {
	Folder   string   `json:"folder"`
	Expanded bool     `json:"expanded"`
	Files    []string `json:"files,omitempty"`
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Mode:          c.mode,
		CurrentFolder: c.currentFolder,
		Folders:       slices.Clone(c.folders),
		Files:         slices.Clone(c.files),
		SelectedFile:  c.selectedFile,
		Status:        c.status,
		Username:      c.username,
		HasFetched:    c.hasFetched,
	}

	if c.menu != nil {
		m := *c.menu
		s.Menu = &m
	}

	for _, f := range c.folders {
		node := TreeNode{Folder: f}
		if e := c.treeEntryLocked(f); e != nil {
			node.Expanded = true
			node.Files = slices.Clone(e.files)
		}

		s.Tree = append(s.Tree, node)
	}

	// Expanded folders no longer in the folder list stay visible until
	// collapsed or the list is refreshed.
	for _, e := range c.tree {
		if !slices.Contains(c.folders, e.name) {
			s.Tree = append(s.Tree, TreeNode{Folder: e.name, Expanded: true, Files: slices.Clone(e.files)})
		}
	}

	return s
}

// SetStatus replaces the status line.
func (c *Controller) SetStatus(text string) {
	c.mu.Lock()
	c.status = text
	c.mu.Unlock()
}

// SetUser sets the account label shown in the header.
func (c *Controller) SetUser(username string) {
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
}

// SetFolder sets the folder name mutating operations act on, without
// changing the view mode.
func (c *Controller) SetFolder(name string) {
	c.mu.Lock()
	c.currentFolder = blobapi.NormalizeName(name)
	c.mu.Unlock()
}

func (c *Controller) folder() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.currentFolder
}

func (c *Controller) note(sev notify.Severity, format string, args ...any) {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}

	c.notes.Push(msg, sev)
}

// requireFolder resolves name (falling back to the current folder) and
// pushes the validation note when neither is set.
func (c *Controller) requireFolder(name string) (string, error) {
	name = blobapi.NormalizeName(name)
	if name == "" {
		name = c.folder()
	}

	if name == "" {
		c.note(notify.SeverityError, msgNoFolderName)
		return "", ErrNoFolder
	}

	return name, nil
}

// observe applies the session-level reactions shared by every request:
// a 401 expires the status line, and a failure to reach the API or obtain
// a token asks the user to sign in.
func (c *Controller) observe(err error) {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case errors.Is(err, blobapi.ErrUnauthorized):
		c.SetStatus(StatusSessionExpired)
		c.note(notify.SeverityError, msgSessionExpired)
	case errors.Is(err, blobapi.ErrNetwork),
		errors.Is(err, blobapi.ErrToken),
		errors.Is(err, session.ErrNoActiveSession):
		c.note(notify.SeverityError, msgSignInFirst)
	}
}

// handled reports whether observe already told the user about err.
func handled(err error) bool {
	return errors.Is(err, blobapi.ErrUnauthorized) || errors.Is(err, context.Canceled)
}

// isTransport reports whether err never produced an HTTP response.
func isTransport(err error) bool {
	return errors.Is(err, blobapi.ErrNetwork) ||
		errors.Is(err, blobapi.ErrToken) ||
		errors.Is(err, session.ErrNoActiveSession)
}

func (c *Controller) record(ctx context.Context, op, folder, file string, err error) {
	if c.recorder == nil {
		return
	}

	a := statedb.Activity{Op: op, Folder: folder, File: file, Outcome: statedb.OutcomeOK}
	if err != nil {
		a.Outcome = statedb.OutcomeFailed
		a.Detail = err.Error()
	}

	if recErr := c.recorder.Record(context.WithoutCancel(ctx), a); recErr != nil {
		c.logger.Warn("failed to record activity",
			slog.String("op", op),
			slog.String("error", recErr.Error()),
		)
	}
}

// sequencer tags list requests so a response is applied only if no newer
// request for the same target was issued meanwhile.
type sequencer struct {
	issued map[string]uint64
}

func (s *sequencer) next(target string) uint64 {
	s.issued[target]++
	return s.issued[target]
}

func (s *sequencer) current(target string, n uint64) bool {
	return s.issued[target] == n
}

// nextAll advances every target issued so far whose name starts with
// prefix, so requests still in flight for them are discarded.
func (s *sequencer) nextAll(prefix string) {
	for target := range s.issued {
		if strings.HasPrefix(target, prefix) {
			s.issued[target]++
		}
	}
}

const (
	targetFolders = "folders"
	targetFiles   = "files"
	targetTree    = "tree:"
)

func treeTarget(folder string) string {
	return targetTree + folder
}

func (c *Controller) begin(target string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.seq.next(target)
}
