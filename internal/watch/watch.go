// Package watch uploads files that appear in a local directory. Events for
// the same file are debounced so a file is uploaded once its writer has
// gone quiet.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// DefaultDebounce is how long a file must stay unchanged before upload.
const DefaultDebounce = 2 * time.Second

// Backoff after watcher errors (e.g. kernel queue overflow).
const (
	errInitBackoff = 1 * time.Second
	errMaxBackoff  = 30 * time.Second
	errBackoffMult = 2
)

// readyBuffer bounds settled files waiting for the uploader.
const readyBuffer = 64

// UploadFunc uploads one local file.
type UploadFunc func(ctx context.Context, path string) error

// FsWatcher is the subset of *fsnotify.Watcher the loop needs.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct{ w *fsnotify.Watcher }

func (f fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return fsnotifyWatcher{w: w}, nil
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithClock sets the clock used for debounce timers.
func WithClock(c clockwork.Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithLogger sets the watcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// Watcher uploads settled files from one directory. Subdirectories are
// ignored; the remote side is flat.
type Watcher struct {
	dir      string
	upload   UploadFunc
	debounce time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger

	watcherFactory func() (FsWatcher, error)
	sleepFunc      func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	pending map[string]*pendingFile
	ready   chan string
}

type pendingFile struct {
	timer clockwork.Timer
}

// New creates a Watcher for dir.
func New(dir string, upload UploadFunc, opts ...Option) *Watcher {
	w := &Watcher{
		dir:            dir,
		upload:         upload,
		debounce:       DefaultDebounce,
		clock:          clockwork.NewRealClock(),
		logger:         slog.Default(),
		watcherFactory: newFsnotifyWatcher,
		sleepFunc:      timeSleep,
		pending:        make(map[string]*pendingFile),
		ready:          make(chan string, readyBuffer),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Run watches until ctx is canceled. Upload failures are logged and do not
// stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watch: %s is not a directory", w.dir)
	}

	fw, err := w.watcherFactory()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch: adding %s: %w", w.dir, err)
	}

	w.logger.Info("watching directory", slog.String("dir", w.dir), slog.Duration("debounce", w.debounce))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer cancel()
		defer w.stopPending()

		return w.loop(gctx, fw)
	})
	g.Go(func() error {
		w.uploader(gctx)
		return nil
	})

	return g.Wait()
}

func (w *Watcher) loop(ctx context.Context, fw FsWatcher) error {
	errBackoff := errInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}

			w.handle(ev)
			errBackoff = errInitBackoff

		case watchErr, ok := <-fw.Errors():
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", watchErr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if sleepErr := w.sleepFunc(ctx, errBackoff); sleepErr != nil {
				return nil
			}

			errBackoff = min(errBackoff*errBackoffMult, errMaxBackoff)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	name := filepath.Base(ev.Name)
	if isExcluded(name) {
		w.logger.Debug("watch: skipping excluded file", slog.String("name", name))
		return
	}

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.schedule(ev.Name)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	}
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	// A timer that already fired has handed its path to the uploader, so a
	// later change starts a fresh timer.
	if p, ok := w.pending[path]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}

	p := &pendingFile{}
	p.timer = w.clock.AfterFunc(w.debounce, func() { w.settle(path, p) })
	w.pending[path] = p
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, ok := w.pending[path]; ok {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) settle(path string, p *pendingFile) {
	w.mu.Lock()
	if w.pending[path] != p {
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	select {
	case w.ready <- path:
	default:
		w.logger.Warn("watch: upload queue full, dropping file", slog.String("path", path))
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

// uploader sends settled files one at a time.
func (w *Watcher) uploader(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.ready:
			w.uploadOne(ctx, path)
		}
	}
}

func (w *Watcher) uploadOne(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Debug("watch: file vanished before upload", slog.String("path", path))
		return
	}

	if !info.Mode().IsRegular() {
		return
	}

	if err := w.upload(ctx, path); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}

		w.logger.Warn("watch: upload failed",
			slog.String("path", path), slog.String("error", err.Error()))

		return
	}

	w.logger.Info("watch: uploaded", slog.String("path", path), slog.Int64("size", info.Size()))
}

// excludedSuffixes are partial downloads, editor temporaries, and files
// still being written by other tools.
var excludedSuffixes = []string{".partial", ".tmp", ".swp", ".crdownload"}

func isExcluded(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range excludedSuffixes {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return strings.HasPrefix(name, "~") || strings.HasPrefix(name, ".~") || strings.HasPrefix(name, ".")
}

func timeSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
