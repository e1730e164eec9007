package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/config"
	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/session"
	"github.com/tonimelisma/blobfm/internal/statedb"
	"github.com/tonimelisma/blobfm/internal/view"
)

// errReported marks a failure whose notification has already been printed.
var errReported = errors.New("reported")

// app wires the file manager together for one command or one shell session.
type app struct {
	cfg    *config.Resolved
	logger *slog.Logger
	out    io.Writer
	errOut io.Writer
	fancy  bool

	session *session.Manager
	client  *blobapi.Client
	notes   *notify.Queue
	store   *statedb.Store
	ctrl    *view.Controller

	unsubscribe func()
	runDone     chan struct{}

	mu       sync.Mutex
	lastNote int64
}

// openApp builds every component from the resolved config, restores the
// saved view and resumes the saved session.
func openApp(ctx context.Context, cfg *config.Resolved, logger *slog.Logger, out, errOut io.Writer) (*app, error) {
	store, err := statedb.Open(ctx, cfg.StatePath, logger)
	if err != nil {
		return nil, err
	}

	notes, err := notify.NewQueue(cfg.NotificationTTL, notify.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	mgr := session.NewManager(cfg.TokenPath, session.Config{
		ClientID: cfg.Auth.ClientID,
		Tenant:   cfg.Auth.Tenant,
		Scopes:   cfg.Auth.Scopes,
	}, logger)

	var clientOpts []blobapi.Option
	if cfg.Network.UserAgent != "" {
		clientOpts = append(clientOpts, blobapi.WithUserAgent(cfg.Network.UserAgent))
	}

	if cfg.Network.RequestsPerSecond > 0 {
		clientOpts = append(clientOpts, blobapi.WithRateLimit(cfg.Network.RequestsPerSecond))
	}

	client := blobapi.NewClient(cfg.API.BaseURL, newHTTPClient(cfg.Timeout), mgr, logger, clientOpts...)

	ctrlOpts := []view.Option{
		view.WithLogger(logger),
		view.WithRecorder(store),
		view.WithExpandConcurrency(cfg.UI.ExpandConcurrency),
	}

	if cfg.API.DownloadDir != "" {
		ctrlOpts = append(ctrlOpts, view.WithDownloadDir(cfg.API.DownloadDir))
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		out:     out,
		errOut:  errOut,
		fancy:   useFancyOutput(cfg.UI.Emoji, out),
		session: mgr,
		client:  client,
		notes:   notes,
		store:   store,
		ctrl:    view.NewController(client, notes, ctrlOpts...),
		runDone: make(chan struct{}),
	}

	saved, ok, err := store.LoadView(ctx)
	if err != nil {
		logger.Warn("cannot load saved view", slog.String("error", err.Error()))
	} else if ok {
		a.ctrl.Restore(saved)
	}

	acct, err := mgr.Resume(ctx)
	switch {
	case err == nil:
		a.ctrl.SetUser(acct.Display())
	case errors.Is(err, session.ErrNoActiveSession):
		a.ctrl.SetUser("")
	default:
		logger.Warn("cannot resume session", slog.String("error", err.Error()))
	}

	// Subscribed after Resume so only sign-ins during this run refetch.
	events, unsubscribe := mgr.Subscribe()
	a.unsubscribe = unsubscribe

	go func() {
		defer close(a.runDone)
		a.ctrl.Run(context.WithoutCancel(ctx), events)
	}()

	return a, nil
}

// close waits for pending session events, saves the view and releases
// resources.
func (a *app) close(ctx context.Context) {
	a.unsubscribe()
	<-a.runDone

	if err := a.store.SaveView(ctx, a.ctrl.ViewState()); err != nil {
		a.logger.Warn("cannot save view", slog.String("error", err.Error()))
	}

	a.flushNotes()
	a.notes.Close()

	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing state db", slog.String("error", err.Error()))
	}
}

// flushNotes prints notifications pushed since the last flush and returns
// how many were printed.
func (a *app) flushNotes() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	shown := 0

	for _, n := range a.notes.List() {
		if n.ID <= a.lastNote {
			continue
		}

		a.lastNote = n.ID
		shown++

		if !flagQuiet || n.Severity == notify.SeverityError {
			fmt.Fprintln(a.errOut, formatNote(n, a.fancy))
		}
	}

	return shown
}

// finish converts an operation's error for the CLI: failures already shown
// as notifications exit quietly.
func (a *app) finish(err error) error {
	shown := a.flushNotes()

	if err != nil && shown > 0 {
		return errReported
	}

	return err
}

// runner executes fn with an app. One-shot commands open and close an app
// per invocation; the shell reuses one.
type runner func(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error

// runOnce is the one-shot runner.
func runOnce(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, closeLog := buildLogger()
	defer closeLog()

	a, err := openApp(ctx, resolvedCfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	return a.finish(fn(ctx, a))
}
