package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/view"
)

const (
	feedPath        = "/notifications"
	liveNotesBuffer = 16
)

// feedShutdownTimeout bounds how long open websocket feeds delay exit.
const feedShutdownTimeout = 3 * time.Second

func newShellCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Interactive file manager session",
		Long: `Start an interactive session. Every command is available without the
"blobfm" prefix, plus menu, action, dismiss, select, status and notes.
Notifications are printed as they arrive. Type "exit" or press Ctrl-D to leave.`,
		Args: cobra.NoArgs,
		RunE: runShell,
	}

	cmd.Flags().String("notify-listen", "", "serve notifications over websocket on this address (e.g. 127.0.0.1:8765)")

	return cmd
}

func runShell(cmd *cobra.Command, _ []string) error {
	logger, closeLog := buildLogger()
	defer closeLog()

	ctx, stop := shutdownContext(cmd.Context(), logger)
	defer stop()

	a, err := openApp(ctx, resolvedCfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.close(context.WithoutCancel(ctx))

	if addr, _ := cmd.Flags().GetString("notify-listen"); addr != "" {
		stopFeed, err := serveFeed(a, addr, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer stopFeed()
	}

	stopLive := printNotesLive(a)
	defer stopLive()

	if a.ctrl.Snapshot().Username != "" {
		// Startup fetch; failures surface as notifications.
		_ = a.ctrl.ListFolders(ctx)
	}

	renderStatus(cmd.OutOrStdout(), a.ctrl.Snapshot())

	sh := &shell{app: a, in: cmd.InOrStdin(), out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr()}
	sh.interactive = isTerminal(sh.in)

	return sh.loop(ctx)
}

// shell reads command lines and dispatches each through a fresh cobra tree.
type shell struct {
	app         *app
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
}

func (sh *shell) loop(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(sh.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	for {
		if sh.interactive {
			fmt.Fprint(sh.out, sh.prompt())
		}

		var (
			line string
			ok   bool
		)

		select {
		case <-ctx.Done():
			fmt.Fprintln(sh.out)
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			if sh.interactive {
				fmt.Fprintln(sh.out)
			}

			select {
			case err := <-scanErr:
				return err
			default:
				return nil
			}
		}

		args, err := splitLine(line)
		if err != nil {
			fmt.Fprintf(sh.errOut, "Error: %v\n", err)
			continue
		}

		if len(args) == 0 {
			continue
		}

		if args[0] == "exit" || args[0] == "quit" {
			return nil
		}

		sh.exec(ctx, args)
	}
}

// exec runs one command line. Errors are printed, never fatal.
func (sh *shell) exec(ctx context.Context, args []string) {
	root := sh.commands()
	root.SetArgs(args)
	root.SetIn(sh.in)
	root.SetOut(sh.out)
	root.SetErr(sh.errOut)

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, errReported) {
		fmt.Fprintf(sh.errOut, "Error: %v\n", err)
	}
}

func (sh *shell) prompt() string {
	s := sh.app.ctrl.Snapshot()
	if s.Mode == view.ModeFolder {
		return fmt.Sprintf("blobfm:%s> ", s.CurrentFolder)
	}

	return "blobfm> "
}

// run is the shell's runner: every command shares the session's app and
// the view is saved after each line.
func (sh *shell) run(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	err := sh.app.finish(fn(ctx, sh.app))

	if saveErr := sh.app.store.SaveView(context.WithoutCancel(ctx), sh.app.ctrl.ViewState()); saveErr != nil {
		sh.app.logger.Warn("cannot save view", slog.String("error", saveErr.Error()))
	}

	return err
}

// commands builds the per-line command tree.
func (sh *shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(authCommands(sh.run)...)
	root.AddCommand(viewCommands(sh.run)...)
	root.AddCommand(
		sh.newMenuCmd(),
		sh.newActionCmd(),
		sh.newDismissCmd(),
		sh.newSelectCmd(),
		sh.newStatusCmd(),
		sh.newNotesCmd(),
	)

	return root
}

func (sh *shell) newMenuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu <folder|file> <name> [x y]",
		Short: "Open the context menu for a folder or file",
		Args:  cobra.RangeArgs(2, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			x, y, err := menuPosition(args[2:])
			if err != nil {
				return err
			}

			if err := sh.app.ctrl.OpenMenu(view.MenuKind(args[0]), args[1], x, y); err != nil {
				return err
			}

			renderMenu(cmd.OutOrStdout(), sh.app.ctrl.Snapshot().Menu)

			return nil
		},
	}
}

func menuPosition(args []string) (int, int, error) {
	if len(args) == 0 {
		return 0, 0, nil
	}

	if len(args) != 2 {
		return 0, 0, errors.New("menu position needs both x and y")
	}

	x, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x %q", args[0])
	}

	y, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y %q", args[1])
	}

	return x, y, nil
}

func (sh *shell) newActionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "action <name>",
		Short: "Run an action from the open context menu",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.run(cmd, func(ctx context.Context, a *app) error {
				if err := a.ctrl.MenuAction(ctx, args[0]); err != nil {
					return err
				}

				return showView(cmd.OutOrStdout(), a)
			})
		},
	}
}

func (sh *shell) newDismissCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss",
		Short: "Close the context menu",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			sh.app.ctrl.DismissMenu()
		},
	}
}

func (sh *shell) newSelectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select [local-file]",
		Short: "Choose the local file the next put uploads (no argument clears it)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return sh.run(cmd, func(_ context.Context, a *app) error {
				return a.ctrl.SelectFile(firstArg(args))
			})
		},
	}
}

func (sh *shell) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show account, status line and current view",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			s := sh.app.ctrl.Snapshot()
			renderStatus(cmd.OutOrStdout(), s)

			if s.Menu != nil {
				renderMenu(cmd.OutOrStdout(), s.Menu)
			}
		},
	}
}

func (sh *shell) newNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes",
		Short: "Show notifications that have not expired",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := sh.app.notes.List()

			if flagJSON {
				return printJSON(cmd.OutOrStdout(), list)
			}

			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No notifications.")
			}

			for _, n := range list {
				fmt.Fprintln(cmd.OutOrStdout(), formatNote(n, sh.app.fancy))
			}

			return nil
		},
	}
}

// printNotesLive prints notifications as they are pushed, including those
// raised in the background after a sign-in.
func printNotesLive(a *app) func() {
	events, unsubscribe := a.notes.Subscribe(liveNotesBuffer)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for ev := range events {
			if ev.Kind == notify.EventAdded {
				a.flushNotes()
			}
		}
	}()

	return func() {
		unsubscribe()
		<-done
	}
}

// serveFeed exposes the notification queue as a websocket feed.
func serveFeed(a *app, addr string, errOut io.Writer) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("notification feed: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(feedPath, notify.NewFeed(a.notes, a.logger))

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Warn("notification feed stopped", slog.String("error", err.Error()))
		}
	}()

	statusf(errOut, "Notifications at ws://%s%s\n", ln.Addr(), feedPath)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), feedShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Debug("notification feed shutdown", slog.String("error", err.Error()))
		}
	}, nil
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// splitLine splits a command line into words. Single and double quotes
// group words; a backslash escapes the next character outside single quotes.
func splitLine(line string) ([]string, error) {
	var (
		words   []string
		cur     strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				words = append(words, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteRune(r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote", quote)
	}

	if escaped {
		return nil, errors.New("trailing backslash")
	}

	if inWord {
		words = append(words, cur.String())
	}

	return words, nil
}
