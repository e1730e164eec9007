package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

// shutdownContext derives a context that ends on the first SIGINT or
// SIGTERM, letting an in-flight upload finish and the view be saved. A
// second signal exits at once. stop releases the signal handler.
func shutdownContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})

	go func() {
		defer signal.Stop(sigs)
		relaySignals(done, sigs, cancel, logger, os.Exit)
	}()

	return ctx, func() {
		cancel()
		close(done)
	}
}

// relaySignals cancels on the first signal and calls exit on the second.
// It returns when done is closed.
func relaySignals(done <-chan struct{}, sigs <-chan os.Signal, cancel context.CancelFunc, logger *slog.Logger, exit func(int)) {
	interrupted := false

	for {
		select {
		case <-done:
			return
		case sig := <-sigs:
			if interrupted {
				logger.Warn("second signal, exiting now", slog.String("signal", sig.String()))
				exit(1)

				return
			}

			interrupted = true

			logger.Info("shutting down, press Ctrl-C again to force", slog.String("signal", sig.String()))
			cancel()
		}
	}
}
