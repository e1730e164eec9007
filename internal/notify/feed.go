package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const (
	feedBuffer       = 64
	feedWriteTimeout = 5 * time.Second
)

// Feed streams a Queue to websocket clients as JSON Events. A new client
// first receives an "added" event for every live notification.
type Feed struct {
	queue  *Queue
	logger *slog.Logger
}

// NewFeed returns an http.Handler serving q.
func NewFeed(q *Queue, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}

	return &Feed{queue: q, logger: logger}
}

func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		f.logger.Warn("notification feed: websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer conn.CloseNow()

	// Clients never send; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(r.Context())

	events, unsubscribe := f.queue.Subscribe(feedBuffer)
	defer unsubscribe()

	f.logger.Info("notification feed: client connected", slog.String("remote", r.RemoteAddr))

	// Ids are monotonic, so anything at or below the snapshot's last id was
	// already sent.
	var lastSent int64

	for _, n := range f.queue.List() {
		if err := f.write(ctx, conn, Event{Kind: EventAdded, Notification: n}); err != nil {
			return
		}

		lastSent = n.ID
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				_ = conn.Close(websocket.StatusGoingAway, "notification queue closed")
				return
			}

			if ev.Kind == EventAdded && ev.Notification.ID <= lastSent {
				continue
			}

			if err := f.write(ctx, conn, ev); err != nil {
				return
			}
		}
	}
}

func (f *Feed) write(ctx context.Context, conn *websocket.Conn, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()

	err := wsjson.Write(ctx, conn, ev)
	if err != nil && !errors.Is(err, context.Canceled) {
		f.logger.Debug("notification feed: write failed", slog.String("error", err.Error()))
	}

	return err
}
