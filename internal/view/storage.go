package view

import (
	"context"
	"io"

	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/statedb"
)

//go:generate mockgen -source=storage.go -destination=mock_storage_test.go -package=view

// Storage is the remote blob API as the controller sees it. Satisfied by
// *blobapi.Client.
type Storage interface {
	Containers(ctx context.Context) ([]string, error)
	ListBlobs(ctx context.Context, container string) ([]string, error)
	CreateContainer(ctx context.Context, name string) error
	DeleteContainer(ctx context.Context, name string) error
	Upload(ctx context.Context, container, name string, r io.Reader) error
	DeleteBlob(ctx context.Context, container, name string) error
	Download(ctx context.Context, container, name string, w io.Writer) (int64, error)
}

// Notifier receives user-facing messages. Satisfied by *notify.Queue.
type Notifier interface {
	Push(message string, sev notify.Severity) notify.Notification
}

// Recorder keeps a history of completed operations. Satisfied by
// *statedb.Store.
type Recorder interface {
	Record(ctx context.Context, a statedb.Activity) error
}
