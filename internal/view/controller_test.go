package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/tonimelisma/blobfm/internal/blobapi"
	"github.com/tonimelisma/blobfm/internal/notify"
	"github.com/tonimelisma/blobfm/internal/session"
	"github.com/tonimelisma/blobfm/internal/statedb"
)

// noteLog is a Notifier that keeps every pushed message.
type noteLog struct {
	mu    sync.Mutex
	notes []notify.Notification
}

func (l *noteLog) Push(message string, sev notify.Severity) notify.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := notify.Notification{ID: int64(len(l.notes) + 1), Message: message, Severity: sev}
	l.notes = append(l.notes, n)

	return n
}

func (l *noteLog) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.notes))
	for i, n := range l.notes {
		out[i] = n.Message
	}

	return out
}

func (l *noteLog) last() notify.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.notes) == 0 {
		return notify.Notification{}
	}

	return l.notes[len(l.notes)-1]
}

func newTestController(t *testing.T, opts ...Option) (*Controller, *MockStorage, *noteLog) {
	t.Helper()

	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	notes := &noteLog{}

	return NewController(storage, notes, opts...), storage, notes
}

// openFolder puts c into the folder view of name with files already listed.
func openFolder(t *testing.T, c *Controller, storage *MockStorage, name string, files ...string) {
	t.Helper()

	storage.EXPECT().ListBlobs(gomock.Any(), name).Return(files, nil)
	require.NoError(t, c.Open(context.Background(), name))
}

var (
	errNetwork = fmt.Errorf("%w: connection refused", blobapi.ErrNetwork)
	err401     = &blobapi.APIError{StatusCode: 401, Err: blobapi.ErrUnauthorized}
	err404     = &blobapi.APIError{StatusCode: 404, Err: blobapi.ErrNotFound}
	err500     = &blobapi.APIError{StatusCode: 500, Message: "boom", Err: blobapi.ErrServerError}
)

func TestListFolders_SortsAndEntersRoot(t *testing.T) {
	c, storage, notes := newTestController(t)
	ctx := context.Background()

	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().Containers(gomock.Any()).Return([]string{"beta", "alpha2", "Alpha"}, nil)
	require.NoError(t, c.ListFolders(ctx))

	s := c.Snapshot()
	assert.Equal(t, []string{"Alpha", "alpha2", "beta"}, s.Folders)
	assert.Equal(t, ModeRoot, s.Mode)
	assert.Empty(t, s.CurrentFolder)
	assert.Empty(t, s.Files)
	assert.True(t, s.HasFetched)
	assert.Empty(t, notes.messages())
}

func TestListFolders_EmptyPushesInfo(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().Containers(gomock.Any()).Return([]string{}, nil)
	require.NoError(t, c.ListFolders(context.Background()))

	assert.True(t, c.Snapshot().HasFetched)
	assert.Equal(t, []string{msgNoFolders}, notes.messages())
	assert.Equal(t, notify.SeverityInfo, notes.last().Severity)
}

func TestListFolders_NetworkFailure(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().Containers(gomock.Any()).Return([]string{"keep"}, nil)
	require.NoError(t, c.ListFolders(context.Background()))

	storage.EXPECT().Containers(gomock.Any()).Return(nil, errNetwork)
	err := c.ListFolders(context.Background())
	require.ErrorIs(t, err, blobapi.ErrNetwork)

	assert.Empty(t, c.Snapshot().Folders)
	assert.Equal(t, []string{msgSignInFirst, msgFoldersFailed}, notes.messages())
}

func TestListFolders_UnauthorizedExpiresSession(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().Containers(gomock.Any()).Return(nil, err401)
	require.ErrorIs(t, c.ListFolders(context.Background()), blobapi.ErrUnauthorized)

	assert.Equal(t, StatusSessionExpired, c.Snapshot().Status)
	assert.Equal(t, []string{msgSessionExpired}, notes.messages())
}

func TestListFolders_NoSession(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().Containers(gomock.Any()).Return(nil, fmt.Errorf("%w: %w", blobapi.ErrToken, session.ErrNoActiveSession))
	require.Error(t, c.ListFolders(context.Background()))

	assert.Equal(t, []string{msgSignInFirst, msgFoldersFailed}, notes.messages())
}

func TestOpen_ListsFiles(t *testing.T) {
	c, storage, notes := newTestController(t)

	openFolder(t, c, storage, "reports", "a.txt", "b.pdf")

	s := c.Snapshot()
	assert.Equal(t, ModeFolder, s.Mode)
	assert.Equal(t, "reports", s.CurrentFolder)
	assert.Equal(t, []string{"a.txt", "b.pdf"}, s.Files)
	assert.Equal(t, StatusConnected, s.Status)
	assert.Empty(t, notes.messages())
}

func TestOpen_EmptyName(t *testing.T) {
	c, _, notes := newTestController(t)

	assert.ErrorIs(t, c.Open(context.Background(), "  "), ErrNoFolder)
	assert.Equal(t, []string{msgNoFolderName}, notes.messages())
	assert.Equal(t, ModeRoot, c.Snapshot().Mode)
}

func TestListFiles_Empty(t *testing.T) {
	c, storage, notes := newTestController(t)

	openFolder(t, c, storage, "reports")

	assert.NotNil(t, c.Snapshot().Files)
	assert.Equal(t, []string{msgNoFiles}, notes.messages())
}

func TestListFiles_NotFound(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return(nil, err404)
	require.ErrorIs(t, c.ListFiles(context.Background(), ""), blobapi.ErrNotFound)

	s := c.Snapshot()
	assert.Empty(t, s.Files)
	assert.True(t, s.HasFetched)
	assert.Equal(t, []string{msgFolderMissing}, notes.messages())
}

func TestListFiles_OtherFailureIsSilentNoOp(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return(nil, err500)
	require.ErrorIs(t, c.ListFiles(context.Background(), ""), blobapi.ErrServerError)

	assert.Equal(t, []string{"a.txt"}, c.Snapshot().Files)
	assert.Empty(t, notes.messages())
}

func TestListFiles_NoFolderMakesNoRequest(t *testing.T) {
	c, _, notes := newTestController(t)

	require.ErrorIs(t, c.ListFiles(context.Background(), ""), ErrNoFolder)
	assert.Equal(t, []string{msgNoFolderName}, notes.messages())
}

func TestBack_ReturnsToRoot(t *testing.T) {
	c, storage, _ := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().Containers(gomock.Any()).Return(nil, err500)
	require.Error(t, c.Back(context.Background()))

	s := c.Snapshot()
	assert.Equal(t, ModeRoot, s.Mode, "back leaves the folder view even when the refresh fails")
	assert.Empty(t, s.CurrentFolder)
}

func TestStaleFolderListIsDiscarded(t *testing.T) {
	c, storage, _ := newTestController(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	storage.EXPECT().Containers(gomock.Any()).DoAndReturn(func(context.Context) ([]string, error) {
		close(started)
		<-release
		return []string{"late"}, nil
	})
	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return([]string{"a.txt"}, nil)

	done := make(chan error, 1)
	go func() { done <- c.ListFolders(ctx) }()

	<-started
	require.NoError(t, c.Open(ctx, "reports"))
	close(release)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Equal(t, ModeFolder, s.Mode, "a folder list issued before Open must not pull the view back to root")
	assert.Equal(t, "reports", s.CurrentFolder)
	assert.Empty(t, s.Folders)
}

func TestStaleFileListIsDiscarded(t *testing.T) {
	c, storage, _ := newTestController(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	storage.EXPECT().ListBlobs(gomock.Any(), "old").DoAndReturn(func(context.Context, string) ([]string, error) {
		close(started)
		<-release
		return []string{"old.txt"}, nil
	})
	storage.EXPECT().ListBlobs(gomock.Any(), "new").Return([]string{"new.txt"}, nil)

	done := make(chan error, 1)
	go func() { done <- c.Open(ctx, "old") }()

	<-started
	require.NoError(t, c.Open(ctx, "new"))
	close(release)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Equal(t, "new", s.CurrentFolder)
	assert.Equal(t, []string{"new.txt"}, s.Files)
}

func TestFileListOfDeletedFolderIsDiscarded(t *testing.T) {
	c, storage, _ := newTestController(t)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})

	storage.EXPECT().ListBlobs(gomock.Any(), "reports").DoAndReturn(func(context.Context, string) ([]string, error) {
		close(started)
		<-release
		return []string{"old.txt"}, nil
	})
	storage.EXPECT().DeleteContainer(gomock.Any(), "reports").Return(nil)
	storage.EXPECT().Containers(gomock.Any()).Return(nil, errNetwork)

	done := make(chan error, 1)
	go func() { done <- c.Open(ctx, "reports") }()

	<-started
	require.NoError(t, c.DeleteFolder(ctx, "reports"))
	close(release)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Equal(t, ModeRoot, s.Mode)
	assert.Empty(t, s.CurrentFolder, "a listing of the deleted folder must not reopen it")
	assert.Empty(t, s.Files)
}

func TestListsInFlightAtSignOutAreDiscarded(t *testing.T) {
	c, storage, _ := newTestController(t)
	ctx := context.Background()

	foldersStarted := make(chan struct{})
	filesStarted := make(chan struct{})
	release := make(chan struct{})

	storage.EXPECT().Containers(gomock.Any()).DoAndReturn(func(context.Context) ([]string, error) {
		close(foldersStarted)
		<-release
		return []string{"reports"}, nil
	})
	storage.EXPECT().ListBlobs(gomock.Any(), "reports").DoAndReturn(func(context.Context, string) ([]string, error) {
		close(filesStarted)
		<-release
		return []string{"secret.txt"}, nil
	})

	done := make(chan error, 2)
	go func() { done <- c.ListFolders(ctx) }()
	go func() { done <- c.ListFiles(ctx, "reports") }()

	<-foldersStarted
	<-filesStarted
	require.NoError(t, c.HandleSession(ctx, session.Event{Kind: session.SignedOut}))
	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	s := c.Snapshot()
	assert.Empty(t, s.Folders)
	assert.Empty(t, s.Files)
	assert.Empty(t, s.CurrentFolder)
	assert.False(t, s.HasFetched)
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

func TestUpload_ChecksFileBeforeFolder(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	notes := NewMockNotifier(ctrl)

	// Exactly one notification and no storage calls.
	notes.EXPECT().Push(msgNoFileSelected, notify.SeverityError).Times(1)

	c := NewController(storage, notes)
	assert.ErrorIs(t, c.Upload(context.Background()), ErrNoFileSelected)
}

func TestUpload_RequiresFolder(t *testing.T) {
	c, _, notes := newTestController(t)

	require.NoError(t, c.SelectFile(writeTempFile(t, "a.txt", "x")))
	assert.ErrorIs(t, c.Upload(context.Background()), ErrNoFolder)
	assert.Equal(t, []string{msgNoFolderName}, notes.messages())
}

func TestUpload_Success(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports")

	local := writeTempFile(t, "a.txt", "hello")
	require.NoError(t, c.SelectFile(local))

	storage.EXPECT().Upload(gomock.Any(), "reports", "a.txt", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, r io.Reader) error {
			data, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "hello", string(data))
			return nil
		})
	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return([]string{"a.txt"}, nil)

	require.NoError(t, c.Upload(context.Background()))

	s := c.Snapshot()
	assert.Empty(t, s.SelectedFile)
	assert.Equal(t, []string{"a.txt"}, s.Files)
	assert.Contains(t, notes.messages(), `File "a.txt" uploaded.`)
}

func TestUpload_Failure(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "x")

	local := writeTempFile(t, "a.txt", "hello")
	require.NoError(t, c.SelectFile(local))

	storage.EXPECT().Upload(gomock.Any(), "reports", "a.txt", gomock.Any()).Return(err500)

	require.ErrorIs(t, c.Upload(context.Background()), blobapi.ErrServerError)
	assert.Equal(t, local, c.Snapshot().SelectedFile, "selection is kept for a retry")
	assert.Equal(t, []string{msgUploadFailed}, notes.messages())
}

func TestUploadFile_RefreshesOnlyViewedFolder(t *testing.T) {
	c, storage, _ := newTestController(t)
	openFolder(t, c, storage, "reports", "x")

	local := writeTempFile(t, "b.txt", "hi")

	storage.EXPECT().Upload(gomock.Any(), "archive", "b.txt", gomock.Any()).Return(nil)
	require.NoError(t, c.UploadFile(context.Background(), "archive", local))

	storage.EXPECT().Upload(gomock.Any(), "reports", "b.txt", gomock.Any()).Return(nil)
	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return([]string{"b.txt", "x"}, nil)
	require.NoError(t, c.UploadFile(context.Background(), "reports", local))

	assert.Equal(t, []string{"b.txt", "x"}, c.Snapshot().Files)
}

func TestSelectFile_Missing(t *testing.T) {
	c, _, notes := newTestController(t)

	require.Error(t, c.SelectFile("/nonexistent/file.txt"))
	assert.Equal(t, []string{`Cannot read "/nonexistent/file.txt".`}, notes.messages())

	require.Error(t, c.SelectFile(t.TempDir()))
	require.NoError(t, c.SelectFile(""))
}

func TestSelectFile_StoresAbsolutePath(t *testing.T) {
	c, _, _ := newTestController(t)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rel.txt"), []byte("x"), 0o600))
	t.Chdir(dir)

	require.NoError(t, c.SelectFile("rel.txt"))

	want, err := filepath.Abs("rel.txt")
	require.NoError(t, err)
	assert.Equal(t, want, c.Snapshot().SelectedFile)
	assert.Equal(t, want, c.ViewState().SelectedFile)
	assert.True(t, filepath.IsAbs(c.ViewState().SelectedFile))
}

func TestDeleteFolder_CurrentFolderReturnsToRoot(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().DeleteContainer(gomock.Any(), "reports").Return(nil)
	storage.EXPECT().Containers(gomock.Any()).Return([]string{"archive"}, nil)

	require.NoError(t, c.DeleteFolder(context.Background(), ""))

	s := c.Snapshot()
	assert.Equal(t, ModeRoot, s.Mode)
	assert.Empty(t, s.CurrentFolder)
	assert.Equal(t, []string{"archive"}, s.Folders)
	assert.Equal(t, []string{`Folder "reports" deleted.`}, notes.messages())
}

func TestDeleteFolder_Failure(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().DeleteContainer(gomock.Any(), "reports").Return(err500)

	require.Error(t, c.DeleteFolder(context.Background(), "reports"))
	assert.Equal(t, []string{`Could not delete folder "reports".`}, notes.messages())
}

func TestDeleteFile_Success(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt", "b.txt")

	storage.EXPECT().DeleteBlob(gomock.Any(), "reports", "a.txt").Return(nil)
	storage.EXPECT().ListBlobs(gomock.Any(), "reports").Return([]string{"b.txt"}, nil)

	require.NoError(t, c.DeleteFile(context.Background(), "a.txt"))
	assert.Equal(t, []string{"b.txt"}, c.Snapshot().Files)
	assert.Equal(t, []string{`File "a.txt" deleted.`}, notes.messages())
}

func TestDeleteFile_FailureIsSilent(t *testing.T) {
	c, storage, notes := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().DeleteBlob(gomock.Any(), "reports", "a.txt").Return(err500)

	require.Error(t, c.DeleteFile(context.Background(), "a.txt"))
	assert.Empty(t, notes.messages())
	assert.Equal(t, []string{"a.txt"}, c.Snapshot().Files)
}

func TestDeleteFile_Validation(t *testing.T) {
	c, storage, notes := newTestController(t)

	require.ErrorIs(t, c.DeleteFile(context.Background(), "a.txt"), ErrNoFolder)

	openFolder(t, c, storage, "reports", "a.txt")
	require.ErrorIs(t, c.DeleteFile(context.Background(), ""), ErrNoFile)

	assert.Equal(t, []string{msgNoFolderName, msgNoFileName}, notes.messages())
}

func TestDownload_SavesUnderOriginalName(t *testing.T) {
	dir := t.TempDir()
	c, storage, notes := newTestController(t, WithDownloadDir(dir))
	openFolder(t, c, storage, "reports", "q1/a.txt")

	storage.EXPECT().Download(gomock.Any(), "reports", "q1/a.txt", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, w io.Writer) (int64, error) {
			n, err := io.WriteString(w, "numbers")
			return int64(n), err
		})

	got, err := c.Download(context.Background(), "q1/a.txt", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt"), got)

	data, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "numbers", string(data))

	_, err = os.Stat(got + partialSuffix)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, []string{`File "q1/a.txt" downloaded.`}, notes.messages())
}

func TestDownload_ExplicitDestination(t *testing.T) {
	c, storage, _ := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	dest := filepath.Join(t.TempDir(), "renamed.txt")

	storage.EXPECT().Download(gomock.Any(), "reports", "a.txt", gomock.Any()).Return(int64(0), nil)

	got, err := c.Download(context.Background(), "a.txt", dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.FileExists(t, dest)
}

func TestDownload_FailureLeavesNoFile(t *testing.T) {
	dir := t.TempDir()
	c, storage, notes := newTestController(t, WithDownloadDir(dir))
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().Download(gomock.Any(), "reports", "a.txt", gomock.Any()).Return(int64(0), err404)

	_, err := c.Download(context.Background(), "a.txt", "")
	require.ErrorIs(t, err, blobapi.ErrNotFound)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, []string{msgDownloadFailed}, notes.messages())
}

func TestCreateFolder_AtRootRelists(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().CreateContainer(gomock.Any(), "q1 reports").Return(nil)
	storage.EXPECT().Containers(gomock.Any()).Return([]string{"q1 reports"}, nil)

	require.NoError(t, c.CreateFolder(context.Background(), " q1 reports "))

	s := c.Snapshot()
	assert.Equal(t, `Folder "q1 reports" created`, s.Status)
	assert.Equal(t, []string{"q1 reports"}, s.Folders)
	assert.Equal(t, []string{`Folder "q1 reports" created.`}, notes.messages())
}

func TestCreateFolder_InFolderViewDoesNotRelist(t *testing.T) {
	c, storage, _ := newTestController(t)
	openFolder(t, c, storage, "reports", "a.txt")

	storage.EXPECT().CreateContainer(gomock.Any(), "reports").Return(nil)

	require.NoError(t, c.CreateFolder(context.Background(), ""))
	assert.Equal(t, ModeFolder, c.Snapshot().Mode)
}

func TestCreateFolder_HTTPError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus string
		wantNote   string
	}{
		{
			"server message",
			&blobapi.APIError{StatusCode: 409, Message: "container exists", Err: blobapi.ErrConflict},
			"Folder not created (HTTP 409)",
			"Folder not created. container exists",
		},
		{
			"status text fallback",
			&blobapi.APIError{StatusCode: 400, Err: blobapi.ErrBadRequest},
			"Folder not created (HTTP 400)",
			"Folder not created. Bad Request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, storage, notes := newTestController(t)

			storage.EXPECT().CreateContainer(gomock.Any(), "dup").Return(tt.err)

			require.Error(t, c.CreateFolder(context.Background(), "dup"))
			assert.Equal(t, tt.wantStatus, c.Snapshot().Status)
			assert.Equal(t, []string{tt.wantNote}, notes.messages())
		})
	}
}

func TestCreateFolder_ConnectionError(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().CreateContainer(gomock.Any(), "new").Return(errNetwork)

	require.ErrorIs(t, c.CreateFolder(context.Background(), "new"), blobapi.ErrNetwork)
	assert.Equal(t, StatusCreateNetwork, c.Snapshot().Status)
	assert.Equal(t, []string{msgSignInFirst, msgCreateNetwork}, notes.messages())
}

func TestCreateFolder_NoName(t *testing.T) {
	c, _, notes := newTestController(t)

	require.ErrorIs(t, c.CreateFolder(context.Background(), ""), ErrNoFolder)
	assert.Equal(t, []string{msgNoFolderName}, notes.messages())
}

func TestCanceledContextPushesNothing(t *testing.T) {
	c, storage, notes := newTestController(t)

	storage.EXPECT().Containers(gomock.Any()).Return(nil, context.Canceled)

	require.ErrorIs(t, c.ListFolders(context.Background()), context.Canceled)
	assert.Empty(t, notes.messages())
}

func TestRecorder_RecordsOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := NewMockStorage(ctrl)
	rec := NewMockRecorder(ctrl)

	c := NewController(storage, &noteLog{}, WithRecorder(rec))

	storage.EXPECT().CreateContainer(gomock.Any(), "reports").Return(err500)
	rec.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, a statedb.Activity) error {
		assert.Equal(t, "mkdir", a.Op)
		assert.Equal(t, "reports", a.Folder)
		assert.Equal(t, statedb.OutcomeFailed, a.Outcome)
		assert.Contains(t, a.Detail, "boom")
		return nil
	})

	require.Error(t, c.CreateFolder(context.Background(), "reports"))
}
