package artifact

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"

	"video-processing-service/internal/logging"
)

type memClient struct {
	mu        sync.Mutex
	objects   map[string][]byte
	public    map[string]bool
	aclErr    error
	readerErr error
}

func newMemClient() *memClient {
	return &memClient{objects: map[string][]byte{}, public: map[string]bool{}}
}

func key(bucket, name string) string { return bucket + "/" + name }

func (m *memClient) NewReader(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readerErr != nil {
		return nil, m.readerErr
	}
	b, ok := m.objects[key(bucket, name)]
	if !ok {
		return nil, storage.ErrObjectNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

type memWriter struct {
	bytes.Buffer
	commit func([]byte)
}

func (w *memWriter) Close() error {
	w.commit(w.Bytes())
	return nil
}

func (m *memClient) NewWriter(ctx context.Context, bucket, name string) io.WriteCloser {
	return &memWriter{commit: func(b []byte) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.objects[key(bucket, name)] = append([]byte(nil), b...)
	}}
}

func (m *memClient) MakePublic(ctx context.Context, bucket, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.aclErr != nil {
		return m.aclErr
	}
	m.public[key(bucket, name)] = true
	return nil
}

func (m *memClient) SignedPutURL(bucket, name string, expires time.Time) (string, error) {
	return "https://signed.example/" + key(bucket, name) + "?expires=" + expires.UTC().Format(time.RFC3339), nil
}

func TestStore_DownloadAndUpload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	client := newMemClient()
	client.objects[key("raw", "u1-1.mp4")] = []byte("raw bytes")
	store := NewStore(client, logging.Discard())

	local := filepath.Join(dir, "u1-1.mp4")
	require.NoError(t, store.Download(ctx, "raw", "u1-1.mp4", local))

	got, err := os.ReadFile(local)
	require.NoError(t, err)
	require.Equal(t, "raw bytes", string(got))

	require.NoError(t, store.Upload(ctx, local, "processed", "processed-u1-1_360p.mp4"))
	require.Equal(t, []byte("raw bytes"), client.objects[key("processed", "processed-u1-1_360p.mp4")])
	require.True(t, client.public[key("processed", "processed-u1-1_360p.mp4")])
}

func TestStore_Download_MissingObject(t *testing.T) {
	store := NewStore(newMemClient(), logging.Discard())
	local := filepath.Join(t.TempDir(), "missing.mp4")

	err := store.Download(context.Background(), "raw", "missing.mp4", local)

	var te *TransferError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "download", te.Op)
	require.ErrorIs(t, err, storage.ErrObjectNotExist)
	_, statErr := os.Stat(local)
	require.True(t, os.IsNotExist(statErr))
}

func TestStore_Upload_ACLFailureKeepsObject(t *testing.T) {
	client := newMemClient()
	client.aclErr = errors.New("forbidden")
	store := NewStore(client, logging.Discard())

	local := filepath.Join(t.TempDir(), "out.jpg")
	require.NoError(t, os.WriteFile(local, []byte("jpg"), 0o644))

	err := store.Upload(context.Background(), local, "thumbs", "processed-out.jpg")

	var te *TransferError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "make-public", te.Op)
	require.Contains(t, client.objects, key("thumbs", "processed-out.jpg"))
	require.False(t, client.public[key("thumbs", "processed-out.jpg")])
}

func TestStore_SignedUploadURL(t *testing.T) {
	store := NewStore(newMemClient(), logging.Discard())

	url, err := store.SignedUploadURL("raw", "u1-1.mp4", 15*time.Minute)
	require.NoError(t, err)
	require.Contains(t, url, "raw/u1-1.mp4")
}

func TestScratch(t *testing.T) {
	root := t.TempDir()
	s := NewScratch(root)
	require.NoError(t, s.Setup())
	require.NoError(t, s.Setup())

	for _, d := range []string{DirRawVideos, DirProcessedVideos, DirRawThumbnails, DirProcessedThumbnails} {
		info, err := os.Stat(filepath.Join(root, d))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	p := s.Path(DirRawVideos, "../../etc/u1-1.mp4")
	require.Equal(t, filepath.Join(root, DirRawVideos, "u1-1.mp4"), p)

	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	require.NoError(t, s.DeleteLocal(p))
	require.NoError(t, s.DeleteLocal(p), "deleting a missing path is a no-op")
}
