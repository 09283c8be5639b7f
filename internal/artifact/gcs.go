package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"cloud.google.com/go/storage"

	"video-processing-service/internal/logging"
)

// TransferError reports a failed move of an artifact between scratch and the object store.
type TransferError struct {
	Op     string // download | upload | make-public | sign
	Bucket string
	Object string
	Err    error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s gs://%s/%s: %v", e.Op, e.Bucket, e.Object, e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

// ObjectClient is the subset of an object store the Store needs.
type ObjectClient interface {
	NewReader(ctx context.Context, bucket, name string) (io.ReadCloser, error)
	NewWriter(ctx context.Context, bucket, name string) io.WriteCloser
	MakePublic(ctx context.Context, bucket, name string) error
	SignedPutURL(bucket, name string, expires time.Time) (string, error)
}

type gcsClient struct {
	c *storage.Client
}

// NewGCSClient adapts a storage client. STORAGE_EMULATOR_HOST is honoured by storage.NewClient.
func NewGCSClient(c *storage.Client) ObjectClient {
	return &gcsClient{c: c}
}

func (g *gcsClient) NewReader(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	return g.c.Bucket(bucket).Object(name).NewReader(ctx)
}

func (g *gcsClient) NewWriter(ctx context.Context, bucket, name string) io.WriteCloser {
	return g.c.Bucket(bucket).Object(name).NewWriter(ctx)
}

func (g *gcsClient) MakePublic(ctx context.Context, bucket, name string) error {
	return g.c.Bucket(bucket).Object(name).ACL().Set(ctx, storage.AllUsers, storage.RoleReader)
}

func (g *gcsClient) SignedPutURL(bucket, name string, expires time.Time) (string, error) {
	return g.c.Bucket(bucket).SignedURL(name, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodPut,
		Expires: expires,
	})
}

type Store struct {
	client ObjectClient
	log    *slog.Logger
}

func NewStore(client ObjectClient, logger *slog.Logger) *Store {
	return &Store{client: client, log: logging.WithComponent(logger, "artifact")}
}

// Download copies bucket/name to localPath. A partially written file is removed on failure.
func (s *Store) Download(ctx context.Context, bucket, name, localPath string) error {
	r, err := s.client.NewReader(ctx, bucket, name)
	if err != nil {
		return &TransferError{Op: "download", Bucket: bucket, Object: name, Err: err}
	}
	defer r.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return &TransferError{Op: "download", Bucket: bucket, Object: name, Err: fmt.Errorf("create %s: %w", localPath, err)}
	}

	n, copyErr := io.Copy(f, r)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		if rmErr := os.Remove(localPath); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.log.Warn("remove partial download", "path", localPath, "error", rmErr)
		}
		return &TransferError{Op: "download", Bucket: bucket, Object: name, Err: err}
	}

	s.log.Debug("downloaded", "bucket", bucket, "object", name, "path", localPath, "bytes", n)
	return nil
}

// Upload writes localPath to bucket/name and then makes the object publicly readable.
// If only the ACL step fails the object stays in place, private.
func (s *Store) Upload(ctx context.Context, localPath, bucket, name string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return &TransferError{Op: "upload", Bucket: bucket, Object: name, Err: err}
	}
	defer f.Close()

	// cancelling the writer context aborts the upload instead of committing a partial object
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := s.client.NewWriter(wctx, bucket, name)
	n, err := io.Copy(w, f)
	if err != nil {
		cancel()
		_ = w.Close()
		return &TransferError{Op: "upload", Bucket: bucket, Object: name, Err: err}
	}
	if err := w.Close(); err != nil {
		return &TransferError{Op: "upload", Bucket: bucket, Object: name, Err: err}
	}

	if err := s.client.MakePublic(ctx, bucket, name); err != nil {
		return &TransferError{Op: "make-public", Bucket: bucket, Object: name, Err: err}
	}

	s.log.Debug("uploaded", "bucket", bucket, "object", name, "bytes", n)
	return nil
}

// SignedUploadURL issues a v4 signed PUT URL for name, valid for ttl.
func (s *Store) SignedUploadURL(bucket, name string, ttl time.Duration) (string, error) {
	url, err := s.client.SignedPutURL(bucket, name, time.Now().Add(ttl))
	if err != nil {
		return "", &TransferError{Op: "sign", Bucket: bucket, Object: name, Err: err}
	}
	return url, nil
}
