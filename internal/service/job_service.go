package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"video-processing-service/internal/config"
	"video-processing-service/internal/entity"
)

// JobRepository is the read and merge side of the record store (implementation: postgresql.JobRepository).
type JobRepository interface {
	Get(ctx context.Context, kind entity.MediaKind, id string) (*entity.JobRecord, error)
	List(ctx context.Context, kind entity.MediaKind, limit int) ([]*entity.JobRecord, error)
	UpsertMerge(ctx context.Context, kind entity.MediaKind, id string, patch entity.RecordPatch) error
}

// UploadSigner issues direct-upload URLs (implementation: artifact.Store).
type UploadSigner interface {
	SignedUploadURL(bucket, name string, ttl time.Duration) (string, error)
}

// JobQueue only adds events to the delivery queue.
// (Not called Queue, to avoid clashing with queue_service.go.)
type JobQueue interface {
	Enqueue(ctx context.Context, env Envelope) error
}

var (
	ErrQueueDisabled   = errors.New("delivery queue is not configured")
	ErrSigningDisabled = errors.New("upload signing is not configured")
)

const (
	DefaultListLimit = 10
	MaxListLimit     = 100
)

type JobService struct {
	repo    JobRepository
	signer  UploadSigner
	queue   JobQueue
	buckets config.Buckets
	urlTTL  time.Duration
	now     func() time.Time
}

// NewJobService wires the record API. signer and queue may be nil; the
// operations depending on them then fail with ErrSigningDisabled / ErrQueueDisabled.
func NewJobService(repo JobRepository, signer UploadSigner, queue JobQueue, buckets config.Buckets, urlTTL time.Duration) *JobService {
	if urlTTL <= 0 {
		urlTTL = 15 * time.Minute
	}
	return &JobService{
		repo:    repo,
		signer:  signer,
		queue:   queue,
		buckets: buckets,
		urlTTL:  urlTTL,
		now:     time.Now,
	}
}

// ListVideos returns the latest video records, DefaultListLimit when limit <= 0.
func (s *JobService) ListVideos(ctx context.Context, limit int) ([]*entity.JobRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return s.repo.List(ctx, entity.KindVideo, limit)
}

func (s *JobService) GetRecord(ctx context.Context, kind entity.MediaKind, id string) (*entity.JobRecord, error) {
	if !kind.Valid() {
		return nil, &ValidationError{Reason: "unknown kind"}
	}
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Reason: "id is required"}
	}
	return s.repo.Get(ctx, kind, id)
}

type MetadataRequest struct {
	Title       *string
	Description *string
}

// SaveMetadata merges title and description into the video record. Status is never touched.
func (s *JobService) SaveMetadata(ctx context.Context, id string, req MetadataRequest) error {
	if strings.TrimSpace(id) == "" {
		return &ValidationError{Reason: "id is required"}
	}
	if req.Title == nil && req.Description == nil {
		return &ValidationError{Reason: "title or description is required"}
	}
	patch := entity.RecordPatch{Title: req.Title, Description: req.Description}
	if owner := entity.OwnerID(entity.KindVideo, id); owner != "" {
		patch.OwnerID = &owner
	}
	return s.repo.UpsertMerge(ctx, entity.KindVideo, id, patch)
}

// LinkThumbnail points a video record at a thumbnail record id.
func (s *JobService) LinkThumbnail(ctx context.Context, videoID, thumbnailID string) error {
	if strings.TrimSpace(videoID) == "" {
		return &ValidationError{Reason: "id is required"}
	}
	thumbnailID = entity.JobID(strings.TrimSpace(thumbnailID))
	if thumbnailID == "" {
		return &ValidationError{Reason: "thumbnailId is required"}
	}
	return s.repo.UpsertMerge(ctx, entity.KindVideo, videoID, entity.RecordPatch{ThumbnailID: &thumbnailID})
}

type UploadURLRequest struct {
	UID           string
	FileType      entity.MediaKind
	FileExtension string
}

type UploadURL struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	ID       string `json:"id"`
}

var (
	uidPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,128}$`)
	extPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,10}$`)
)

// IssueUploadURL names a new upload and signs a PUT URL for it in the raw bucket of its kind.
// The uid may not contain '-' or '.', since both delimit the derived job and owner ids.
func (s *JobService) IssueUploadURL(ctx context.Context, req UploadURLRequest) (*UploadURL, error) {
	if s.signer == nil {
		return nil, ErrSigningDisabled
	}
	if !uidPattern.MatchString(req.UID) {
		return nil, &ValidationError{Reason: "invalid uid"}
	}
	ext := strings.TrimPrefix(req.FileExtension, ".")
	if !extPattern.MatchString(ext) {
		return nil, &ValidationError{Reason: "invalid fileExtension"}
	}

	ms := s.now().UnixMilli()
	var bucket, name string
	switch req.FileType {
	case entity.KindVideo:
		bucket = s.buckets.RawVideo
		name = fmt.Sprintf("%s-%d.%s", req.UID, ms, ext)
	case entity.KindThumbnail:
		bucket = s.buckets.RawThumbnail
		name = fmt.Sprintf("thumbnail-%s-%d.%s", req.UID, ms, ext)
	default:
		return nil, &ValidationError{Reason: "fileType must be video or thumbnail"}
	}

	url, err := s.signer.SignedUploadURL(bucket, name, s.urlTTL)
	if err != nil {
		return nil, err
	}
	return &UploadURL{URL: url, FileName: name, ID: entity.JobID(name)}, nil
}

// EnqueueEvent validates base64 event data and queues it for the pull workers.
func (s *JobService) EnqueueEvent(ctx context.Context, kind entity.MediaKind, data string) (string, error) {
	if s.queue == nil {
		return "", ErrQueueDisabled
	}
	if !kind.Valid() {
		return "", &ValidationError{Reason: "unknown kind"}
	}
	if _, err := DecodeEventData(data); err != nil {
		return "", err
	}

	env := NewEnvelope(kind, data)
	if err := s.queue.Enqueue(ctx, env); err != nil {
		return "", err
	}
	return env.ID, nil
}
