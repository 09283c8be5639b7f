package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"video-processing-service/internal/entity"
	"video-processing-service/internal/repository/postgresql"
	"video-processing-service/internal/service"
)

type fakeRepo struct {
	records map[string]*entity.JobRecord

	lastKind  entity.MediaKind
	lastLimit int
	lastID    string
	lastPatch entity.RecordPatch
	mergeErr  error
}

func (r *fakeRepo) Get(ctx context.Context, kind entity.MediaKind, id string) (*entity.JobRecord, error) {
	rec, ok := r.records[rk(kind, id)]
	if !ok {
		return nil, postgresql.ErrNotFound
	}
	return rec, nil
}

func (r *fakeRepo) List(ctx context.Context, kind entity.MediaKind, limit int) ([]*entity.JobRecord, error) {
	r.lastKind = kind
	r.lastLimit = limit
	return nil, nil
}

func (r *fakeRepo) UpsertMerge(ctx context.Context, kind entity.MediaKind, id string, patch entity.RecordPatch) error {
	r.lastKind = kind
	r.lastID = id
	r.lastPatch = patch
	return r.mergeErr
}

type fakeSigner struct {
	bucket string
	name   string
	ttl    time.Duration
}

func (s *fakeSigner) SignedUploadURL(bucket, name string, ttl time.Duration) (string, error) {
	s.bucket, s.name, s.ttl = bucket, name, ttl
	return "https://signed.local/" + bucket + "/" + name, nil
}

type fakeQueue struct {
	enqueued   []service.Envelope
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, env service.Envelope) error {
	q.enqueued = append(q.enqueued, env)
	return q.enqueueErr
}

func TestJobService_ListVideos_DefaultAndClampedLimit(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo, nil, nil, testBuckets, 0)

	if _, err := svc.ListVideos(context.Background(), 0); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.lastLimit != 10 || repo.lastKind != entity.KindVideo {
		t.Fatalf("expected videos limit=10, got %s limit=%d", repo.lastKind, repo.lastLimit)
	}

	_, _ = svc.ListVideos(context.Background(), 5000)
	if repo.lastLimit != service.MaxListLimit {
		t.Fatalf("expected limit clamped to %d, got %d", service.MaxListLimit, repo.lastLimit)
	}
}

func TestJobService_GetRecord_NotFound(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, nil, nil, testBuckets, 0)

	_, err := svc.GetRecord(context.Background(), entity.KindThumbnail, "thumbnail-u-1")
	if !errors.Is(err, postgresql.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobService_SaveMetadata_MergesWithoutStatus(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo, nil, nil, testBuckets, 0)

	title := "My trip"
	if err := svc.SaveMetadata(context.Background(), "user1-100", service.MetadataRequest{Title: &title}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.lastID != "user1-100" || repo.lastKind != entity.KindVideo {
		t.Fatalf("unexpected target %s/%s", repo.lastKind, repo.lastID)
	}
	if repo.lastPatch.Title == nil || *repo.lastPatch.Title != title {
		t.Fatalf("expected title in patch, got %+v", repo.lastPatch)
	}
	if repo.lastPatch.Description != nil || repo.lastPatch.SourceFilename != nil {
		t.Fatalf("expected untouched fields to stay nil, got %+v", repo.lastPatch)
	}
	if repo.lastPatch.OwnerID == nil || *repo.lastPatch.OwnerID != "user1" {
		t.Fatalf("expected owner user1, got %+v", repo.lastPatch.OwnerID)
	}
}

func TestJobService_SaveMetadata_Empty(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, nil, nil, testBuckets, 0)

	err := svc.SaveMetadata(context.Background(), "user1-100", service.MetadataRequest{})
	var ve *service.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestJobService_LinkThumbnail_AcceptsFileName(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.NewJobService(repo, nil, nil, testBuckets, 0)

	if err := svc.LinkThumbnail(context.Background(), "user1-100", "thumbnail-user1-200.png"); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if repo.lastPatch.ThumbnailID == nil || *repo.lastPatch.ThumbnailID != "thumbnail-user1-200" {
		t.Fatalf("expected thumbnail id, got %+v", repo.lastPatch.ThumbnailID)
	}
}

func TestJobService_IssueUploadURL(t *testing.T) {
	signer := &fakeSigner{}
	svc := service.NewJobService(&fakeRepo{}, signer, nil, testBuckets, 15*time.Minute)

	video, err := svc.IssueUploadURL(context.Background(), service.UploadURLRequest{
		UID: "abc", FileType: entity.KindVideo, FileExtension: "mp4",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if signer.bucket != testBuckets.RawVideo || signer.ttl != 15*time.Minute {
		t.Fatalf("unexpected signing call %+v", signer)
	}
	if !strings.HasPrefix(video.FileName, "abc-") || !strings.HasSuffix(video.FileName, ".mp4") {
		t.Fatalf("unexpected file name %q", video.FileName)
	}
	if video.ID != strings.TrimSuffix(video.FileName, ".mp4") {
		t.Fatalf("expected id from file name, got %q", video.ID)
	}

	thumb, err := svc.IssueUploadURL(context.Background(), service.UploadURLRequest{
		UID: "abc", FileType: entity.KindThumbnail, FileExtension: ".png",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if signer.bucket != testBuckets.RawThumbnail || !strings.HasPrefix(thumb.FileName, "thumbnail-abc-") {
		t.Fatalf("unexpected thumbnail upload %+v (bucket %s)", thumb, signer.bucket)
	}
	if got := entity.OwnerID(entity.KindThumbnail, thumb.ID); got != "abc" {
		t.Fatalf("expected owner abc, got %q", got)
	}
}

func TestJobService_IssueUploadURL_Invalid(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, &fakeSigner{}, nil, testBuckets, 0)

	cases := []service.UploadURLRequest{
		{UID: "", FileType: entity.KindVideo, FileExtension: "mp4"},
		{UID: "a-b", FileType: entity.KindVideo, FileExtension: "mp4"},
		{UID: "abc", FileType: "audio", FileExtension: "mp3"},
		{UID: "abc", FileType: entity.KindVideo, FileExtension: "mp4/../x"},
	}
	for _, c := range cases {
		_, err := svc.IssueUploadURL(context.Background(), c)
		var ve *service.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError for %+v, got %v", c, err)
		}
	}
}

func TestJobService_IssueUploadURL_NoSigner(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, nil, nil, testBuckets, 0)

	_, err := svc.IssueUploadURL(context.Background(), service.UploadURLRequest{UID: "abc", FileType: entity.KindVideo, FileExtension: "mp4"})
	if !errors.Is(err, service.ErrSigningDisabled) {
		t.Fatalf("expected ErrSigningDisabled, got %v", err)
	}
}

func TestJobService_EnqueueEvent(t *testing.T) {
	queue := &fakeQueue{}
	svc := service.NewJobService(&fakeRepo{}, nil, queue, testBuckets, 0)

	data := service.EncodeEventData(service.Event{Name: "user1-1.mp4"})
	id, err := svc.EnqueueEvent(context.Background(), entity.KindVideo, data)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(queue.enqueued) != 1 || queue.enqueued[0].ID != id || queue.enqueued[0].Kind != entity.KindVideo {
		t.Fatalf("unexpected enqueued envelopes %+v", queue.enqueued)
	}
	if queue.enqueued[0].Data != data {
		t.Fatalf("expected data to be kept verbatim")
	}
}

func TestJobService_EnqueueEvent_RejectsBadData(t *testing.T) {
	queue := &fakeQueue{}
	svc := service.NewJobService(&fakeRepo{}, nil, queue, testBuckets, 0)

	_, err := svc.EnqueueEvent(context.Background(), entity.KindVideo, "!!")
	var ve *service.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(queue.enqueued) != 0 {
		t.Fatalf("expected nothing enqueued")
	}
}

func TestJobService_EnqueueEvent_NoQueue(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, nil, nil, testBuckets, 0)

	_, err := svc.EnqueueEvent(context.Background(), entity.KindVideo, service.EncodeEventData(service.Event{Name: "u-1.mp4"}))
	if !errors.Is(err, service.ErrQueueDisabled) {
		t.Fatalf("expected ErrQueueDisabled, got %v", err)
	}
}
