package entity

import (
	"strings"
	"time"
)

type MediaKind string

const (
	KindVideo     MediaKind = "video"
	KindThumbnail MediaKind = "thumbnail"
)

// Collection is the record table holding jobs of this kind.
func (k MediaKind) Collection() string {
	switch k {
	case KindThumbnail:
		return "thumbnails"
	default:
		return "videos"
	}
}

func (k MediaKind) Valid() bool {
	return k == KindVideo || k == KindThumbnail
}

// JobStatus is empty while a record exists but has never been claimed.
type JobStatus string

const (
	StatusUnset      JobStatus = ""
	StatusProcessing JobStatus = "processing"
	StatusProcessed  JobStatus = "processed"
)

type Output struct {
	ResolutionLabel string `json:"resolutionLabel"`
	Filename        string `json:"filename"`
}

type JobRecord struct {
	ID             string    `json:"id"`
	Kind           MediaKind `json:"kind"`
	OwnerID        string    `json:"ownerId"`
	Status         JobStatus `json:"status,omitempty"`
	SourceFilename string    `json:"sourceFilename,omitempty"`
	Outputs        []Output  `json:"outputs,omitempty"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	ThumbnailID    string    `json:"thumbnailId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// RecordPatch carries the fields of a merge write; nil fields are left untouched.
type RecordPatch struct {
	OwnerID        *string
	SourceFilename *string
	Title          *string
	Description    *string
	ThumbnailID    *string
}

const thumbnailNamePrefix = "thumbnail-"

// JobID is the upload name up to its first dot.
func JobID(filename string) string {
	id, _, _ := strings.Cut(filename, ".")
	return id
}

// OwnerID is the job id up to its first dash. Thumbnail uploads are named
// "thumbnail-<uid>-<ms>", so that naming prefix is dropped first.
func OwnerID(kind MediaKind, jobID string) string {
	if kind == KindThumbnail {
		jobID = strings.TrimPrefix(jobID, thumbnailNamePrefix)
	}
	owner, _, _ := strings.Cut(jobID, "-")
	return owner
}
