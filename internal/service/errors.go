package service

import (
	"fmt"

	"video-processing-service/internal/artifact"
	"video-processing-service/internal/entity"
	"video-processing-service/internal/media"
)

// ValidationError means the trigger event could not be used. Nothing was touched.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid event: " + e.Reason
}

// DuplicateJobError means the id was already processing or processed.
type DuplicateJobError struct {
	Kind entity.MediaKind
	ID   string
}

func (e *DuplicateJobError) Error() string {
	return fmt.Sprintf("%s %s already processing or processed", e.Kind, e.ID)
}

// RecordStoreError wraps any failure of the record store. None are swallowed.
type RecordStoreError struct {
	Op  string
	Err error
}

func (e *RecordStoreError) Error() string {
	return fmt.Sprintf("record store %s: %v", e.Op, e.Err)
}

func (e *RecordStoreError) Unwrap() error { return e.Err }

type (
	TransferError  = artifact.TransferError
	TransformError = media.TransformError
)
