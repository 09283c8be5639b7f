package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"video-processing-service/internal/entity"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrAlreadyClaimed = errors.New("already processing or processed")
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func table(kind entity.MediaKind) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown media kind %q", kind)
	}
	return kind.Collection(), nil
}

// Claim moves a record from unset to processing, creating it when absent.
// It is a single conditional upsert, so two submissions for the same id
// cannot both succeed.
func (r *JobRepository) Claim(ctx context.Context, kind entity.MediaKind, id, ownerID, sourceFilename string) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
INSERT INTO %[1]s (id, owner_id, status, source_filename)
VALUES ($1, $2, 'processing', $3)
ON CONFLICT (id) DO UPDATE
SET owner_id = EXCLUDED.owner_id,
    status = 'processing',
    source_filename = EXCLUDED.source_filename,
    updated_at = now()
WHERE %[1]s.status IS NULL
RETURNING id;
`, t)

	var claimed string
	if err := r.pool.QueryRow(ctx, q, id, ownerID, sourceFilename).Scan(&claimed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrAlreadyClaimed
		}
		return err
	}
	return nil
}

func (r *JobRepository) GetStatus(ctx context.Context, kind entity.MediaKind, id string) (entity.JobStatus, error) {
	t, err := table(kind)
	if err != nil {
		return entity.StatusUnset, err
	}
	q := fmt.Sprintf(`SELECT status FROM %s WHERE id = $1;`, t)

	var status *string
	if err := r.pool.QueryRow(ctx, q, id).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.StatusUnset, nil
		}
		return entity.StatusUnset, err
	}
	if status == nil {
		return entity.StatusUnset, nil
	}
	return entity.JobStatus(*status), nil
}

// UpsertMerge writes the non-nil fields of patch, creating the record when
// it does not exist yet. Status and outputs are never touched here.
func (r *JobRepository) UpsertMerge(ctx context.Context, kind entity.MediaKind, id string, patch entity.RecordPatch) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`
INSERT INTO %[1]s (id, owner_id, source_filename, title, description, thumbnail_id)
VALUES ($1, COALESCE($2::text, ''), $3::text, $4::text, $5::text, $6::text)
ON CONFLICT (id) DO UPDATE
SET owner_id = COALESCE($2::text, %[1]s.owner_id),
    source_filename = COALESCE($3::text, %[1]s.source_filename),
    title = COALESCE($4::text, %[1]s.title),
    description = COALESCE($5::text, %[1]s.description),
    thumbnail_id = COALESCE($6::text, %[1]s.thumbnail_id),
    updated_at = now();
`, t)

	_, err = r.pool.Exec(ctx, q, id, patch.OwnerID, patch.SourceFilename, patch.Title, patch.Description, patch.ThumbnailID)
	return err
}

// MarkProcessed records the outputs together with the processing -> processed transition.
func (r *JobRepository) MarkProcessed(ctx context.Context, kind entity.MediaKind, id string, outputs []entity.Output) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(outputs)
	if err != nil {
		return fmt.Errorf("encode outputs: %w", err)
	}
	q := fmt.Sprintf(`UPDATE %s SET status='processed', outputs=$2, updated_at=now() WHERE id=$1 AND status='processing';`, t)

	tag, err := r.pool.Exec(ctx, q, id, json.RawMessage(payload))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Release returns a processing record to unset so the same id can be submitted again.
func (r *JobRepository) Release(ctx context.Context, kind entity.MediaKind, id string) error {
	t, err := table(kind)
	if err != nil {
		return err
	}
	q := fmt.Sprintf(`UPDATE %s SET status=NULL, updated_at=now() WHERE id=$1 AND status='processing';`, t)

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const selectColumns = `id, owner_id, status, source_filename, outputs, title, description, thumbnail_id, created_at, updated_at`

func (r *JobRepository) Get(ctx context.Context, kind entity.MediaKind, id string) (*entity.JobRecord, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1;`, selectColumns, t)

	rec, err := scanRecord(kind, r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns the most recently created records first.
func (r *JobRepository) List(ctx context.Context, kind entity.MediaKind, limit int) ([]*entity.JobRecord, error) {
	t, err := table(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	q := fmt.Sprintf(`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1;`, selectColumns, t)

	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.JobRecord
	for rows.Next() {
		rec, err := scanRecord(kind, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(kind entity.MediaKind, row pgx.Row) (*entity.JobRecord, error) {
	var (
		rec         entity.JobRecord
		status      *string // NULL => unset
		source      *string
		outputBytes []byte
		title       *string
		description *string
		thumbnailID *string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(
		&rec.ID,
		&rec.OwnerID,
		&status,
		&source,
		&outputBytes,
		&title,
		&description,
		&thumbnailID,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	rec.Kind = kind
	rec.Status = entity.JobStatus(deref(status))
	rec.SourceFilename = deref(source)
	rec.Title = deref(title)
	rec.Description = deref(description)
	rec.ThumbnailID = deref(thumbnailID)
	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	if len(outputBytes) > 0 {
		if err := json.Unmarshal(outputBytes, &rec.Outputs); err != nil {
			return nil, fmt.Errorf("decode outputs of %s: %w", rec.ID, err)
		}
	}
	return &rec, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
