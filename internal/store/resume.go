package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartassist/apiserver/types"
)

const resumeColumns = `id, user_id, filename, object_key, content_type, size, COALESCE(target_role, ''), created_at`

// ResumeRepository handles persistence for resume upload metadata.
type ResumeRepository struct {
	db *sql.DB
}

func NewResumeRepository(db *sql.DB) *ResumeRepository {
	return &ResumeRepository{db: db}
}

func (r *ResumeRepository) Create(ctx context.Context, resume types.Resume) (types.Resume, error) {
	resume.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO resumes (user_id, filename, object_key, content_type, size, target_role, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		resume.UserID,
		resume.Filename,
		resume.ObjectKey,
		resume.ContentType,
		resume.Size,
		resume.TargetRole,
		resume.CreatedAt,
	).Scan(&resume.ID); err != nil {
		return types.Resume{}, mapWriteError(err)
	}
	return resume, nil
}

func (r *ResumeRepository) GetByID(ctx context.Context, id int) (types.Resume, error) {
	query := `SELECT ` + resumeColumns + ` FROM resumes WHERE id = $1`
	return scanResume(r.db.QueryRowContext(ctx, query, id))
}

// ListByUser returns a user's uploads, newest first.
func (r *ResumeRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.Resume, error) {
	query := `SELECT ` + resumeColumns + `
		FROM resumes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resumes := []types.Resume{}
	for rows.Next() {
		resume, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		resumes = append(resumes, resume)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return resumes, nil
}

func (r *ResumeRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM resumes WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func scanResume(row rowScanner) (types.Resume, error) {
	var resume types.Resume
	err := row.Scan(
		&resume.ID,
		&resume.UserID,
		&resume.Filename,
		&resume.ObjectKey,
		&resume.ContentType,
		&resume.Size,
		&resume.TargetRole,
		&resume.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Resume{}, ErrNotFound
		}
		return types.Resume{}, err
	}
	return resume, nil
}
