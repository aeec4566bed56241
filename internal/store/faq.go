package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/smartassist/apiserver/types"
)

const faqColumns = `id, question, answer, COALESCE(category, ''), is_active, created_at, updated_at`

// FAQRepository handles persistence for FAQ entries.
type FAQRepository struct {
	db *sql.DB
}

func NewFAQRepository(db *sql.DB) *FAQRepository {
	return &FAQRepository{db: db}
}

func (r *FAQRepository) GetByID(ctx context.Context, id int) (types.FAQ, error) {
	query := `SELECT ` + faqColumns + ` FROM faqs WHERE id = $1`
	return scanFAQ(r.db.QueryRowContext(ctx, query, id))
}

// ListActive returns active entries, optionally restricted to a category.
func (r *FAQRepository) ListActive(ctx context.Context, category string) ([]types.FAQ, error) {
	query := `SELECT ` + faqColumns + ` FROM faqs WHERE is_active = TRUE`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY id`
	return r.queryFAQs(ctx, query, args...)
}

// SearchActive returns up to limit active entries whose question contains
// keyword, case-insensitively.
func (r *FAQRepository) SearchActive(ctx context.Context, keyword string, limit int) ([]types.FAQ, error) {
	query := `SELECT ` + faqColumns + `
		FROM faqs
		WHERE is_active = TRUE AND question ILIKE $1
		ORDER BY id
		LIMIT $2`
	return r.queryFAQs(ctx, query, "%"+escapeLike(keyword)+"%", limit)
}

func (r *FAQRepository) Create(ctx context.Context, faq types.FAQ) (types.FAQ, error) {
	now := time.Now().UTC()
	faq.CreatedAt = now
	faq.UpdatedAt = now
	faq.IsActive = true

	const query = `
		INSERT INTO faqs (question, answer, category, is_active, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		faq.Question,
		faq.Answer,
		faq.Category,
		faq.IsActive,
		faq.CreatedAt,
		faq.UpdatedAt,
	).Scan(&faq.ID); err != nil {
		return types.FAQ{}, mapWriteError(err)
	}
	return faq, nil
}

func (r *FAQRepository) Update(ctx context.Context, faq types.FAQ) (types.FAQ, error) {
	faq.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE faqs
		SET question = $1,
			answer = $2,
			category = NULLIF($3, ''),
			is_active = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		faq.Question,
		faq.Answer,
		faq.Category,
		faq.IsActive,
		faq.UpdatedAt,
		faq.ID,
	)
	if err != nil {
		return types.FAQ{}, mapWriteError(err)
	}
	if err := expectAffected(result); err != nil {
		return types.FAQ{}, err
	}
	return faq, nil
}

// Deactivate hides an entry from the chatbot without deleting it.
func (r *FAQRepository) Deactivate(ctx context.Context, id int) error {
	const query = `UPDATE faqs SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *FAQRepository) queryFAQs(ctx context.Context, query string, args ...any) ([]types.FAQ, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	faqs := []types.FAQ{}
	for rows.Next() {
		faq, err := scanFAQ(rows)
		if err != nil {
			return nil, err
		}
		faqs = append(faqs, faq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return faqs, nil
}

func scanFAQ(row rowScanner) (types.FAQ, error) {
	var faq types.FAQ
	err := row.Scan(
		&faq.ID,
		&faq.Question,
		&faq.Answer,
		&faq.Category,
		&faq.IsActive,
		&faq.CreatedAt,
		&faq.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.FAQ{}, ErrNotFound
		}
		return types.FAQ{}, err
	}
	return faq, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
