package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartassist/apiserver/types"
)

const symptomColumns = `id, user_id, symptoms, age, gender, duration, ai_response, severity, created_at`

// SymptomRepository handles persistence for symptom checks.
type SymptomRepository struct {
	db *sql.DB
}

func NewSymptomRepository(db *sql.DB) *SymptomRepository {
	return &SymptomRepository{db: db}
}

func (r *SymptomRepository) Create(ctx context.Context, check types.SymptomCheck) (types.SymptomCheck, error) {
	check.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO symptom_checks (user_id, symptoms, age, gender, duration, ai_response, severity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		nullableInt(check.UserID),
		check.Symptoms,
		check.Age,
		check.Gender,
		check.Duration,
		check.AIResponse,
		string(check.Severity),
		check.CreatedAt,
	).Scan(&check.ID); err != nil {
		return types.SymptomCheck{}, err
	}
	return check, nil
}

// ListByUser returns a user's checks, newest first.
func (r *SymptomRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.SymptomCheck, error) {
	query := `SELECT ` + symptomColumns + `
		FROM symptom_checks
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	checks := []types.SymptomCheck{}
	for rows.Next() {
		check, err := scanSymptomCheck(rows)
		if err != nil {
			return nil, err
		}
		checks = append(checks, check)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checks, nil
}

func scanSymptomCheck(row rowScanner) (types.SymptomCheck, error) {
	var (
		check    types.SymptomCheck
		userID   sql.NullInt64
		severity string
	)
	err := row.Scan(
		&check.ID,
		&userID,
		&check.Symptoms,
		&check.Age,
		&check.Gender,
		&check.Duration,
		&check.AIResponse,
		&severity,
		&check.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.SymptomCheck{}, ErrNotFound
		}
		return types.SymptomCheck{}, err
	}
	if userID.Valid {
		id := int(userID.Int64)
		check.UserID = &id
	}
	check.Severity = types.Severity(severity)
	return check, nil
}
