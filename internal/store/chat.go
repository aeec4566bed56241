package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/smartassist/apiserver/types"
)

const chatColumns = `id, user_id, question, answer, rating, COALESCE(session_id, ''), source, created_at`

// ChatRepository handles persistence for chatbot logs.
type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) Create(ctx context.Context, log types.ChatLog) (types.ChatLog, error) {
	log.CreatedAt = time.Now().UTC()

	const query = `
		INSERT INTO chatbot_logs (user_id, question, answer, session_id, source, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		nullableInt(log.UserID),
		log.Question,
		log.Answer,
		log.SessionID,
		log.Source,
		log.CreatedAt,
	).Scan(&log.ID); err != nil {
		return types.ChatLog{}, err
	}
	return log, nil
}

// SetRating stores the 1-5 feedback score of a log entry.
func (r *ChatRepository) SetRating(ctx context.Context, id, rating int) error {
	const query = `UPDATE chatbot_logs SET rating = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, rating, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// ListByUser returns a user's conversations, newest first.
func (r *ChatRepository) ListByUser(ctx context.Context, userID, limit, offset int) ([]types.ChatLog, error) {
	query := `SELECT ` + chatColumns + `
		FROM chatbot_logs
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []types.ChatLog{}
	for rows.Next() {
		log, err := scanChatLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

func scanChatLog(row rowScanner) (types.ChatLog, error) {
	var (
		log    types.ChatLog
		userID sql.NullInt64
		rating sql.NullInt64
	)
	err := row.Scan(
		&log.ID,
		&userID,
		&log.Question,
		&log.Answer,
		&rating,
		&log.SessionID,
		&log.Source,
		&log.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ChatLog{}, ErrNotFound
		}
		return types.ChatLog{}, err
	}
	if userID.Valid {
		id := int(userID.Int64)
		log.UserID = &id
	}
	if rating.Valid {
		value := int(rating.Int64)
		log.Rating = &value
	}
	return log, nil
}

func nullableInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
