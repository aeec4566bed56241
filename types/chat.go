package types

import "time"

// ChatLog records one chatbot exchange.
type ChatLog struct {
	ID int `json:"id" db:"id"`

	// UserID is nil for guest conversations.
	UserID *int `json:"user_id" db:"user_id"`

	Question string `json:"question" db:"question"`
	Answer   string `json:"answer" db:"answer"`

	// Rating is the 1-5 feedback score, nil until rated.
	Rating *int `json:"rating" db:"rating"`

	// SessionID groups consecutive questions of one conversation.
	SessionID string `json:"session_id" db:"session_id"`

	// Source names the provider that produced the answer, or "faq"/"fallback".
	Source string `json:"source" db:"source"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
