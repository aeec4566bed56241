package types

import "time"

// FAQ is an admin-managed question/answer pair used as chatbot context.
type FAQ struct {
	// ID is the unique identifier of the FAQ entry.
	ID int `json:"id" db:"id"`

	// Question is the unique question text.
	Question string `json:"question" db:"question"`

	// Answer is the reference answer shown to users.
	Answer string `json:"answer" db:"answer"`

	// Category groups related entries (e.g., "general", "symptoms").
	Category string `json:"category,omitempty" db:"category"`

	// IsActive marks entries visible to the chatbot. Deleting an entry
	// only clears this flag.
	IsActive bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
