package types

import "time"

// Severity grades a symptom analysis.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SymptomCheck is one analysed symptom report.
type SymptomCheck struct {
	ID int `json:"id" db:"id"`

	// UserID is nil for guest checks, which never show up in a history.
	UserID *int `json:"user_id" db:"user_id"`

	Symptoms   string   `json:"symptoms" db:"symptoms"`
	Age        int      `json:"age" db:"age"`
	Gender     string   `json:"gender" db:"gender"`
	Duration   string   `json:"duration" db:"duration"`
	AIResponse string   `json:"ai_response" db:"ai_response"`
	Severity   Severity `json:"severity" db:"severity"`

	// Disclaimer is attached to fresh analyses and is not stored.
	Disclaimer string `json:"disclaimer,omitempty" db:"-"`

	CreatedAt time.Time `json:"timestamp" db:"created_at"`
}
