package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/types"
)

const (
	minSymptomsLength = 10
	maxSymptomsLength = 1000
	minPatientAge     = 1
	maxPatientAge     = 120
	maxDurationLength = 100

	// SymptomDisclaimer accompanies every fresh analysis.
	SymptomDisclaimer = "This is general health information only, NOT medical advice. " +
		"Always consult qualified healthcare professionals for medical concerns."

	symptomInstructions = "You are a medical information assistant. Provide general health information only. " +
		"Always include a disclaimer that this is NOT medical advice and users should consult healthcare professionals."
)

// ErrAnalysisUnavailable is returned when no AI provider could analyse a
// symptom report. Nothing is stored in that case.
var ErrAnalysisUnavailable = errors.New("Symptom analysis is temporarily unavailable")

var genders = []string{"male", "female", "other"}

// Checked in order; the first list with a match decides.
var (
	highSeverityKeywords = []string{"high severity", "urgent", "emergency", "immediate", "serious", "severe"}
	lowSeverityKeywords  = []string{"low severity", "minor", "mild", "self-care", "not serious"}
)

// SymptomRepository defines persistence operations for symptom checks.
type SymptomRepository interface {
	Create(ctx context.Context, check types.SymptomCheck) (types.SymptomCheck, error)
	ListByUser(ctx context.Context, userID, limit, offset int) ([]types.SymptomCheck, error)
}

type SymptomInput struct {
	Symptoms string
	Age      int
	Gender   string
	Duration string
}

// SymptomService analyses symptom reports with the AI chain and keeps a
// history for signed-in users.
type SymptomService struct {
	repo       SymptomRepository
	answerer   Answerer
	pagination Pagination
	logger     logrus.FieldLogger
}

func NewSymptomService(repo SymptomRepository, answerer Answerer, logger logrus.FieldLogger) *SymptomService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SymptomService{
		repo:       repo,
		answerer:   answerer,
		pagination: DefaultPagination,
		logger:     logger,
	}
}

// Check validates in, asks the AI chain for an analysis and stores the
// result. Guest checks are stored without an owner.
func (s *SymptomService) Check(ctx context.Context, user types.User, in SymptomInput) (types.SymptomCheck, error) {
	in, err := normalizeSymptomInput(in)
	if err != nil {
		return types.SymptomCheck{}, err
	}

	if s.answerer == nil || s.answerer.Empty() {
		return types.SymptomCheck{}, ErrAnalysisUnavailable
	}
	analysis, provider, err := s.answerer.Generate(ctx, buildSymptomPrompt(in))
	if err != nil {
		s.logger.WithError(err).Warn("symptom analysis failed")
		return types.SymptomCheck{}, ErrAnalysisUnavailable
	}

	check := types.SymptomCheck{
		Symptoms:   in.Symptoms,
		Age:        in.Age,
		Gender:     in.Gender,
		Duration:   in.Duration,
		AIResponse: analysis,
		Severity:   classifySeverity(analysis),
	}
	if !user.IsGuest() {
		id := user.ID
		check.UserID = &id
	}

	created, err := s.repo.Create(ctx, check)
	if err != nil {
		return types.SymptomCheck{}, err
	}
	s.logger.WithFields(logrus.Fields{
		"symptom_check_id": created.ID,
		"severity":         created.Severity,
		"provider":         provider,
	}).Info("symptom check analysed")

	created.Disclaimer = SymptomDisclaimer
	return created, nil
}

// History returns the user's checks, newest first.
func (s *SymptomService) History(ctx context.Context, user types.User, limit, offset int) ([]types.SymptomCheck, error) {
	if offset < 0 {
		offset = 0
	}
	checks, err := s.repo.ListByUser(ctx, user.ID, s.pagination.Limit(limit), offset)
	if err != nil {
		return nil, err
	}
	if checks == nil {
		checks = []types.SymptomCheck{}
	}
	return checks, nil
}

func normalizeSymptomInput(in SymptomInput) (SymptomInput, error) {
	in.Symptoms = strings.TrimSpace(in.Symptoms)
	switch n := utf8.RuneCountInString(in.Symptoms); {
	case n < minSymptomsLength:
		return in, invalid("Symptoms must be at least 10 characters")
	case n > maxSymptomsLength:
		return in, invalid("Symptoms must be at most 1000 characters")
	}

	if in.Age < minPatientAge || in.Age > maxPatientAge {
		return in, invalid("Age must be between 1 and 120")
	}

	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	if !validGender(in.Gender) {
		return in, invalid("Gender must be one of: " + strings.Join(genders, ", "))
	}

	in.Duration = strings.TrimSpace(in.Duration)
	if in.Duration == "" {
		return in, invalid("Duration is required")
	}
	if utf8.RuneCountInString(in.Duration) > maxDurationLength {
		return in, invalid("Duration must be at most 100 characters")
	}
	return in, nil
}

func validGender(gender string) bool {
	for _, g := range genders {
		if g == gender {
			return true
		}
	}
	return false
}

// classifySeverity grades an analysis by keyword. High-severity keywords
// win over low-severity ones, so "not serious" still reads as high.
func classifySeverity(analysis string) types.Severity {
	text := strings.ToLower(analysis)
	if containsAny(text, highSeverityKeywords) {
		return types.SeverityHigh
	}
	if containsAny(text, lowSeverityKeywords) {
		return types.SeverityLow
	}
	return types.SeverityMedium
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func buildSymptomPrompt(in SymptomInput) string {
	var b strings.Builder
	b.WriteString(symptomInstructions)
	b.WriteString("\n\n")
	b.WriteString("Analyze these symptoms and provide health information:\n\n")
	fmt.Fprintf(&b, "Symptoms: %s\nAge: %d\nGender: %s\nDuration: %s\n\n", in.Symptoms, in.Age, in.Gender, in.Duration)
	b.WriteString("Provide a JSON response with:\n")
	b.WriteString("1. possible_conditions: List of 3-5 possible conditions (not diagnoses)\n")
	b.WriteString("2. severity: \"Low\", \"Medium\", or \"High\"\n")
	b.WriteString("3. precautions: List of 3-5 general precautions\n")
	b.WriteString("4. when_to_see_doctor: Specific warning signs\n\n")
	b.WriteString("Remember: This is information only, NOT medical advice.")
	return b.String()
}
