package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/types"
)

const (
	maxQuestionLength  = 1000
	maxSessionIDLength = 100

	SourceFAQ      = "faq"
	SourceFallback = "fallback"

	// FallbackAnswer is served when neither a provider nor a matching FAQ
	// can answer.
	FallbackAnswer = "I'm sorry, I couldn't find an answer to that right now. " +
		"Please try rephrasing your question or consult a healthcare professional."

	chatbotInstructions = "You are a helpful health information chatbot. Provide accurate, friendly " +
		"responses to general health questions. Always be empathetic and include disclaimers when appropriate."
)

// ChatRepository defines persistence operations for chatbot logs.
type ChatRepository interface {
	Create(ctx context.Context, log types.ChatLog) (types.ChatLog, error)
	SetRating(ctx context.Context, id, rating int) error
	ListByUser(ctx context.Context, userID, limit, offset int) ([]types.ChatLog, error)
}

// FAQRetriever finds FAQ entries related to a question.
type FAQRetriever interface {
	Relevant(ctx context.Context, question string) ([]types.FAQ, error)
}

// Answerer generates an answer and names the provider that produced it.
// *ai.Chain satisfies it.
type Answerer interface {
	Empty() bool
	Generate(ctx context.Context, prompt string) (string, string, error)
}

type ChatbotService struct {
	chats      ChatRepository
	faqs       FAQRetriever
	answerer   Answerer
	pagination Pagination
	logger     logrus.FieldLogger
}

func NewChatbotService(chats ChatRepository, faqs FAQRetriever, answerer Answerer, logger logrus.FieldLogger) *ChatbotService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &ChatbotService{
		chats:      chats,
		faqs:       faqs,
		answerer:   answerer,
		pagination: Pagination{DefaultPageSize: 50, MaxPageSize: 100},
		logger:     logger,
	}
}

// Ask answers question and logs the exchange. user may be a guest, in which
// case the log has no owner. An empty sessionID starts a new session.
func (s *ChatbotService) Ask(ctx context.Context, user types.User, question, sessionID string) (types.ChatLog, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return types.ChatLog{}, invalid("Question is required")
	}
	if utf8.RuneCountInString(question) > maxQuestionLength {
		return types.ChatLog{}, invalid("Question must be at most 1000 characters")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if utf8.RuneCountInString(sessionID) > maxSessionIDLength {
		return types.ChatLog{}, invalid("Session ID must be at most 100 characters")
	}

	logger := s.logger.WithField("session_id", sessionID)

	var related []types.FAQ
	if s.faqs != nil {
		var err error
		related, err = s.faqs.Relevant(ctx, question)
		if err != nil {
			logger.WithError(err).Warn("faq retrieval failed, answering without context")
			related = nil
		}
	}

	answer, source := s.answer(ctx, logger, question, related)

	entry := types.ChatLog{
		Question:  question,
		Answer:    answer,
		SessionID: sessionID,
		Source:    source,
	}
	if !user.IsGuest() {
		id := user.ID
		entry.UserID = &id
	}
	return s.chats.Create(ctx, entry)
}

func (s *ChatbotService) answer(ctx context.Context, logger logrus.FieldLogger, question string, related []types.FAQ) (string, string) {
	if s.answerer != nil && !s.answerer.Empty() {
		answer, provider, err := s.answerer.Generate(ctx, buildPrompt(question, related))
		if err == nil {
			return answer, provider
		}
		logger.WithError(err).Warn("all AI providers failed, using fallback answer")
	}
	if len(related) > 0 {
		return related[0].Answer, SourceFAQ
	}
	return FallbackAnswer, SourceFallback
}

// Feedback stores a 1-5 rating for a logged answer.
func (s *ChatbotService) Feedback(ctx context.Context, chatID, rating int) error {
	if rating < 1 || rating > 5 {
		return invalid("Rating must be between 1 and 5")
	}
	return s.chats.SetRating(ctx, chatID, rating)
}

// History returns the user's exchanges, newest first.
func (s *ChatbotService) History(ctx context.Context, user types.User, limit, offset int) ([]types.ChatLog, error) {
	if offset < 0 {
		offset = 0
	}
	logs, err := s.chats.ListByUser(ctx, user.ID, s.pagination.Limit(limit), offset)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []types.ChatLog{}
	}
	return logs, nil
}

func buildPrompt(question string, related []types.FAQ) string {
	var b strings.Builder
	b.WriteString(chatbotInstructions)
	b.WriteString("\n\n")
	if len(related) > 0 {
		b.WriteString("Relevant FAQ entries:\n")
		for _, faq := range related {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", faq.Question, faq.Answer)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "User: %s", question)
	return b.String()
}
