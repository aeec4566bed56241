package services

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/smartassist/apiserver/types"
)

const (
	minKeywordLength   = 4
	maxKeywords        = 3
	matchesPerKeyword  = 2
	maxRelevantFAQs    = 5
	minFAQFieldLength  = 10
	maxFAQQuestionSize = 500
	maxFAQCategorySize = 100

	defaultFAQCacheSize = 256
	defaultFAQCacheTTL  = 10 * time.Minute
)

// FAQRepository defines persistence operations for FAQ entries.
type FAQRepository interface {
	GetByID(ctx context.Context, id int) (types.FAQ, error)
	ListActive(ctx context.Context, category string) ([]types.FAQ, error)
	SearchActive(ctx context.Context, keyword string, limit int) ([]types.FAQ, error)
	Create(ctx context.Context, faq types.FAQ) (types.FAQ, error)
	Update(ctx context.Context, faq types.FAQ) (types.FAQ, error)
	Deactivate(ctx context.Context, id int) error
}

// CacheRecorder counts retrieval cache hits and misses.
type CacheRecorder interface {
	RecordFAQCache(hit bool)
}

type FAQInput struct {
	Question string
	Answer   string
	Category string
}

// FAQUpdate carries the fields an admin may change. Nil fields are left
// untouched.
type FAQUpdate struct {
	Question *string
	Answer   *string
	Category *string
	IsActive *bool
}

// FAQService manages FAQ entries and retrieves the ones relevant to a
// chatbot question.
type FAQService struct {
	repo     FAQRepository
	cache    *expirable.LRU[string, []types.FAQ]
	recorder CacheRecorder
}

// NewFAQService builds the service. Non-positive cache settings fall back to
// 256 entries for 10 minutes.
func NewFAQService(repo FAQRepository, recorder CacheRecorder, cacheSize int, cacheTTL time.Duration) *FAQService {
	if cacheSize <= 0 {
		cacheSize = defaultFAQCacheSize
	}
	if cacheTTL <= 0 {
		cacheTTL = defaultFAQCacheTTL
	}
	return &FAQService{
		repo:     repo,
		cache:    expirable.NewLRU[string, []types.FAQ](cacheSize, nil, cacheTTL),
		recorder: recorder,
	}
}

func (s *FAQService) List(ctx context.Context, category string) ([]types.FAQ, error) {
	faqs, err := s.repo.ListActive(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	if faqs == nil {
		faqs = []types.FAQ{}
	}
	return faqs, nil
}

func (s *FAQService) Get(ctx context.Context, id int) (types.FAQ, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *FAQService) Create(ctx context.Context, in FAQInput) (types.FAQ, error) {
	faq := types.FAQ{
		Question: strings.TrimSpace(in.Question),
		Answer:   strings.TrimSpace(in.Answer),
		Category: strings.TrimSpace(in.Category),
	}
	if err := validateFAQ(faq); err != nil {
		return types.FAQ{}, err
	}

	created, err := s.repo.Create(ctx, faq)
	if err != nil {
		return types.FAQ{}, err
	}
	s.cache.Purge()
	return created, nil
}

func (s *FAQService) Update(ctx context.Context, id int, update FAQUpdate) (types.FAQ, error) {
	faq, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.FAQ{}, err
	}
	if update.Question != nil {
		faq.Question = strings.TrimSpace(*update.Question)
	}
	if update.Answer != nil {
		faq.Answer = strings.TrimSpace(*update.Answer)
	}
	if update.Category != nil {
		faq.Category = strings.TrimSpace(*update.Category)
	}
	if update.IsActive != nil {
		faq.IsActive = *update.IsActive
	}
	if err := validateFAQ(faq); err != nil {
		return types.FAQ{}, err
	}

	updated, err := s.repo.Update(ctx, faq)
	if err != nil {
		return types.FAQ{}, err
	}
	s.cache.Purge()
	return updated, nil
}

// Deactivate hides an entry. Entries are never hard-deleted.
func (s *FAQService) Deactivate(ctx context.Context, id int) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// Relevant returns up to five active entries whose question contains one of
// the first three keywords of question. Keywords are the lower-cased words
// longer than three characters; each contributes at most two matches.
func (s *FAQService) Relevant(ctx context.Context, question string) ([]types.FAQ, error) {
	keywords := extractKeywords(question)
	if len(keywords) == 0 {
		return nil, nil
	}

	key := strings.Join(keywords, " ")
	if cached, ok := s.cache.Get(key); ok {
		s.recordCache(true)
		return cached, nil
	}
	s.recordCache(false)

	seen := make(map[int]struct{})
	var relevant []types.FAQ
	for _, keyword := range keywords {
		matches, err := s.repo.SearchActive(ctx, keyword, matchesPerKeyword)
		if err != nil {
			return nil, err
		}
		for _, faq := range matches {
			if _, dup := seen[faq.ID]; dup {
				continue
			}
			seen[faq.ID] = struct{}{}
			relevant = append(relevant, faq)
		}
	}
	if len(relevant) > maxRelevantFAQs {
		relevant = relevant[:maxRelevantFAQs]
	}

	s.cache.Add(key, relevant)
	return relevant, nil
}

func (s *FAQService) recordCache(hit bool) {
	if s.recorder != nil {
		s.recorder.RecordFAQCache(hit)
	}
}

func extractKeywords(question string) []string {
	var keywords []string
	for _, word := range strings.Fields(question) {
		if utf8.RuneCountInString(word) < minKeywordLength {
			continue
		}
		keywords = append(keywords, strings.ToLower(word))
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func validateFAQ(faq types.FAQ) error {
	if utf8.RuneCountInString(faq.Question) < minFAQFieldLength {
		return invalid("Question must be at least 10 characters")
	}
	if utf8.RuneCountInString(faq.Question) > maxFAQQuestionSize {
		return invalid("Question must be at most 500 characters")
	}
	if utf8.RuneCountInString(faq.Answer) < minFAQFieldLength {
		return invalid("Answer must be at least 10 characters")
	}
	if utf8.RuneCountInString(faq.Category) > maxFAQCategorySize {
		return invalid("Category must be at most 100 characters")
	}
	return nil
}
