package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/storage"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

const (
	defaultMaxResumeBytes = 5 << 20
	purgeBatchSize        = 100
	maxFilenameLength     = 255
	maxTargetRoleLength   = 200
)

var resumeContentTypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// ResumeRepository defines persistence operations for resume metadata.
type ResumeRepository interface {
	Create(ctx context.Context, resume types.Resume) (types.Resume, error)
	GetByID(ctx context.Context, id int) (types.Resume, error)
	ListByUser(ctx context.Context, userID, limit, offset int) ([]types.Resume, error)
	Delete(ctx context.Context, id int) error
}

// ObjectStore holds resume file content. *storage.Storage satisfies it.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// UploadPolicy limits what can be uploaded.
type UploadPolicy struct {
	MaxBytes          int64
	AllowedExtensions []string
}

// ResumeUpload is one file received from a client.
type ResumeUpload struct {
	Filename   string
	Size       int64
	TargetRole string
	Body       io.Reader
}

// ResumeService stores resume files and their metadata. Only the owner and
// admins can see an upload; everyone else gets store.ErrNotFound.
type ResumeService struct {
	repo       ResumeRepository
	objects    ObjectStore
	policy     UploadPolicy
	allowed    map[string]struct{}
	pagination Pagination
	logger     logrus.FieldLogger
}

func NewResumeService(repo ResumeRepository, objects ObjectStore, policy UploadPolicy, logger logrus.FieldLogger) *ResumeService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if policy.MaxBytes <= 0 {
		policy.MaxBytes = defaultMaxResumeBytes
	}
	if len(policy.AllowedExtensions) == 0 {
		policy.AllowedExtensions = []string{"pdf", "docx"}
	}
	allowed := make(map[string]struct{}, len(policy.AllowedExtensions))
	for _, ext := range policy.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &ResumeService{
		repo:       repo,
		objects:    objects,
		policy:     policy,
		allowed:    allowed,
		pagination: DefaultPagination,
		logger:     logger,
	}
}

func (s *ResumeService) Upload(ctx context.Context, user types.User, upload ResumeUpload) (types.Resume, error) {
	filename := filepath.Base(strings.TrimSpace(upload.Filename))
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if _, ok := s.allowed[ext]; !ok {
		return types.Resume{}, invalid(fmt.Sprintf("Unsupported file type. Allowed: %s", s.allowedList()))
	}
	if upload.Size <= 0 {
		return types.Resume{}, invalid("File is empty")
	}
	if upload.Size > s.policy.MaxBytes {
		return types.Resume{}, invalid("File too large. Maximum size is " + formatSize(s.policy.MaxBytes))
	}
	if utf8.RuneCountInString(filename) > maxFilenameLength {
		return types.Resume{}, invalid("Filename must be at most 255 characters")
	}
	targetRole := strings.TrimSpace(upload.TargetRole)
	if utf8.RuneCountInString(targetRole) > maxTargetRoleLength {
		return types.Resume{}, invalid("Target role must be at most 200 characters")
	}

	contentType, ok := resumeContentTypes[ext]
	if !ok {
		contentType = "application/octet-stream"
	}
	key := fmt.Sprintf("resumes/%d/%s.%s", user.ID, uuid.NewString(), ext)

	if err := s.objects.Put(ctx, key, io.LimitReader(upload.Body, upload.Size), upload.Size, contentType); err != nil {
		return types.Resume{}, fmt.Errorf("failed to store resume: %w", err)
	}

	resume, err := s.repo.Create(ctx, types.Resume{
		UserID:      user.ID,
		Filename:    filename,
		ObjectKey:   key,
		ContentType: contentType,
		Size:        upload.Size,
		TargetRole:  targetRole,
	})
	if err != nil {
		s.deleteObject(ctx, key)
		return types.Resume{}, err
	}
	return resume, nil
}

// List returns the user's own uploads, newest first.
func (s *ResumeService) List(ctx context.Context, user types.User, limit, offset int) ([]types.Resume, error) {
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByUser(ctx, user.ID, s.pagination.Limit(limit), offset)
}

func (s *ResumeService) Get(ctx context.Context, user types.User, id int) (types.Resume, error) {
	resume, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Resume{}, err
	}
	if resume.UserID != user.ID && user.Role != types.RoleAdmin {
		return types.Resume{}, store.ErrNotFound
	}
	return resume, nil
}

// Open returns the upload's metadata and a reader over its content. The
// caller closes the reader.
func (s *ResumeService) Open(ctx context.Context, user types.User, id int) (types.Resume, io.ReadCloser, error) {
	resume, err := s.Get(ctx, user, id)
	if err != nil {
		return types.Resume{}, nil, err
	}
	body, err := s.objects.Get(ctx, resume.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return types.Resume{}, nil, store.ErrNotFound
		}
		return types.Resume{}, nil, err
	}
	return resume, body, nil
}

func (s *ResumeService) Delete(ctx context.Context, user types.User, id int) error {
	resume, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, resume.ID); err != nil {
		return err
	}
	s.deleteObject(ctx, resume.ObjectKey)
	return nil
}

// PurgeUser deletes the stored files of every upload owned by userID. The
// metadata rows go away with the user through the foreign key cascade.
func (s *ResumeService) PurgeUser(ctx context.Context, userID int) error {
	var errs []error
	for offset := 0; ; offset += purgeBatchSize {
		batch, err := s.repo.ListByUser(ctx, userID, purgeBatchSize, offset)
		if err != nil {
			return err
		}
		for _, resume := range batch {
			if err := s.objects.Delete(ctx, resume.ObjectKey); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
				errs = append(errs, fmt.Errorf("%s: %w", resume.ObjectKey, err))
			}
		}
		if len(batch) < purgeBatchSize {
			break
		}
	}
	return errors.Join(errs...)
}

func (s *ResumeService) deleteObject(ctx context.Context, key string) {
	if err := s.objects.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.WithError(err).WithField("object_key", key).Warn("failed to delete resume object")
	}
}

func (s *ResumeService) allowedList() string {
	exts := make([]string, 0, len(s.policy.AllowedExtensions))
	for _, ext := range s.policy.AllowedExtensions {
		exts = append(exts, "."+strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return strings.Join(exts, ", ")
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d bytes", n)
	}
}
