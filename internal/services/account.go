package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"github.com/smartassist/apiserver/internal/auth"
	"github.com/smartassist/apiserver/internal/events"
	"github.com/smartassist/apiserver/internal/store"
	"github.com/smartassist/apiserver/types"
)

const (
	maxNameLength  = 100
	maxEmailLength = 255
)

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	auth.UserFinder
	List(ctx context.Context, limit, offset int) ([]types.User, int, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	UpdateRole(ctx context.Context, id int, role types.Role) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// EventEmitter receives account lifecycle events.
type EventEmitter interface {
	Emit(ctx context.Context, eventType events.Type, user types.User)
}

// LoginRecorder counts login attempts by outcome.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

// ResumePurger removes the stored files of a user being deleted.
type ResumePurger interface {
	PurgeUser(ctx context.Context, userID int) error
}

// Session is an issued access token and the user it belongs to.
type Session struct {
	AccessToken string
	User        types.User
}

type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// ProfileUpdate carries the fields a user may change. Nil fields are left
// untouched.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// UserPage is one page of the admin user listing.
type UserPage struct {
	Users []types.User `json:"users"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

// AccountService implements registration, login and profile management on
// top of the auth core.
type AccountService struct {
	users         UserRepository
	passwords     *auth.PasswordManager
	tokens        *auth.TokenService
	authenticator *auth.Authenticator
	events        EventEmitter
	logins        LoginRecorder
	resumes       ResumePurger
	pagination    Pagination
	logger        logrus.FieldLogger
}

func NewAccountService(
	users UserRepository,
	passwords *auth.PasswordManager,
	tokens *auth.TokenService,
	emitter EventEmitter,
	logins LoginRecorder,
	logger logrus.FieldLogger,
) *AccountService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AccountService{
		users:         users,
		passwords:     passwords,
		tokens:        tokens,
		authenticator: auth.NewAuthenticator(users, passwords),
		events:        emitter,
		logins:        logins,
		pagination:    DefaultPagination,
		logger:        logger,
	}
}

// SetResumePurger makes DeleteAccount remove the user's stored files.
func (s *AccountService) SetResumePurger(purger ResumePurger) {
	s.resumes = purger
}

func (s *AccountService) SetPagination(p Pagination) {
	s.pagination = p
}

func (s *AccountService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email, err := normalizeEmailAddress(in.Email)
	if err != nil {
		return Session{}, err
	}
	name, err := normalizeName(in.Name)
	if err != nil {
		return Session{}, err
	}
	if err := s.passwords.CheckStrength(in.Password); err != nil {
		return Session{}, err
	}

	if _, err := s.users.FindUserByEmail(ctx, email); err == nil {
		return Session{}, ErrEmailRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return Session{}, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return Session{}, err
	}

	user, err := s.users.Create(ctx, types.User{
		Email:        email,
		Name:         name,
		Role:         types.RoleUser,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return Session{}, ErrEmailRegistered
		}
		return Session{}, err
	}

	session, err := s.issue(user)
	if err != nil {
		return Session{}, err
	}
	s.emit(ctx, events.UserRegistered, user)
	s.logger.WithField("user_id", user.ID).Info("user registered")
	return session, nil
}

// Login exchanges credentials for a token. Unknown emails and wrong
// passwords fail identically with auth.ErrInvalidCredentials.
func (s *AccountService) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.authenticator.Authenticate(ctx, email, password)
	if err != nil {
		if auth.KindOf(err) == auth.InvalidCredentials {
			s.recordLogin("invalid")
		} else {
			s.recordLogin("error")
		}
		return Session{}, err
	}

	session, err := s.issue(user)
	if err != nil {
		s.recordLogin("error")
		return Session{}, err
	}
	s.recordLogin("success")
	s.emit(ctx, events.UserLoggedIn, user)
	return session, nil
}

// Refresh issues a fresh default-lifetime token for an already resolved user.
func (s *AccountService) Refresh(ctx context.Context, user types.User) (Session, error) {
	return s.issue(user)
}

func (s *AccountService) UpdateProfile(ctx context.Context, user types.User, update ProfileUpdate) (types.User, error) {
	if update.Name != nil {
		name, err := normalizeName(*update.Name)
		if err != nil {
			return types.User{}, err
		}
		user.Name = name
	}

	if update.Email != nil {
		email, err := normalizeEmailAddress(*update.Email)
		if err != nil {
			return types.User{}, err
		}
		if email != user.Email {
			existing, err := s.users.FindUserByEmail(ctx, email)
			switch {
			case err == nil && existing.ID != user.ID:
				return types.User{}, ErrEmailInUse
			case err != nil && !errors.Is(err, store.ErrNotFound):
				return types.User{}, err
			}
			user.Email = email
		}
	}

	updated, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailInUse
		}
		return types.User{}, err
	}
	s.emit(ctx, events.UserUpdated, updated)
	return updated, nil
}

// DeleteAccount removes user and, when a purger is set, their stored files.
// File cleanup failures are logged and do not block the deletion.
func (s *AccountService) DeleteAccount(ctx context.Context, user types.User) error {
	if s.resumes != nil {
		if err := s.resumes.PurgeUser(ctx, user.ID); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("failed to purge resume files")
		}
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return err
	}
	s.emit(ctx, events.UserDeleted, user)
	s.logger.WithField("user_id", user.ID).Info("account deleted")
	return nil
}

// ListUsers returns a 1-based page of users.
func (s *AccountService) ListUsers(ctx context.Context, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	limit = s.pagination.Limit(limit)

	users, total, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return UserPage{}, err
	}
	if users == nil {
		users = []types.User{}
	}
	return UserPage{Users: users, Total: total, Page: page, Limit: limit}, nil
}

func (s *AccountService) ChangeRole(ctx context.Context, userID int, role types.Role) (types.User, error) {
	if !role.Valid() {
		return types.User{}, ErrInvalidRole
	}
	user, err := s.users.UpdateRole(ctx, userID, role)
	if err != nil {
		return types.User{}, err
	}
	s.emit(ctx, events.UserRoleChanged, user)
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user role changed")
	return user, nil
}

func (s *AccountService) issue(user types.User) (Session, error) {
	token, err := s.tokens.IssueUserToken(user.ID, user.Email, user.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{AccessToken: token, User: user}, nil
}

func (s *AccountService) emit(ctx context.Context, eventType events.Type, user types.User) {
	if s.events != nil {
		s.events.Emit(ctx, eventType, user)
	}
}

func (s *AccountService) recordLogin(outcome string) {
	if s.logins != nil {
		s.logins.RecordLogin(outcome)
	}
}

func normalizeEmailAddress(email string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return "", invalid("Email is required")
	}
	if utf8.RuneCountInString(email) > maxEmailLength {
		return "", invalid("Email must be at most 255 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("Invalid email address")
	}
	return email, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("Name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid("Name must be at most 100 characters")
	}
	return name, nil
}
