package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smartassist/apiserver/types"
)

const (
	DefaultAlgorithm = "HS256"
	DefaultTokenTTL  = 1440 * time.Minute

	ClaimUserID = "user_id"
	ClaimEmail  = "email"
	ClaimRole   = "role"
	ClaimExp    = "exp"
)

// TokenConfig is the signing setup of a TokenService. It is copied at
// construction and never read from the environment afterwards.
type TokenConfig struct {
	Secret    string
	Algorithm string
	TTL       time.Duration
}

// Claims is the decoded payload of a token.
type Claims map[string]any

// UserID returns the user_id claim if it is a positive integer.
func (c Claims) UserID() (int, bool) {
	return positiveInt(c[ClaimUserID])
}

func (c Claims) Email() string {
	email, _ := c[ClaimEmail].(string)
	return email
}

func (c Claims) Role() types.Role {
	role, _ := c[ClaimRole].(string)
	return types.Role(role)
}

// ExpiresAt returns the exp claim.
func (c Claims) ExpiresAt() (time.Time, bool) {
	exp, err := jwt.MapClaims(c).GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// TokenService issues and verifies signed, time-limited tokens. It holds no
// mutable state and is safe for concurrent use.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewTokenService validates cfg and builds a TokenService.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	return newTokenService(cfg, time.Now)
}

func newTokenService(cfg TokenConfig, now func() time.Time) (*TokenService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token secret is required")
	}

	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = DefaultAlgorithm
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	return &TokenService{
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(now),
		),
		now: now,
	}, nil
}

// TTL returns the default token lifetime.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a copy of claims with exp set to now+ttl. A zero ttl selects
// the configured default; a negative ttl yields an already expired token.
// The caller's map is left untouched.
func (s *TokenService) Issue(claims Claims, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = s.ttl
	}

	payload := make(jwt.MapClaims, len(claims)+1)
	for key, value := range claims {
		payload[key] = value
	}
	payload[ClaimExp] = s.now().Add(ttl).Unix()

	token := jwt.NewWithClaims(s.method, payload)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// IssueUserToken issues a default-lifetime token carrying exactly user_id,
// email and role.
func (s *TokenService) IssueUserToken(userID int, email string, role types.Role) (string, error) {
	return s.Issue(Claims{
		ClaimUserID: userID,
		ClaimEmail:  email,
		ClaimRole:   string(role),
	}, 0)
}

// Verify checks signature, algorithm and expiry. It never fails loudly: any
// problem yields (nil, false).
func (s *TokenService) Verify(tokenString string) (Claims, bool) {
	if tokenString == "" {
		return nil, false
	}

	claims := jwt.MapClaims{}
	token, err := s.parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return Claims(claims), true
}

// ExtractUserID verifies tokenString and returns its user_id claim.
func (s *TokenService) ExtractUserID(tokenString string) (int, bool) {
	claims, ok := s.Verify(tokenString)
	if !ok {
		return 0, false
	}
	return claims.UserID()
}

func positiveInt(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case int:
		return v, v > 0
	case int64:
		return int(v), v > 0 && v <= math.MaxInt32
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), n > 0 && n <= math.MaxInt32
	default:
		return 0, false
	}
	if f != math.Trunc(f) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
