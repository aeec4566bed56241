package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the minimum number of characters (runes) in a password.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// dummyPassword is hashed once so logins for unknown emails pay the same
// bcrypt cost as logins with a wrong password.
const dummyPassword = "timing-equalizer-not-a-password"

// PasswordManager hashes and verifies passwords with a bcrypt cost fixed at
// construction. It is safe for concurrent use.
type PasswordManager struct {
	cost      int
	dummyHash []byte
}

// NewPasswordManager creates a PasswordManager. A cost <= 0 selects
// bcrypt.DefaultCost.
func NewPasswordManager(cost int) (*PasswordManager, error) {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte(dummyPassword), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}

	return &PasswordManager{cost: cost, dummyHash: dummy}, nil
}

// Cost returns the bcrypt cost used for new hashes.
func (m *PasswordManager) Cost() int {
	return m.cost
}

// Hash returns a salted bcrypt hash of plaintext.
//
// The empty string is hashed like any other value; callers are expected to
// run ValidateStrength first. Inputs longer than MaxPasswordBytes are
// reported as WeakPassword.
func (m *PasswordManager) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), m.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", &Error{Kind: WeakPassword, Reason: tooLongMessage, Err: err}
	}
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches hash. Comparison is constant time
// inside bcrypt. An empty hash is compared against an internal dummy hash and
// always yields false, so "no such user" costs the same as a mismatch.
func (m *PasswordManager) Verify(plaintext, hash string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(m.dummyHash, []byte(plaintext))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

var tooLongMessage = fmt.Sprintf("Password must be at most %d bytes long", MaxPasswordBytes)

type strengthRule struct {
	message string
	ok      func(runes []rune) bool
}

// Rule order decides which message is reported when several rules fail.
var strengthRules = []strengthRule{
	{
		message: fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength),
		ok:      func(runes []rune) bool { return len(runes) >= MinPasswordLength },
	},
	{
		message: "Password must contain at least one uppercase letter",
		ok:      anyRune(unicode.IsUpper),
	},
	{
		message: "Password must contain at least one lowercase letter",
		ok:      anyRune(unicode.IsLower),
	},
	{
		message: "Password must contain at least one number",
		ok:      anyRune(unicode.IsDigit),
	},
	{
		message: "Password must contain at least one special character",
		ok:      anyRune(isSpecial),
	},
	{
		message: tooLongMessage,
		ok:      func(runes []rune) bool { return len(string(runes)) <= MaxPasswordBytes },
	},
}

// ValidateStrength checks plaintext against the strength rules and returns
// the first violated rule's message, or (true, "") if all pass.
func (m *PasswordManager) ValidateStrength(plaintext string) (bool, string) {
	return ValidateStrength(plaintext)
}

// CheckStrength is ValidateStrength in error form. Failures are WeakPassword.
func (m *PasswordManager) CheckStrength(plaintext string) error {
	if ok, reason := ValidateStrength(plaintext); !ok {
		return &Error{Kind: WeakPassword, Reason: reason}
	}
	return nil
}

// ValidateStrength is the stateless form of PasswordManager.ValidateStrength.
func ValidateStrength(plaintext string) (bool, string) {
	runes := []rune(plaintext)
	for _, rule := range strengthRules {
		if !rule.ok(runes) {
			return false, rule.message
		}
	}
	return true, ""
}

func anyRune(pred func(rune) bool) func([]rune) bool {
	return func(runes []rune) bool {
		for _, r := range runes {
			if pred(r) {
				return true
			}
		}
		return false
	}
}

func isSpecial(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
}
