// Package api implements the Public API Facade (C15): the chi-routed HTTP
// surface exposing authenticated, rate-limited, audited access to every
// broker operation. Grounded on the teacher's internal/app/httpapi auth
// flow (JWT bearer sessions, role claims) and nightowl's SessionManager
// bcrypt login, generalized to the broker's three-role RBAC matrix and a
// TOTP-backed 2FA step-up for critical operations.
package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/nexfreight/broker/internal/brokererr"
)

// Role is one of the three RBAC roles the broker recognizes.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// User is a command-center operator account. PasswordHash is bcrypt;
// TOTPSecret is base32, set only for accounts with 2FA enrolled.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
	TOTPSecret   string
}

// Claims is the JWT payload for a session token.
type Claims struct {
	UserID       string `json:"uid"`
	Role         Role   `json:"role"`
	StepUpVerified bool `json:"step_up_verified"`
	jwt.RegisteredClaims
}

// SessionManager issues and validates HS256 session tokens.
type SessionManager struct {
	secret   []byte
	issuer   string
	ttl      time.Duration
	refreshTTL time.Duration
}

// NewSessionManager constructs a SessionManager. ttl/refreshTTL default to
// 15 minutes and 7 days respectively, matching a short-lived access token
// plus a long-lived refresh token.
func NewSessionManager(secret []byte, issuer string, ttl, refreshTTL time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &SessionManager{secret: secret, issuer: issuer, ttl: ttl, refreshTTL: refreshTTL}
}

// Issue mints an access token for user. stepUpVerified marks the session as
// having passed 2FA for the current request chain (not persisted across
// refresh; critical-operation middleware re-checks it per request).
func (sm *SessionManager) Issue(user User, stepUpVerified bool) (string, time.Time, error) {
	return sm.sign(user, sm.ttl, stepUpVerified)
}

// IssueRefresh mints a long-lived refresh token. It carries the same user
// ID and role claims as an access token, with StepUpVerified always false.
func (sm *SessionManager) IssueRefresh(user User) (string, time.Time, error) {
	return sm.sign(user, sm.refreshTTL, false)
}

func (sm *SessionManager) sign(user User, ttl time.Duration, stepUpVerified bool) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := Claims{
		UserID:         user.ID,
		Role:           user.Role,
		StepUpVerified: stepUpVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sm.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(sm.secret)
	return signed, expiresAt, err
}

// Validate parses and verifies a bearer token, returning its claims.
func (sm *SessionManager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return sm.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, brokererr.ErrAuthenticationRequired
	}
	return claims, nil
}

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	return string(hash), err
}

// VerifyPassword reports whether plaintext matches the stored bcrypt hash.
func VerifyPassword(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
