package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const CookieName = "adminAuth"

// ContextAdminID is the request context key holding the signed-in admin id.
const ContextAdminID = "admin_id"

var (
	ErrBadCredentials = errors.New("invalid username or password")
	ErrInvalidSession = errors.New("invalid session")
)

type Claims struct {
	AdminID string `json:"admin_id"`
	jwt.RegisteredClaims
}

// Sessions checks the single admin credential pair and issues signed
// session tokens for the admin cookie.
type Sessions struct {
	username string
	password string
	adminID  string
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewSessions(username, password, adminID, secret string, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{
		username: username,
		password: password,
		adminID:  adminID,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *Sessions) TTL() time.Duration { return s.ttl }

func (s *Sessions) Login(username, password string) (string, error) {
	if s.username == "" || s.password == "" {
		return "", ErrBadCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) == 1
	if !userOK || !passOK {
		return "", ErrBadCredentials
	}
	return s.issue()
}

func (s *Sessions) issue() (string, error) {
	now := s.now()
	claims := Claims{
		AdminID: s.adminID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Sessions) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidSession
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, ErrInvalidSession
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	return claims, nil
}
