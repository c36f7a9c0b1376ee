package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/standingcat/event-api/internal/apperr"
)

// TokenVerifier is the read side of the token service used by the gate.
type TokenVerifier interface {
	SubjectOf(token string) (string, error)
	Verify(token, username string) bool
}

type Claims struct {
	jwt.RegisteredClaims
}

// JWTService issues and checks HS256 bearer tokens bound to a username.
type JWTService struct {
	Secret []byte
	TTL    time.Duration
	// Now is the clock used for issuing and expiry checks. Defaults to time.Now.
	Now func() time.Time
}

func NewJWTService(secret string, ttl time.Duration) *JWTService {
	return &JWTService{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

func (s *JWTService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Issue signs a token for username and returns it with its expiry.
func (s *JWTService) Issue(username string) (string, time.Time, error) {
	if username == "" {
		return "", time.Time{}, errors.New("issue token: empty subject")
	}
	now := s.now()
	expires := now.Add(s.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify reports whether token is well formed, correctly signed, unexpired
// and issued to username. It never returns an error.
func (s *JWTService) Verify(token, username string) bool {
	if token == "" || username == "" {
		return false
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, s.key,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithSubject(username),
		jwt.WithTimeFunc(s.now),
	)
	return err == nil && parsed.Valid
}

// SubjectOf reads the subject without checking signature or expiry. The
// result must be confirmed with Verify before it is trusted.
func (s *JWTService) SubjectOf(token string) (string, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", apperr.ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", apperr.ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) {
	return s.Secret, nil
}
