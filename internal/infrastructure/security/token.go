package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/baechuer/campus-coord/internal/domain"
)

// TokenService issues and verifies HS256 bearer tokens. Verification never
// touches a store: it depends only on the token, the key and the clock.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	grace  time.Duration
	now    func() time.Time
}

type TokenOption func(*TokenService)

// WithRefreshGrace lets Refresh accept tokens that expired at most d ago.
func WithRefreshGrace(d time.Duration) TokenOption {
	return func(s *TokenService) {
		if d > 0 {
			s.grace = d
		}
	}
}

func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(secret []byte, issuer string, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	s := &TokenService{
		secret: secret,
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

func (s *TokenService) TTL() time.Duration { return s.ttl }

func (s *TokenService) Issue(p domain.Principal) (string, error) {
	if p.SubjectID == "" || !p.Role.Valid() {
		return "", domain.ErrTokenSignFailed(errors.New("principal needs a subject and a valid role"))
	}
	now := s.now()
	c := claims{
		UserID: p.SubjectID,
		Email:  p.Email,
		Role:   p.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   p.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", domain.ErrTokenSignFailed(err)
	}
	return signed, nil
}

func (s *TokenService) Verify(token string) (domain.Principal, error) {
	return s.verify(token, 0)
}

// Refresh re-issues the same identity with a fresh window.
func (s *TokenService) Refresh(token string) (string, error) {
	p, err := s.verify(token, s.grace)
	if err != nil {
		return "", err
	}
	return s.Issue(p)
}

func (s *TokenService) verify(token string, leeway time.Duration) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrTokenMissing()
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	if leeway > 0 {
		opts = append(opts, jwt.WithLeeway(leeway))
	}

	// signature is checked before claims, so a tampered expired token is malformed
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ErrTokenExpired()
		}
		return domain.Principal{}, domain.ErrTokenMalformed()
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid || c.UserID == "" {
		return domain.Principal{}, domain.ErrTokenMalformed()
	}
	role, err := domain.ParseRole(c.Role)
	if err != nil {
		return domain.Principal{}, domain.ErrTokenMalformed()
	}

	return domain.Principal{SubjectID: c.UserID, Email: c.Email, Role: role}, nil
}
