package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/baechuer/campus-coord/internal/domain"
	"github.com/baechuer/campus-coord/internal/logger"
)

type Service struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	clock  Clock

	allowPrivilegedSignup bool
}

func New(users UserStore, hasher PasswordHasher, tokens TokenIssuer, clock Clock, allowPrivilegedSignup bool) *Service {
	return &Service{
		users:                 users,
		hasher:                hasher,
		tokens:                tokens,
		clock:                 clock,
		allowPrivilegedSignup: allowPrivilegedSignup,
	}
}

type RegisterCmd struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	User  *domain.User
	Token string
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs the caller in. Self-signup as
// organizer or admin is refused unless explicitly enabled.
func (s *Service) Register(ctx context.Context, cmd RegisterCmd) (AuthResult, error) {
	email := NormalizeEmail(cmd.Email)
	name := strings.TrimSpace(cmd.Name)
	if name == "" {
		return AuthResult{}, domain.ErrMissingField("name")
	}
	if email == "" {
		return AuthResult{}, domain.ErrMissingField("email")
	}
	if cmd.Password == "" {
		return AuthResult{}, domain.ErrMissingField("password")
	}

	role := domain.RoleStudent
	if strings.TrimSpace(cmd.Role) != "" {
		r, err := domain.ParseRole(cmd.Role)
		if err != nil {
			return AuthResult{}, err
		}
		role = r
	}
	if role != domain.RoleStudent && !s.allowPrivilegedSignup {
		return AuthResult{}, domain.ErrForbidden("self-registration is limited to the student role")
	}

	hash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return AuthResult{}, err
	}

	u := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return AuthResult{}, err
	}

	tok, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return AuthResult{}, err
	}

	l := logger.FromContext(ctx, "identity")
	l.Info().Str("user_id", u.ID).Str("role", role.String()).Msg("user registered")
	return AuthResult{User: u, Token: tok}, nil
}

// Login never reveals whether the email exists.
func (s *Service) Login(ctx context.Context, email, password string) (AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return AuthResult{}, domain.ErrInvalidCredentials()
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.Is(err, "user_not_found") {
			s.hasher.CompareDummy(password)
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		if domain.Is(err, "invalid_credentials") {
			return AuthResult{}, domain.ErrInvalidCredentials()
		}
		return AuthResult{}, err
	}

	tok, err := s.tokens.Issue(u.Principal())
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: u, Token: tok}, nil
}

// Refresh re-issues a token from a still-valid one; no store lookup.
func (s *Service) Refresh(ctx context.Context, token string) (string, error) {
	return s.tokens.Refresh(strings.TrimSpace(token))
}
