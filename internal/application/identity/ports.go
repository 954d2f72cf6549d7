package identity

import (
	"context"
	"time"

	"github.com/baechuer/campus-coord/internal/domain"
)

type Clock interface {
	Now() time.Time
}

// UserStore persists accounts. CreateUser maps a duplicate email to
// ErrEmailAlreadyExists; GetUserByEmail returns ErrUserNotFound.
type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	CompareDummy(password string)
}

type TokenIssuer interface {
	Issue(p domain.Principal) (string, error)
	Refresh(token string) (string, error)
}
