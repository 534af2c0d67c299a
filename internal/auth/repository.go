package auth

import (
	"context"
	"errors"

	"menucms/internal/docstore"
)

var ErrEmailTaken = errors.New("email already exists")

// UserRepository defines the data-access contract.
// Service depends ONLY on this interface.
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	List(ctx context.Context) ([]User, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, id string, fields docstore.Doc) error
	Delete(ctx context.Context, user *User) error
}
