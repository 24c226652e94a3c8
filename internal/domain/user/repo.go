package user

import (
	"context"

	"github.com/heartsync/api/pkg/pagination"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, page pagination.Params) ([]*User, int64, error)
	Update(ctx context.Context, u *User) error
}
