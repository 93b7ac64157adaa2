package store

import (
	"context"
	"errors"
	"time"

	"bazaar/internal/catalog"
	"bazaar/internal/refcode"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrConflict          = errors.New("resource already exists")
	QueryTimeoutDuration = time.Second * 5
)

type Storage struct {
	Users interface {
		RegisterWithBusiness(ctx context.Context, user *User, businessName string) error
		Create(ctx context.Context, user *User) error
		GetByID(ctx context.Context, id int64) (*User, error)
		GetByUsername(ctx context.Context, username string) (*User, error)
		ListByBusiness(ctx context.Context, businessID int64) ([]User, error)
		Update(ctx context.Context, user *User) error
		Delete(ctx context.Context, id, businessID int64) error
		SaveRefreshToken(ctx context.Context, userID int64, token string) error
		GetRefreshToken(ctx context.Context, userID int64) (string, error)
		DeleteRefreshToken(ctx context.Context, userID int64) error
	}
	Businesses interface {
		GetByID(ctx context.Context, id int64) (*Business, error)
	}
	Products interface {
		Create(ctx context.Context, p *Product) error
		GetByID(ctx context.Context, id int64) (*Product, error)
		ListPublic(ctx context.Context, f ProductFilter, limit, offset int) ([]Product, int, error)
		ListByBusiness(ctx context.Context, businessID int64, f ProductFilter, limit, offset int) ([]Product, int, error)
		Update(ctx context.Context, p *Product) error
		Approve(ctx context.Context, id, approverID int64) error
		Delete(ctx context.Context, id, businessID int64) error
		StatusCounts(ctx context.Context, businessID int64) (map[catalog.Status]int, error)
	}
	Chat interface {
		Create(ctx context.Context, entry *ChatEntry) error
		ListByUser(ctx context.Context, userID int64, limit, offset int) ([]ChatEntry, int, error)
	}
}

func NewStorage(db *pgxpool.Pool, ref *refcode.Encoder) Storage {
	return Storage{
		Users:      &UsersStore{db},
		Businesses: &BusinessesStore{db},
		Products:   &ProductsStore{db: db, ref: ref},
		Chat:       &ChatStore{db},
	}
}

// ProductFilter carries the query-string filters for product listings.
// Zero values mean "not filtered".
type ProductFilter struct {
	Status   catalog.Status
	Search   string
	Business string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}
