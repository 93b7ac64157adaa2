package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Business is the tenant boundary. It owns users and products and is created
// implicitly by registration.
type Business struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type BusinessesStore struct {
	db *pgxpool.Pool
}

func (s *BusinessesStore) GetByID(ctx context.Context, id int64) (*Business, error) {
	query := `SELECT id, name, created_at FROM businesses WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var business Business
	err := s.db.QueryRow(ctx, query, id).Scan(&business.ID, &business.Name, &business.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &business, nil
}
