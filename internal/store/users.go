package store

import (
	"context"
	"errors"
	"time"

	"bazaar/internal/rbac"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrDuplicateUsername = errors.New("a user with that username already exists")
	ErrDuplicateEmail    = errors.New("a user with that email already exists in this business")
	ErrLastBusinessAdmin = errors.New("the business admin cannot be removed")
)

type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Password        password  `json:"-"` // Hide password
	Role            rbac.Role `json:"role"`
	IsBusinessAdmin bool      `json:"is_business_admin"`
	Business        *Business `json:"business,omitempty"`
	RefreshToken    string    `json:"-"` // Sensitive data
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BusinessID is a nil-safe accessor for the owning business.
func (u *User) BusinessID() int64 {
	if u.Business == nil {
		return 0
	}
	return u.Business.ID
}

// Password struct to store plain text and hash
type password struct {
	text *string `json:"-"` // Hide plaintext password
	hash []byte  `json:"-"` // Hide hashed password
}

func (p *password) Set(text string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(text), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	p.text = &text
	p.hash = hash

	return nil
}

func (p *password) Compare(text string) error {
	return bcrypt.CompareHashAndPassword(p.hash, []byte(text))
}

type UsersStore struct {
	db *pgxpool.Pool
}

// RegisterWithBusiness creates the business and its bootstrap admin user in
// one transaction. The new user comes out with role=admin and
// is_business_admin=true.
func (s *UsersStore) RegisterWithBusiness(ctx context.Context, user *User, businessName string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	business := &Business{Name: businessName}
	query := `
	  INSERT INTO businesses (name) VALUES ($1) RETURNING id, created_at
	`
	err = tx.QueryRow(ctx, query, businessName).Scan(&business.ID, &business.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}

	user.Role = rbac.RoleAdmin
	user.IsBusinessAdmin = true
	user.Business = business

	query = `
	  INSERT INTO users (username, email, password, role, is_business_admin, business_id)
	  VALUES ($1, $2, $3, $4, $5, $6)
	  RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(
		ctx, query,
		user.Username, user.Email, user.Password.hash, user.Role, user.IsBusinessAdmin, business.ID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return err
	}

	return tx.Commit(ctx)
}

// Create inserts an invited member into an existing business.
func (s *UsersStore) Create(ctx context.Context, user *User) error {
	query := `
	  INSERT INTO users (username, email, password, role, is_business_admin, business_id)
	  VALUES ($1, $2, $3, $4, false, $5)
	  RETURNING id, created_at, updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(
		ctx, query,
		user.Username, user.Email, user.Password.hash, user.Role, user.BusinessID(),
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

const userColumns = `
	  u.id, u.username, u.email, u.password, u.role, u.is_business_admin,
	  u.created_at, u.updated_at,
	  b.id, b.name, b.created_at
`

func scanUser(row pgx.Row) (*User, error) {
	var user User
	var business Business
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.Password.hash,
		&user.Role, &user.IsBusinessAdmin, &user.CreatedAt, &user.UpdatedAt,
		&business.ID, &business.Name, &business.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user.Business = &business
	return &user, nil
}

func (s *UsersStore) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
	  SELECT ` + userColumns + `
	  FROM users u
	  JOIN businesses b ON b.id = u.business_id
	  WHERE u.id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanUser(s.db.QueryRow(ctx, query, id))
}

func (s *UsersStore) GetByUsername(ctx context.Context, username string) (*User, error) {
	query := `
	  SELECT ` + userColumns + `
	  FROM users u
	  JOIN businesses b ON b.id = u.business_id
	  WHERE u.username = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanUser(s.db.QueryRow(ctx, query, username))
}

func (s *UsersStore) ListByBusiness(ctx context.Context, businessID int64) ([]User, error) {
	query := `
	  SELECT ` + userColumns + `
	  FROM users u
	  JOIN businesses b ON b.id = u.business_id
	  WHERE u.business_id = $1
	  ORDER BY u.created_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (s *UsersStore) Update(ctx context.Context, user *User) error {
	query := `
	  UPDATE users
	  SET username = $1, email = $2, role = $3, password = $4, updated_at = now()
	  WHERE id = $5 AND business_id = $6
	  RETURNING updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(
		ctx, query,
		user.Username, user.Email, user.Role, user.Password.hash, user.ID, user.BusinessID(),
	).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}

// Delete removes a user scoped to its business. Business admins are refused:
// every business keeps at least its bootstrap admin.
func (s *UsersStore) Delete(ctx context.Context, id, businessID int64) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var isBusinessAdmin bool
	err := s.db.QueryRow(ctx,
		`SELECT is_business_admin FROM users WHERE id = $1 AND business_id = $2`,
		id, businessID,
	).Scan(&isBusinessAdmin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if isBusinessAdmin {
		return ErrLastBusinessAdmin
	}

	result, err := s.db.Exec(ctx,
		`DELETE FROM users WHERE id = $1 AND business_id = $2 AND is_business_admin = false`,
		id, businessID,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *UsersStore) SaveRefreshToken(ctx context.Context, userID int64, token string) error {
	query := `UPDATE users SET refresh_token = $1 WHERE id = $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, token, userID)
	return err
}

func (s *UsersStore) GetRefreshToken(ctx context.Context, userID int64) (string, error) {
	query := `SELECT COALESCE(refresh_token, '') FROM users WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var token string
	err := s.db.QueryRow(ctx, query, userID).Scan(&token)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (s *UsersStore) DeleteRefreshToken(ctx context.Context, userID int64) error {
	query := `UPDATE users SET refresh_token = NULL WHERE id = $1`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	_, err := s.db.Exec(ctx, query, userID)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
