package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bazaar/internal/catalog"
	"bazaar/internal/refcode"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Status        catalog.Status  `json:"status"`
	BusinessID    int64           `json:"business"`
	BusinessName  string          `json:"business_name"`
	CreatedByID   *int64          `json:"created_by"`
	CreatedByName *string         `json:"created_by_name"`
	ApprovedByID  *int64          `json:"approved_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ApprovedAt    *time.Time      `json:"approved_at"`
}

type ProductsStore struct {
	db  *pgxpool.Pool
	ref *refcode.Encoder
}

// sortColumns whitelists the ?sort= values. A leading '-' flips direction,
// mirroring the ordering contract of the HTTP API.
var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"price":      "p.price",
	"name":       "p.name",
}

func orderClause(sort string) string {
	direction := "ASC"
	key := sort
	if strings.HasPrefix(sort, "-") {
		direction = "DESC"
		key = sort[1:]
	}
	column, ok := sortColumns[key]
	if !ok {
		return "p.created_at DESC"
	}
	return column + " " + direction
}

// Create inserts the product and stamps its public reference code, derived
// from the generated id.
func (s *ProductsStore) Create(ctx context.Context, p *Product) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	query := `
	  INSERT INTO products (name, description, price, status, business_id, created_by)
	  VALUES ($1, $2, $3, $4, $5, $6)
	  RETURNING id, created_at, updated_at
	`
	err = tx.QueryRow(
		ctx, query,
		p.Name, p.Description, p.Price, p.Status, p.BusinessID, p.CreatedByID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}

	p.Reference, err = s.ref.Encode(p.ID)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE products SET reference = $1 WHERE id = $2`, p.Reference, p.ID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

const productColumns = `
	  p.id, p.reference, p.name, p.description, p.price, p.status,
	  p.business_id, b.name, p.created_by, u.username, p.approved_by,
	  p.created_at, p.updated_at, p.approved_at
`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Reference, &p.Name, &p.Description, &p.Price, &p.Status,
		&p.BusinessID, &p.BusinessName, &p.CreatedByID, &p.CreatedByName, &p.ApprovedByID,
		&p.CreatedAt, &p.UpdatedAt, &p.ApprovedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *ProductsStore) GetByID(ctx context.Context, id int64) (*Product, error) {
	query := `
	  SELECT ` + productColumns + `
	  FROM products p
	  JOIN businesses b ON b.id = p.business_id
	  LEFT JOIN users u ON u.id = p.created_by
	  WHERE p.id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	return scanProduct(s.db.QueryRow(ctx, query, id))
}

// ListPublic is the storefront listing: approved products only, across all
// businesses. The status clause is fixed in SQL; callers cannot widen the
// window with query parameters.
func (s *ProductsStore) ListPublic(ctx context.Context, f ProductFilter, limit, offset int) ([]Product, int, error) {
	where := []string{fmt.Sprintf("p.status = '%s'", catalog.StatusApproved)}
	var args []any
	where, args = appendFilters(where, args, f, false)

	return s.list(ctx, where, args, f.Sort, limit, offset)
}

// ListByBusiness is the authenticated dashboard listing: all statuses, the
// caller's business only.
func (s *ProductsStore) ListByBusiness(ctx context.Context, businessID int64, f ProductFilter, limit, offset int) ([]Product, int, error) {
	var args []any
	args = append(args, businessID)
	where := []string{fmt.Sprintf("p.business_id = $%d", len(args))}
	where, args = appendFilters(where, args, f, true)

	return s.list(ctx, where, args, f.Sort, limit, offset)
}

func appendFilters(where []string, args []any, f ProductFilter, withStatus bool) ([]string, []any) {
	if withStatus && f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.description ILIKE $%d)", len(args), len(args)))
	}
	if f.Business != "" {
		args = append(args, "%"+f.Business+"%")
		where = append(where, fmt.Sprintf("b.name ILIKE $%d", len(args)))
	}
	if f.MinPrice != nil {
		args = append(args, *f.MinPrice)
		where = append(where, fmt.Sprintf("p.price >= $%d", len(args)))
	}
	if f.MaxPrice != nil {
		args = append(args, *f.MaxPrice)
		where = append(where, fmt.Sprintf("p.price <= $%d", len(args)))
	}
	return where, args
}

func (s *ProductsStore) list(ctx context.Context, where []string, args []any, sort string, limit, offset int) ([]Product, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	whereClause := strings.Join(where, " AND ")

	countQuery := `
	  SELECT COUNT(*)
	  FROM products p
	  JOIN businesses b ON b.id = p.business_id
	  WHERE ` + whereClause

	var total int
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := fmt.Sprintf(`
	  SELECT %s
	  FROM products p
	  JOIN businesses b ON b.id = p.business_id
	  LEFT JOIN users u ON u.id = p.created_by
	  WHERE %s
	  ORDER BY %s
	  LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, orderClause(sort), len(args)-1, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

func (s *ProductsStore) Update(ctx context.Context, p *Product) error {
	query := `
	  UPDATE products
	  SET name = $1, description = $2, price = $3, status = $4, updated_at = now()
	  WHERE id = $5 AND business_id = $6
	  RETURNING updated_at
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	err := s.db.QueryRow(
		ctx, query,
		p.Name, p.Description, p.Price, p.Status, p.ID, p.BusinessID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

// Approve flips a pending product to approved. The status guard is repeated
// in SQL so a concurrent transition cannot slip through between read and
// write.
func (s *ProductsStore) Approve(ctx context.Context, id, approverID int64) error {
	query := `
	  UPDATE products
	  SET status = $1, approved_by = $2, approved_at = now(), updated_at = now()
	  WHERE id = $3 AND status = $4
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := s.db.Exec(ctx, query, catalog.StatusApproved, approverID, id, catalog.StatusPendingApproval)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return catalog.ErrInvalidTransition
	}
	return nil
}

func (s *ProductsStore) Delete(ctx context.Context, id, businessID int64) error {
	query := `DELETE FROM products WHERE id = $1 AND business_id = $2`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	result, err := s.db.Exec(ctx, query, id, businessID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// StatusCounts returns per-status totals for a business's dashboard. Draft
// and pending_approval stay distinct here; any grouping is up to the view.
func (s *ProductsStore) StatusCounts(ctx context.Context, businessID int64) (map[catalog.Status]int, error) {
	query := `
	  SELECT status, COUNT(*)
	  FROM products
	  WHERE business_id = $1
	  GROUP BY status
	`

	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := s.db.Query(ctx, query, businessID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[catalog.Status]int)
	for _, status := range catalog.Statuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var status catalog.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
