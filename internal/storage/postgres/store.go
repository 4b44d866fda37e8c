// Package postgres stores products in a relational table created by the goose
// migrations under migrations/.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const selectColumns = `product_id, name, category, price, original_price, unit, image_url,
	stock, origin, description, created_at, updated_at, is_active, is_organic,
	is_best_seller, free_shipping, user_id`

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Name() string {
	return "postgres"
}

// Add relies on the primary key for atomic duplicate detection.
func (s *Store) Add(ctx context.Context, row storage.Row) error {
	query := `
		INSERT INTO products (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	id := row.String(domain.FieldProductID)
	_, err := s.db.ExecContext(
		ctx,
		query,
		id,
		row.String(domain.FieldName),
		row.String(domain.FieldCategory),
		row.Float(domain.FieldPrice),
		row.Float(domain.FieldOriginalPrice),
		row.String(domain.FieldUnit),
		row.String(domain.FieldImageURL),
		row.Int(domain.FieldStock),
		row.String(domain.FieldOrigin),
		row.String(domain.FieldDescription),
		dateOrToday(row.Time(domain.FieldCreatedAt)),
		dateOrToday(row.Time(domain.FieldUpdatedAt)),
		row.Bool(domain.FieldIsActive),
		row.NullableBool(domain.FieldIsOrganic),
		row.NullableBool(domain.FieldIsBestSeller),
		row.Bool(domain.FieldFreeShipping),
		nullString(row.String(domain.FieldUserID)),
	)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrDuplicateProductID
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, productID string) (storage.Row, error) {
	query := `SELECT ` + selectColumns + ` FROM products WHERE product_id = $1`

	row, err := scanRow(s.db.QueryRowContext(ctx, query, productID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	return row, nil
}

func (s *Store) GetAll(ctx context.Context) ([]storage.Row, error) {
	return s.list(ctx, `WHERE is_active ORDER BY created_at, product_id`)
}

func (s *Store) GetActive(ctx context.Context) ([]storage.Row, error) {
	return s.list(ctx, `WHERE is_active ORDER BY created_at, product_id`)
}

func (s *Store) GetByCategory(ctx context.Context, category string) ([]storage.Row, error) {
	return s.list(ctx, `WHERE is_active AND category = $1 ORDER BY created_at, product_id`, category)
}

func (s *Store) GetByUser(ctx context.Context, userID string) ([]storage.Row, error) {
	return s.list(ctx, `WHERE is_active AND user_id = $1 ORDER BY created_at, product_id`, userID)
}

func (s *Store) SetInactive(ctx context.Context, productID string, updatedAt time.Time) error {
	return s.exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = $2 WHERE product_id = $1`,
		productID, domain.DateOf(updatedAt))
}

func (s *Store) UpdateImageURL(ctx context.Context, productID, imageURL string, updatedAt time.Time) error {
	return s.exec(ctx, `UPDATE products SET image_url = $2, updated_at = $3 WHERE product_id = $1`,
		productID, imageURL, domain.DateOf(updatedAt))
}

func (s *Store) Delete(ctx context.Context, productID string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE product_id = $1`, productID)
	if err != nil {
		return false, fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE starts_with(product_id, $1)`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete products: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return int(rowsAffected), nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *Store) list(ctx context.Context, clause string, args ...interface{}) ([]storage.Row, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM products `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	out := []storage.Row{}
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, row)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRow(sc scanner) (storage.Row, error) {
	var (
		id, name, category, unit, imageURL, origin, description string
		price                                                   float64
		originalPrice                                           sql.NullFloat64
		stock                                                   int
		createdAt, updatedAt                                    time.Time
		isActive, freeShipping                                  bool
		isOrganic, isBestSeller                                 sql.NullBool
		userID                                                  sql.NullString
	)

	err := sc.Scan(
		&id, &name, &category, &price, &originalPrice, &unit, &imageURL,
		&stock, &origin, &description, &createdAt, &updatedAt, &isActive,
		&isOrganic, &isBestSeller, &freeShipping, &userID,
	)
	if err != nil {
		return nil, err
	}

	row := storage.Row{
		domain.FieldProductID:     id,
		domain.FieldName:          name,
		domain.FieldCategory:      category,
		domain.FieldPrice:         price,
		domain.FieldOriginalPrice: nil,
		domain.FieldUnit:          unit,
		domain.FieldImageURL:      imageURL,
		domain.FieldStock:         stock,
		domain.FieldOrigin:        origin,
		domain.FieldDescription:   description,
		domain.FieldCreatedAt:     createdAt,
		domain.FieldUpdatedAt:     updatedAt,
		domain.FieldIsActive:      isActive,
		domain.FieldIsOrganic:     nil,
		domain.FieldIsBestSeller:  nil,
		domain.FieldFreeShipping:  freeShipping,
		domain.FieldUserID:        nil,
	}
	if originalPrice.Valid {
		row[domain.FieldOriginalPrice] = originalPrice.Float64
	}
	if isOrganic.Valid {
		row[domain.FieldIsOrganic] = isOrganic.Bool
	}
	if isBestSeller.Valid {
		row[domain.FieldIsBestSeller] = isBestSeller.Bool
	}
	if userID.Valid {
		row[domain.FieldUserID] = userID.String
	}
	return row, nil
}

func dateOrToday(t time.Time) time.Time {
	if t.IsZero() {
		return domain.Today()
	}
	return domain.DateOf(t)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
