// Package cassandra stores products in a single wide-column table keyed by
// product_id. Secondary filters rely on indexes plus ALLOW FILTERING.
package cassandra

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"

	"github.com/gocql/gocql"
)

// SessionProvider hands out the shared session, connecting on demand.
type SessionProvider interface {
	Session(ctx context.Context) (*gocql.Session, error)
	Close() error
}

const selectColumns = `product_id, name, category, price, original_price, unit, image_url,
	in_stock, stock, origin, description, created_at, updated_at, is_active,
	is_organic, is_best_seller, free_shipping, user_id`

const (
	insertQuery = `INSERT INTO products (` + selectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectByIDQuery       = `SELECT ` + selectColumns + ` FROM products WHERE product_id = ?`
	selectActiveQuery     = `SELECT ` + selectColumns + ` FROM products WHERE is_active = true`
	selectByCategoryQuery = `SELECT ` + selectColumns + ` FROM products WHERE category = ? AND is_active = true ALLOW FILTERING`
	selectByUserQuery     = `SELECT ` + selectColumns + ` FROM products WHERE user_id = ? AND is_active = true ALLOW FILTERING`
	selectIDsQuery        = `SELECT product_id FROM products`
	deactivateQuery       = `UPDATE products SET is_active = false, updated_at = ? WHERE product_id = ?`
	updateImageQuery      = `UPDATE products SET image_url = ?, updated_at = ? WHERE product_id = ?`
	deleteQuery           = `DELETE FROM products WHERE product_id = ?`
)

// Options tunes write behaviour.
type Options struct {
	// ConditionalInsert makes Add a lightweight transaction
	// (INSERT ... IF NOT EXISTS) instead of read-then-write.
	ConditionalInsert bool
}

type Store struct {
	sessions SessionProvider
	opts     Options
}

func New(sessions SessionProvider, opts Options) *Store {
	return &Store{sessions: sessions, opts: opts}
}

func (s *Store) Name() string {
	return "cassandra"
}

// Add writes row. Without ConditionalInsert the duplicate check is a separate
// read, so two concurrent Adds of one id can both succeed and the later write
// wins.
func (s *Store) Add(ctx context.Context, row storage.Row) error {
	session, err := s.sessions.Session(ctx)
	if err != nil {
		return err
	}

	id := row.String(domain.FieldProductID)
	values := insertValues(row)

	if s.opts.ConditionalInsert {
		applied, err := session.Query(insertQuery+` IF NOT EXISTS`, values...).
			WithContext(ctx).
			MapScanCAS(map[string]interface{}{})
		if err != nil {
			return fmt.Errorf("failed to insert product %s: %w", id, err)
		}
		if !applied {
			return domain.ErrDuplicateProductID
		}
		return nil
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing != nil {
		return domain.ErrDuplicateProductID
	}

	if err := session.Query(insertQuery, values...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to insert product %s: %w", id, err)
	}
	return nil
}

func (s *Store) GetByID(ctx context.Context, productID string) (storage.Row, error) {
	session, err := s.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}

	var rec record
	err = session.Query(selectByIDQuery, productID).WithContext(ctx).Scan(rec.dest()...)
	if errors.Is(err, gocql.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read product %s: %w", productID, err)
	}
	return rec.row(), nil
}

func (s *Store) GetAll(ctx context.Context) ([]storage.Row, error) {
	return s.list(ctx, selectActiveQuery)
}

func (s *Store) GetActive(ctx context.Context) ([]storage.Row, error) {
	return s.list(ctx, selectActiveQuery)
}

func (s *Store) GetByCategory(ctx context.Context, category string) ([]storage.Row, error) {
	return s.list(ctx, selectByCategoryQuery, category)
}

func (s *Store) GetByUser(ctx context.Context, userID string) ([]storage.Row, error) {
	return s.list(ctx, selectByUserQuery, userID)
}

// SetInactive checks existence first; a CQL UPDATE on a missing key would
// otherwise create a partial row.
func (s *Store) SetInactive(ctx context.Context, productID string, updatedAt time.Time) error {
	return s.updateExisting(ctx, productID, deactivateQuery, domain.DateOf(updatedAt), productID)
}

func (s *Store) UpdateImageURL(ctx context.Context, productID, imageURL string, updatedAt time.Time) error {
	return s.updateExisting(ctx, productID, updateImageQuery, imageURL, domain.DateOf(updatedAt), productID)
}

func (s *Store) Delete(ctx context.Context, productID string) (bool, error) {
	existing, err := s.GetByID(ctx, productID)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	session, err := s.sessions.Session(ctx)
	if err != nil {
		return false, err
	}
	if err := session.Query(deleteQuery, productID).WithContext(ctx).Exec(); err != nil {
		return false, fmt.Errorf("failed to delete product %s: %w", productID, err)
	}
	return true, nil
}

func (s *Store) DeleteByPrefix(ctx context.Context, prefix string) (int, error) {
	session, err := s.sessions.Session(ctx)
	if err != nil {
		return 0, err
	}

	var ids []string
	iter := session.Query(selectIDsQuery).WithContext(ctx).Iter()
	var id string
	for iter.Scan(&id) {
		if strings.HasPrefix(id, prefix) {
			ids = append(ids, id)
		}
	}
	if err := iter.Close(); err != nil {
		return 0, fmt.Errorf("failed to list product ids: %w", err)
	}

	for _, id := range ids {
		if err := session.Query(deleteQuery, id).WithContext(ctx).Exec(); err != nil {
			return 0, fmt.Errorf("failed to delete product %s: %w", id, err)
		}
	}
	return len(ids), nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.sessions.Session(ctx)
	return err
}

func (s *Store) Close() error {
	return s.sessions.Close()
}

func (s *Store) list(ctx context.Context, stmt string, args ...interface{}) ([]storage.Row, error) {
	session, err := s.sessions.Session(ctx)
	if err != nil {
		return nil, err
	}

	iter := session.Query(stmt, args...).WithContext(ctx).Iter()
	rows := []storage.Row{}
	for {
		var rec record
		if !iter.Scan(rec.dest()...) {
			break
		}
		rows = append(rows, rec.row())
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return rows, nil
}

func (s *Store) updateExisting(ctx context.Context, productID, stmt string, args ...interface{}) error {
	existing, err := s.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrProductNotFound
	}

	session, err := s.sessions.Session(ctx)
	if err != nil {
		return err
	}
	if err := session.Query(stmt, args...).WithContext(ctx).Exec(); err != nil {
		return fmt.Errorf("failed to update product %s: %w", productID, err)
	}
	return nil
}
