// Package memory is a process-local tabular product store. It keeps a fixed
// column schema and marks missing numeric cells as NaN and missing date cells
// as "NaT", the same way a dataframe would.
package memory

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"agroweb-products/internal/domain"
	"agroweb-products/internal/storage"
)

// NaT marks a missing date cell.
const NaT = "NaT"

type columnKind int

const (
	textColumn columnKind = iota
	floatColumn
	boolColumn
	dateColumn
)

var columns = []struct {
	name string
	kind columnKind
}{
	{domain.FieldProductID, textColumn},
	{domain.FieldName, textColumn},
	{domain.FieldCategory, textColumn},
	{domain.FieldPrice, floatColumn},
	{domain.FieldOriginalPrice, floatColumn},
	{domain.FieldUnit, textColumn},
	{domain.FieldImageURL, textColumn},
	{domain.FieldInStock, boolColumn},
	{domain.FieldStock, floatColumn},
	{domain.FieldOrigin, textColumn},
	{domain.FieldDescription, textColumn},
	{domain.FieldCreatedAt, dateColumn},
	{domain.FieldUpdatedAt, dateColumn},
	{domain.FieldIsActive, boolColumn},
	{domain.FieldIsOrganic, boolColumn},
	{domain.FieldIsBestSeller, boolColumn},
	{domain.FieldFreeShipping, boolColumn},
	{domain.FieldUserID, textColumn},
}

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	rows  []storage.Row
	index map[string]int
}

// New returns an empty store.
func New() *Store {
	return &Store{index: make(map[string]int)}
}

func (s *Store) Name() string {
	return "memory"
}

// Add appends row. Cells outside the schema are dropped.
func (s *Store) Add(_ context.Context, row storage.Row) error {
	id := strings.TrimSpace(row.String(domain.FieldProductID))
	if id == "" {
		return fmt.Errorf("row has no %s", domain.FieldProductID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.index[id]; exists {
		return domain.ErrDuplicateProductID
	}

	stored := normalize(row)
	stored[domain.FieldProductID] = id
	s.index[id] = len(s.rows)
	s.rows = append(s.rows, stored)
	return nil
}

func (s *Store) GetByID(_ context.Context, productID string) (storage.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[productID]
	if !ok {
		return nil, nil
	}
	return s.rows[i].Clone(), nil
}

func (s *Store) GetAll(_ context.Context) ([]storage.Row, error) {
	return s.selectRows(func(storage.Row) bool { return true }), nil
}

func (s *Store) GetActive(_ context.Context) ([]storage.Row, error) {
	return s.selectRows(func(storage.Row) bool { return true }), nil
}

func (s *Store) GetByCategory(_ context.Context, category string) ([]storage.Row, error) {
	return s.selectRows(func(r storage.Row) bool {
		return r.String(domain.FieldCategory) == category
	}), nil
}

func (s *Store) GetByUser(_ context.Context, userID string) ([]storage.Row, error) {
	return s.selectRows(func(r storage.Row) bool {
		return r.String(domain.FieldUserID) == userID
	}), nil
}

func (s *Store) SetInactive(_ context.Context, productID string, updatedAt time.Time) error {
	return s.update(productID, func(r storage.Row) {
		r[domain.FieldIsActive] = false
		r[domain.FieldUpdatedAt] = updatedAt
	})
}

func (s *Store) UpdateImageURL(_ context.Context, productID, imageURL string, updatedAt time.Time) error {
	return s.update(productID, func(r storage.Row) {
		r[domain.FieldImageURL] = imageURL
		r[domain.FieldUpdatedAt] = updatedAt
	})
}

func (s *Store) Delete(_ context.Context, productID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[productID]
	if !ok {
		return false, nil
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	s.reindex()
	return true, nil
}

func (s *Store) DeleteByPrefix(_ context.Context, prefix string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rows[:0]
	removed := 0
	for _, r := range s.rows {
		if strings.HasPrefix(r.String(domain.FieldProductID), prefix) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	s.rows = kept
	s.reindex()
	return removed, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of stored rows, active or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// selectRows returns copies of the active rows that match keep, in insertion
// order.
func (s *Store) selectRows(keep func(storage.Row) bool) []storage.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]storage.Row, 0, len(s.rows))
	for _, r := range s.rows {
		if r[domain.FieldIsActive] != true || !keep(r) {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}

func (s *Store) update(productID string, apply func(storage.Row)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	apply(s.rows[i])
	return nil
}

func (s *Store) reindex() {
	s.index = make(map[string]int, len(s.rows))
	for i, r := range s.rows {
		s.index[r.String(domain.FieldProductID)] = i
	}
}

// normalize projects row onto the column schema.
func normalize(row storage.Row) storage.Row {
	out := make(storage.Row, len(columns))
	for _, c := range columns {
		v := row[c.name]
		switch c.kind {
		case floatColumn:
			out[c.name] = toFloat(v)
		case dateColumn:
			out[c.name] = toDate(v)
		default:
			out[c.name] = v
		}
	}
	return out
}

func toFloat(v any) any {
	switch n := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case *float64:
		if n == nil {
			return math.NaN()
		}
		return *n
	default:
		return v
	}
}

func toDate(v any) any {
	switch d := v.(type) {
	case nil:
		return NaT
	case time.Time:
		if d.IsZero() {
			return NaT
		}
		return domain.DateOf(d)
	default:
		return v
	}
}
