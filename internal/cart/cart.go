package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/beautyhaven/storefront/internal/logging"
	"github.com/beautyhaven/storefront/internal/models"
)

// StorageKey is the single blob-store key the serialized cart lives under.
const StorageKey = "bh_cart"

var ErrProductNotFound = errors.New("product not found")

// BlobStore is the key-value persistence port the cart is serialized
// through. Get reports ok=false for a missing key.
type BlobStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}

// Catalog resolves a product id to its current catalog entry.
type Catalog interface {
	Lookup(id int) (models.Product, bool)
}

// Service owns the session cart: an insertion-ordered list of lines with
// at most one line per product. Every mutation is written back to the
// blob store before returning.
type Service struct {
	mu    sync.Mutex
	store BlobStore
	lines []models.CartLine
}

func NewService(store BlobStore) *Service {
	return &Service{store: store}
}

// Restore loads the persisted cart. Missing or malformed data yields an
// empty cart, never an error: corrupted state must not break startup.
func (s *Service) Restore(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil

	value, ok, err := s.store.Get(ctx, StorageKey)
	if err != nil {
		logging.FromContext(ctx).Warn("cart restore failed, starting empty", "error", err)
		return
	}
	if !ok || value == "" {
		return
	}

	var saved []models.CartLine
	if err := json.Unmarshal([]byte(value), &saved); err != nil {
		logging.FromContext(ctx).Warn("persisted cart is corrupt, starting empty", "error", err)
		return
	}

	for _, line := range saved {
		if line.Quantity < 1 || line.UnitPrice < 0 {
			continue
		}
		s.lines = append(s.lines, line)
	}
}

// AddItem merges one unit of the product into the cart, snapshotting
// name and price from the catalog at add time.
func (s *Service) AddItem(ctx context.Context, productID int, catalog Catalog) error {
	product, ok := catalog.Lookup(productID)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrProductNotFound, productID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines[i].Quantity++
			return s.persist(ctx)
		}
	}

	s.lines = append(s.lines, models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.Price,
		Quantity:  1,
	})
	return s.persist(ctx)
}

// RemoveItem drops the whole line for the product. Removing an absent
// product is a no-op, not an error.
func (s *Service) RemoveItem(ctx context.Context, productID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return s.persist(ctx)
		}
	}
	return nil
}

func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lines = nil
	return s.persist(ctx)
}

// Total recomputes the cart total from the lines on every call.
func (s *Service) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total float64
	for _, line := range s.lines {
		total += line.Subtotal()
	}
	return total
}

func (s *Service) ItemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Lines returns a copy of the current lines in first-add order.
func (s *Service) Lines() []models.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.CartLine, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Service) persist(ctx context.Context) error {
	lines := s.lines
	if lines == nil {
		lines = []models.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("serialize cart: %w", err)
	}
	if err := s.store.Set(ctx, StorageKey, string(data)); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}
