package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/store"
	"github.com/tillworks/posedge/pkg/types"
)

type cartStore interface {
	GetJSON(ctx context.Context, collection, key string, dest any) (bool, error)
	Put(ctx context.Context, collection, key string, value any) error
	Delete(ctx context.Context, collection, key string) error
}

// Service owns the single working cart. All mutation funnels through it so
// the quantity invariants hold at one choke point; nothing else writes the
// cart. Memory is updated before the durable write is issued, and a failed
// write surfaces as a warning, never a rollback.
type Service interface {
	AddItem(ctx context.Context, line Line) (Result, error)
	RemoveItem(ctx context.Context, key types.ItemKey) (Result, error)
	UpdateItem(ctx context.Context, line Line) (Result, error)
	Save(ctx context.Context) (Result, error)
	Clear(ctx context.Context) error
	Hold(ctx context.Context) error
	Load(ctx context.Context, cartID string) (*Cart, bool, error)
	Current() *Cart
}

type service struct {
	mu      sync.Mutex
	current *Cart

	store cartStore
	logg  *logger.Logger
}

// NewService builds the cart aggregate backed by the provided store.
func NewService(st cartStore, logg *logger.Logger) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("cart store required")
	}
	return &service{store: st, logg: logg}, nil
}

// AddItem merges by (stock_id, description), clamping the summed quantity at
// the line's max. A first add creates the cart with a fresh id.
func (s *service) AddItem(ctx context.Context, line Line) (Result, error) {
	if err := validateLine(line); err != nil {
		return Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		s.current = &Cart{CartID: uuid.NewString()}
	}

	var warnings []Warning
	if idx := s.current.findLine(line.Item.Key()); idx >= 0 {
		summed := s.current.Items[idx].Quantity + line.Quantity
		clamped := summed
		if summed > line.MaxQuantity {
			clamped = line.MaxQuantity
			warnings = append(warnings, capacityWarning(line))
		}
		s.current.Items[idx].Quantity = clamped
		s.current.Items[idx].MaxQuantity = line.MaxQuantity
	} else {
		if line.Quantity > line.MaxQuantity {
			line.Quantity = line.MaxQuantity
			warnings = append(warnings, capacityWarning(line))
		}
		s.current.Items = append(s.current.Items, line)
	}

	warnings = s.persistLocked(ctx, warnings)
	return Result{Cart: s.current.clone(), Warnings: warnings}, nil
}

// RemoveItem drops the line matching key. Removing an absent line is a no-op.
func (s *service) RemoveItem(ctx context.Context, key types.ItemKey) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no active cart")
	}

	if idx := s.current.findLine(key); idx >= 0 {
		s.current.Items = append(s.current.Items[:idx], s.current.Items[idx+1:]...)
	}

	warnings := s.persistLocked(ctx, nil)
	return Result{Cart: s.current.clone(), Warnings: warnings}, nil
}

// UpdateItem replaces the matched line verbatim. The caller is trusted to
// have validated the quantity already, so no clamping happens here.
func (s *service) UpdateItem(ctx context.Context, line Line) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "no active cart")
	}

	idx := s.current.findLine(line.Item.Key())
	if idx < 0 {
		return Result{}, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	s.current.Items[idx] = line

	warnings := s.persistLocked(ctx, nil)
	return Result{Cart: s.current.clone(), Warnings: warnings}, nil
}

// Save re-persists the in-memory cart. Idempotent; a missing cart is a no-op.
func (s *service) Save(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return Result{}, nil
	}

	warnings := s.persistLocked(ctx, nil)
	return Result{Cart: s.current.clone(), Warnings: warnings}, nil
}

// Clear removes the durable record and nulls the in-memory cart.
func (s *service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}

	cartID := s.current.CartID
	s.current = nil

	if err := s.store.Delete(ctx, store.CollectionCart, cartID); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithCartID(ctx, cartID), "cart.clear.delete_failed", err)
		}
		return err
	}
	return nil
}

// Hold nulls the in-memory cart but keeps the durable record so the cart can
// be resumed later by Load.
func (s *service) Hold(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	return nil
}

// Load fetches a held cart by id. Absence leaves the in-memory cart untouched
// and is reported through the boolean, not an error.
func (s *service) Load(ctx context.Context, cartID string) (*Cart, bool, error) {
	var loaded Cart
	found, err := s.store.GetJSON(ctx, store.CollectionCart, cartID, &loaded)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &loaded
	return s.current.clone(), true, nil
}

// Current returns a snapshot of the working cart, or nil.
func (s *service) Current() *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.clone()
}

// persistLocked writes the current cart through the store. Failures are
// logged and downgraded to a warning: the in-memory cart is authoritative
// for the session.
func (s *service) persistLocked(ctx context.Context, warnings []Warning) []Warning {
	if err := s.store.Put(ctx, store.CollectionCart, s.current.CartID, s.current); err != nil {
		if s.logg != nil {
			s.logg.Error(s.logg.WithCartID(ctx, s.current.CartID), "cart.persist_failed", err)
		}
		warnings = append(warnings, Warning{
			Kind:    WarnPersistFailed,
			Message: "cart changes are live but not yet saved locally",
		})
	}
	return warnings
}

func validateLine(line Line) error {
	if line.Item.StockID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock id is required")
	}
	if line.Quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if line.MaxQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "max quantity cannot be negative")
	}
	// Clamping against a zero max would leave a zero-quantity line, and
	// every line carries quantity > 0.
	if line.MaxQuantity == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "item has no available quantity")
	}
	return nil
}

func capacityWarning(line Line) Warning {
	return Warning{
		Kind:    WarnCapacityClamped,
		Message: fmt.Sprintf("only %d of %s available", line.MaxQuantity, line.Item.StockID),
	}
}
