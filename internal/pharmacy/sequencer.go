package pharmacy

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"mediconnect-server/internal/models"
)

var (
	// ErrOrderNotFound means the order does not exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition means the requested status change is not legal
	// from the order's current status.
	ErrInvalidTransition = errors.New("invalid order status transition")
	// ErrEmptyOrder means the order has no line items.
	ErrEmptyOrder = errors.New("order must contain at least one item")
	// ErrInvalidQuantity means a line item quantity is below one.
	ErrInvalidQuantity = errors.New("item quantity must be at least 1")
)

// MedicineNotFoundError names the missing medicine id.
type MedicineNotFoundError struct {
	MedicineID string
}

func (e *MedicineNotFoundError) Error() string {
	return fmt.Sprintf("medicine %s not found", e.MedicineID)
}

// InsufficientStockError names the medicine whose stock cannot cover the
// requested quantity.
type InsufficientStockError struct {
	MedicineID string
	Name       string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Store is the record-store surface the sequencer needs. Lookups return
// (nil, nil) when the record is absent. TransitionOrder applies the status
// change only if the order currently has the given status and reports
// whether it did. DebitStock decrements stock only if enough remains and
// reports whether it did. InTx runs fn atomically: if fn returns an error
// nothing it did through the passed store is kept.
type Store interface {
	GetMedicine(ctx context.Context, id string) (*models.Medicine, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	TransitionOrder(ctx context.Context, id string, from, to models.OrderStatus, actorID string) (bool, error)
	DebitStock(ctx context.Context, medicineID string, qty int) (bool, error)
	InTx(ctx context.Context, fn func(tx Store) error) error
}

// OrderLine is one requested line of a new order.
type OrderLine struct {
	MedicineID string
	Quantity   int
}

// Sequencer prices orders against live stock at placement and debits
// stock exactly once when an order is verified.
type Sequencer struct {
	store Store
}

// NewSequencer creates a Sequencer on top of the given store.
func NewSequencer(store Store) *Sequencer {
	return &Sequencer{store: store}
}

// PlaceOrder resolves every line, snapshots unit prices, and persists the
// order with status pending. The whole request fails if any line names an
// unknown medicine or asks for more than the current stock; nothing is
// persisted on failure and stock is untouched either way.
func (s *Sequencer) PlaceOrder(ctx context.Context, patientID string, lines []OrderLine, address models.DeliveryAddress, prescriptionURL string) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyOrder
	}

	var items []models.OrderItem
	var total float64
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, ErrInvalidQuantity
		}
		medicine, err := s.store.GetMedicine(ctx, line.MedicineID)
		if err != nil {
			return nil, err
		}
		if medicine == nil {
			return nil, &MedicineNotFoundError{MedicineID: line.MedicineID}
		}
		if medicine.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				MedicineID: medicine.ID,
				Name:       medicine.Name,
				Requested:  line.Quantity,
				Available:  medicine.Stock,
			}
		}
		items = append(items, models.OrderItem{
			MedicineID: medicine.ID,
			Quantity:   line.Quantity,
			Price:      medicine.Price,
		})
		total += medicine.Price * float64(line.Quantity)
	}

	order := &models.Order{
		PatientID:       patientID,
		Items:           items,
		TotalAmount:     total,
		Status:          models.OrderPending,
		PaymentStatus:   models.PaymentPending,
		DeliveryAddress: address,
		PrescriptionURL: prescriptionURL,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"order":   order.ID,
		"patient": patientID,
		"total":   total,
		"items":   len(items),
	}).Info("order placed")
	return order, nil
}

// allowedTransitions describes the order status state machine. Verified is
// the only transition with a side effect (the stock debit); cancelled is
// reachable from any non-terminal state.
var allowedTransitions = map[models.OrderStatus]map[models.OrderStatus]bool{
	models.OrderPending:    {models.OrderVerified: true, models.OrderCancelled: true},
	models.OrderVerified:   {models.OrderProcessing: true, models.OrderCancelled: true},
	models.OrderProcessing: {models.OrderShipped: true, models.OrderCancelled: true},
	models.OrderShipped:    {models.OrderDelivered: true, models.OrderCancelled: true},
}

// UpdateStatus moves the order through its state machine, reporting
// whether this call changed it. The transition to verified debits every
// line's stock exactly once: the status flip is a compare-and-set from
// pending, and the flip plus all debits run in one transaction. Retrying
// a verify after it has been applied is a no-op. Cancelling a verified
// order does not restock.
func (s *Sequencer) UpdateStatus(ctx context.Context, orderID string, newStatus models.OrderStatus, actorID string) (*models.Order, bool, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if order == nil {
		return nil, false, ErrOrderNotFound
	}

	if newStatus == models.OrderVerified {
		return s.verify(ctx, order, actorID)
	}

	if order.Status == newStatus {
		return order, false, nil
	}
	if !allowedTransitions[order.Status][newStatus] {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, newStatus)
	}

	applied, err := s.store.TransitionOrder(ctx, order.ID, order.Status, newStatus, actorID)
	if err != nil {
		return nil, false, err
	}
	if !applied {
		// Lost a race with another transition; report the fresh state.
		return nil, false, fmt.Errorf("%w: order is no longer %s", ErrInvalidTransition, order.Status)
	}
	order.Status = newStatus

	logrus.WithFields(logrus.Fields{
		"order":  order.ID,
		"status": newStatus,
		"actor":  actorID,
	}).Info("order status updated")
	return order, true, nil
}

// verify flips the order to verified and debits stock for each line,
// all-or-nothing. A duplicate call sees a non-pending order and returns
// it unchanged, so stock is never debited twice. A concurrent transition
// that leaves the order anything other than verified is an error: the
// caller asked for a verify that did not happen.
func (s *Sequencer) verify(ctx context.Context, order *models.Order, actorID string) (*models.Order, bool, error) {
	if order.Status == models.OrderVerified {
		return order, false, nil
	}
	if order.Status != models.OrderPending {
		return nil, false, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, models.OrderVerified)
	}

	var applied bool
	err := s.store.InTx(ctx, func(tx Store) error {
		var err error
		applied, err = tx.TransitionOrder(ctx, order.ID, models.OrderPending, models.OrderVerified, actorID)
		if err != nil {
			return err
		}
		if !applied {
			// Lost the compare-and-set; leave stock alone and sort out
			// what happened against the fresh state below.
			return nil
		}
		for _, item := range order.Items {
			debited, err := tx.DebitStock(ctx, item.MedicineID, item.Quantity)
			if err != nil {
				return err
			}
			if !debited {
				medicine, err := tx.GetMedicine(ctx, item.MedicineID)
				if err != nil {
					return err
				}
				stockErr := &InsufficientStockError{MedicineID: item.MedicineID, Requested: item.Quantity}
				if medicine != nil {
					stockErr.Name = medicine.Name
					stockErr.Available = medicine.Stock
				}
				return stockErr
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	refreshed, err := s.store.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, false, err
	}
	if refreshed == nil {
		return nil, false, ErrOrderNotFound
	}
	if refreshed.Status != models.OrderVerified {
		// A concurrent cancel (or other transition) won; the verify the
		// caller asked for never happened and no stock was touched.
		return nil, false, fmt.Errorf("%w: order became %s before verification", ErrInvalidTransition, refreshed.Status)
	}
	if !applied {
		// A concurrent verify won; the order is verified but this call
		// debited nothing.
		return refreshed, false, nil
	}

	logrus.WithFields(logrus.Fields{
		"order": refreshed.ID,
		"actor": actorID,
	}).Info("order verified, stock debited")
	return refreshed, true, nil
}
