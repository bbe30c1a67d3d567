package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	sqlmysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MySQL "Duplicate entry" error number.
const dupEntryErrNo = 1062

var (
	ErrDuplicateOrder = errors.New("order already exists")
	ErrOrderNotFound  = errors.New("order not found")
)

// Store owns all order records. It is the only component that writes them;
// the poller, the webhook handler and the status api all go through it.
type Store struct {
	db      *gorm.DB
	amounts *amountAllocator
	logger  *zap.Logger
}

// Connect opens the MySQL database and migrates the orders table.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Order{}); err != nil {
		return nil, fmt.Errorf("migrate orders: %w", err)
	}
	return db, nil
}

func New(db *gorm.DB, logger *zap.Logger) *Store {
	return &Store{
		db:      db,
		amounts: newAmountAllocator(),
		logger:  logger.Named("store"),
	}
}

// Create persists a new pending order, assigning it a unique actual amount.
func (s *Store) Create(ctx context.Context, o *Order) error {
	o.Status = StatusPending
	o.ActualAmount = s.amounts.Allocate(o.Amount)
	o.CreatedAt = time.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing Order
		err := tx.Select("id").First(&existing, "id = ?", o.ID).Error
		if err == nil {
			return ErrDuplicateOrder
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		// two racing creates can both pass the read above; the loser's
		// insert hits the primary key
		if err := tx.Create(o).Error; err != nil {
			if isDuplicateKey(err) {
				return ErrDuplicateOrder
			}
			return err
		}
		return nil
	})
	if err != nil {
		s.amounts.Release(o.ActualAmount)
		return err
	}

	s.logger.Info("order created",
		zap.String("order_id", o.ID),
		zap.String("amount", FormatAmount(o.Amount)),
		zap.String("actual_amount", FormatAmount(o.ActualAmount)))
	return nil
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *sqlmysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == dupEntryErrNo
}

// Get returns a snapshot of the order, or ErrOrderNotFound.
func (s *Store) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Order{}, ErrOrderNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// MarkPaid transitions the order to paid and records the proof, exactly once.
// The returned bool reports whether this call performed the transition; a
// call against an already paid order returns the existing record untouched,
// so a losing confirmation path sees the winner's proof and does nothing.
func (s *Store) MarkPaid(ctx context.Context, id, txHash, proofHash string) (bool, Order, error) {
	if txHash == "" {
		return false, Order{}, errors.New("markpaid: empty tx hash")
	}

	var o Order
	justPaid := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&o, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if o.Status == StatusPaid {
			return nil // keep the recorded proof
		}

		now := time.Now()
		o.Status = StatusPaid
		o.TxHash = txHash
		o.ProofHash = proofHash
		o.PaidAt = &now
		justPaid = true
		return tx.Save(&o).Error
	})
	if err != nil {
		return false, Order{}, err
	}

	if justPaid {
		s.amounts.Release(o.ActualAmount)
		s.logger.Info("order paid",
			zap.String("order_id", id),
			zap.String("tx_hash", txHash),
			zap.String("proof_hash", proofHash))
	}
	return justPaid, o, nil
}

// PendingOrders returns all pending orders and re-reserves their actual
// amounts, so pollers can be restarted after a process restart.
func (s *Store) PendingOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := s.db.WithContext(ctx).
		Where("status = ?", StatusPending).
		Order("created_at").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	for _, o := range orders {
		s.amounts.Reserve(o.ActualAmount)
	}
	return orders, nil
}

// AmountAllocated reports whether an actual amount belongs to a pending
// order. Pollers use it to avoid flagging another order's payment as stray.
func (s *Store) AmountAllocated(actual int64) bool {
	return s.amounts.Taken(actual)
}

// Orders lists every order, newest first. Used by the admin api.
func (s *Store) Orders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).Order("created_at desc").Find(&orders).Error
	return orders, err
}
