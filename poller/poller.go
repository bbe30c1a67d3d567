// One poller goroutine watches one pending order: it lists recent inbound
// transfers from the ledger indexer on a fixed interval and hands the first
// amount match to the reconciliation coordinator, then exits. "No match yet"
// keeps polling; only an indexer whose own retry budget is exhausted ends the
// task with an error.

package poller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/store"
	"github.com/ADX777/Timelock-newbot/trongrid"
	"github.com/ADX777/Timelock-newbot/utils"
)

const (
	DefaultInterval = 30 * time.Second
	DefaultLimit    = 50
)

// Indexer lists recent inbound transfers, newest first. minTimestamp (unix
// ms) is the oldest block timestamp the caller cares about.
type Indexer interface {
	ListTransfers(ctx context.Context, limit int, minTimestamp int64) ([]trongrid.Transfer, error)
}

// Confirmer is the reconciliation coordinator.
type Confirmer interface {
	ConfirmPayment(ctx context.Context, orderID, txHash, proofHash string) error
}

// ProofPublisher puts the order payload into content-addressed storage.
type ProofPublisher interface {
	Publish(ctx context.Context, data []byte) (string, error)
}

type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Deps is everything a poller needs besides its order. One Deps value is
// shared by all pollers of a supervisor.
type Deps struct {
	Indexer   Indexer
	Confirmer Confirmer
	Proofs    ProofPublisher
	Notifier  Notifier

	// AmountKnown reports whether an amount belongs to some pending order,
	// so round mis-sent transfers can be told apart from other orders'
	// payments before flagging them to the operator.
	AmountKnown func(amount int64) bool

	// Flagged dedupes operator flags across pollers, keyed by tx hash.
	Flagged *sync.Map

	Interval time.Duration
	Limit    int
	Logger   *zap.Logger
}

type Poller struct {
	orderID   string
	expected  int64  // actual amount the payer was told to send, micro USDT
	payload   string // encrypted payload, published as the proof artifact
	createdAt int64  // order creation, unix ms; older transfers can never pay it

	deps  Deps
	sleep func(context.Context, time.Duration) error
}

func New(o store.Order, deps Deps) *Poller {
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.Limit <= 0 {
		deps.Limit = DefaultLimit
	}
	if deps.Flagged == nil {
		deps.Flagged = &sync.Map{}
	}
	deps.Logger = deps.Logger.Named("poller").With(zap.String("order_id", o.ID))
	var createdAt int64
	if !o.CreatedAt.IsZero() {
		createdAt = o.CreatedAt.UnixMilli()
	}
	return &Poller{
		orderID:   o.ID,
		expected:  o.ActualAmount,
		payload:   o.EncryptedPayload,
		createdAt: createdAt,
		deps:      deps,
		sleep:     utils.SleepWithContext,
	}
}

// Run polls until the order is confirmed or ctx is canceled.
func (p *Poller) Run(ctx context.Context) error {
	log := p.deps.Logger
	log.Info("watching for payment",
		zap.String("expected", store.FormatAmount(p.expected)))

	for {
		transfers, err := p.deps.Indexer.ListTransfers(ctx, p.deps.Limit, p.createdAt)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("indexer gave up: %w", err)
		}

		if done, err := p.scan(ctx, transfers); err != nil {
			return err
		} else if done {
			return nil
		}

		if err := p.sleep(ctx, p.deps.Interval); err != nil {
			return err
		}
	}
}

// scan checks one batch of transfers. It reports done=true once a match was
// confirmed; later matches in the same batch are never looked at.
func (p *Poller) scan(ctx context.Context, transfers []trongrid.Transfer) (bool, error) {
	log := p.deps.Logger

	for _, tr := range transfers {
		if tr.Timestamp < p.createdAt {
			// settled before the order existed: a reused amount slot, not
			// this order's payment
			continue
		}
		if store.AmountMatches(p.expected, tr.Amount) {
			proofHash, err := p.deps.Proofs.Publish(ctx, []byte(p.payload))
			if err != nil {
				// transient: keep the match pending, retry next cycle
				log.Warn("proof publish failed, retrying next cycle",
					zap.String("tx_hash", tr.TxHash), zap.Error(err))
				return false, nil
			}
			log.Info("matched inbound transfer",
				zap.String("tx_hash", tr.TxHash),
				zap.String("amount", store.FormatAmount(tr.Amount)))
			if err := p.deps.Confirmer.ConfirmPayment(ctx, p.orderID, tr.TxHash, proofHash); err != nil {
				if errors.Is(err, store.ErrOrderNotFound) || ctx.Err() != nil {
					return false, fmt.Errorf("confirm payment: %w", err)
				}
				// transient store failure: keep the match pending, retry
				// next cycle
				log.Warn("confirm failed, retrying next cycle",
					zap.String("tx_hash", tr.TxHash), zap.Error(err))
				return false, nil
			}
			return true, nil
		}

		p.flagStray(ctx, tr)
	}
	return false, nil
}

// flagStray alerts the operator once per tx about a round-number transfer
// that matches no pending order, a likely mis-sent payment. Advisory only,
// never applied to any order.
func (p *Poller) flagStray(ctx context.Context, tr trongrid.Transfer) {
	if !store.IsRoundAmount(tr.Amount) {
		return
	}
	if p.deps.AmountKnown != nil && p.deps.AmountKnown(tr.Amount) {
		return // some other order's payment
	}
	if _, seen := p.deps.Flagged.LoadOrStore(tr.TxHash, struct{}{}); seen {
		return
	}

	msg := "⚠️ Unmatched round transfer\n" +
		"💵 Amount: " + store.FormatAmount(tr.Amount) + " USDT\n" +
		"🔗 Tx: " + tr.TxHash + "\n" +
		"👤 From: " + tr.From
	if err := p.deps.Notifier.Send(ctx, msg); err != nil {
		p.deps.Logger.Warn("stray transfer alert failed", zap.Error(err))
	}
}
