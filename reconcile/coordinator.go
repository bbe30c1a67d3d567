// The coordinator is the single gate both confirmation paths (chain poller
// and payment webhook) go through to mark an order paid. It serializes
// confirmations per order id, delegates the actual transition to the store's
// atomic MarkPaid, and fires the one-time side effects only for the call that
// won the race. The losing path returns success without touching anything.

package reconcile

import (
	"context"

	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/store"
)

// PaymentStore is the slice of the order store the coordinator needs.
type PaymentStore interface {
	MarkPaid(ctx context.Context, id, txHash, proofHash string) (bool, store.Order, error)
}

// Notifier delivers operator alerts. Best effort: failures are logged and
// never fail a confirmation.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// PollerStopper cancels the chain poller of a confirmed order.
type PollerStopper interface {
	Stop(orderID string)
}

type Coordinator struct {
	store    PaymentStore
	notifier Notifier
	pollers  PollerStopper
	locks    *keyedMutex
	logger   *zap.Logger
}

func NewCoordinator(st PaymentStore, notifier Notifier, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		store:    st,
		notifier: notifier,
		locks:    newKeyedMutex(),
		logger:   logger.Named("reconcile"),
	}
}

// SetPollerStopper wires the poller supervisor in after construction; the
// supervisor itself needs the coordinator, so one side is attached late.
func (c *Coordinator) SetPollerStopper(p PollerStopper) {
	c.pollers = p
}

// ConfirmPayment applies a payment confirmation for the order. Idempotent:
// the first call for an order transitions it to paid, records the proof and
// notifies the operator once; every later call, from either path and with any
// tx hash, is a silent no-op.
func (c *Coordinator) ConfirmPayment(ctx context.Context, orderID, txHash, proofHash string) error {
	c.locks.Lock(orderID)
	defer c.locks.Unlock(orderID)

	justPaid, order, err := c.store.MarkPaid(ctx, orderID, txHash, proofHash)
	if err != nil {
		return err
	}
	if !justPaid {
		c.logger.Debug("duplicate confirmation ignored",
			zap.String("order_id", orderID),
			zap.String("tx_hash", txHash),
			zap.String("recorded_tx_hash", order.TxHash))
		return nil
	}

	if c.pollers != nil {
		c.pollers.Stop(orderID)
	}

	msg := PaidMessage(order)
	if err := c.notifier.Send(ctx, msg); err != nil {
		c.logger.Warn("operator notification failed",
			zap.String("order_id", orderID), zap.Error(err))
	}

	return nil
}

// PaidMessage formats the one-time operator alert for a paid order.
func PaidMessage(o store.Order) string {
	return "✅ Order paid\n" +
		"🧾 Order: " + o.ID + "\n" +
		"💵 Amount: " + store.FormatAmount(o.ActualAmount) + " USDT\n" +
		"🔗 Tx: " + o.TxHash + "\n" +
		"📦 Proof: " + o.ProofHash
}
