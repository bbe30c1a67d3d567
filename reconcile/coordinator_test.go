package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/store"
)

// fakeStore mimics the store's MarkPaid contract: atomic, first caller wins,
// later callers observe the recorded proof.
type fakeStore struct {
	mu    sync.Mutex
	order store.Order
	calls int
}

func newFakeStore(id string) *fakeStore {
	return &fakeStore{order: store.Order{
		ID:           id,
		Amount:       25_000_000,
		ActualAmount: 25_000_000,
		Status:       store.StatusPending,
	}}
}

func (f *fakeStore) MarkPaid(_ context.Context, id, txHash, proofHash string) (bool, store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.order.ID != id {
		return false, store.Order{}, store.ErrOrderNotFound
	}
	if f.order.Status == store.StatusPaid {
		return false, f.order, nil
	}
	f.order.Status = store.StatusPaid
	f.order.TxHash = txHash
	f.order.ProofHash = proofHash
	return true, f.order, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []string
	fail bool
}

func (f *fakeNotifier) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("telegram down")
	}
	f.sent = append(f.sent, text)
	return nil
}

type fakeStopper struct {
	mu      sync.Mutex
	stopped []string
}

func (f *fakeStopper) Stop(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, orderID)
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	st := newFakeStore("ord-1")
	nt := &fakeNotifier{}
	sp := &fakeStopper{}
	c := NewCoordinator(st, nt, zap.NewNop())
	c.SetPollerStopper(sp)
	ctx := context.Background()

	require.NoError(t, c.ConfirmPayment(ctx, "ord-1", "txhash-a", "proof-a"))
	// second confirmation, different tx hash: must not overwrite anything
	require.NoError(t, c.ConfirmPayment(ctx, "ord-1", "txhash-b", "proof-b"))

	assert.Equal(t, store.StatusPaid, st.order.Status)
	assert.Equal(t, "txhash-a", st.order.TxHash)
	assert.Equal(t, "proof-a", st.order.ProofHash)
	assert.Len(t, nt.sent, 1, "exactly one operator notification")
	assert.Equal(t, []string{"ord-1"}, sp.stopped)
	assert.Contains(t, nt.sent[0], "txhash-a")
}

func TestConfirmPaymentRace(t *testing.T) {
	// simulate the poller and the webhook confirming near-simultaneously,
	// many rounds to shake out interleavings
	for round := 0; round < 50; round++ {
		st := newFakeStore("ord-race")
		nt := &fakeNotifier{}
		c := NewCoordinator(st, nt, zap.NewNop())
		ctx := context.Background()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = c.ConfirmPayment(ctx, "ord-race", "tx-poller", "proof-poller")
		}()
		go func() {
			defer wg.Done()
			_ = c.ConfirmPayment(ctx, "ord-race", "tx-webhook", "proof-webhook")
		}()
		wg.Wait()

		require.Equal(t, store.StatusPaid, st.order.Status)
		require.Len(t, nt.sent, 1, "round %d: exactly one notification", round)
		// the recorded proof belongs to whichever path won
		if st.order.TxHash == "tx-poller" {
			require.Equal(t, "proof-poller", st.order.ProofHash)
		} else {
			require.Equal(t, "tx-webhook", st.order.TxHash)
			require.Equal(t, "proof-webhook", st.order.ProofHash)
		}
	}
}

func TestConfirmPaymentNotifierFailureDoesNotFail(t *testing.T) {
	st := newFakeStore("ord-2")
	nt := &fakeNotifier{fail: true}
	c := NewCoordinator(st, nt, zap.NewNop())

	err := c.ConfirmPayment(context.Background(), "ord-2", "txhash", "proof")
	require.NoError(t, err, "a dead notifier must not fail the transition")
	assert.Equal(t, store.StatusPaid, st.order.Status)
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	st := newFakeStore("ord-3")
	nt := &fakeNotifier{}
	c := NewCoordinator(st, nt, zap.NewNop())

	err := c.ConfirmPayment(context.Background(), "no-such-order", "txhash", "proof")
	assert.ErrorIs(t, err, store.ErrOrderNotFound)
	assert.Empty(t, nt.sent)
}

// multiStore serves several orders so cross-order behavior can be observed
// on a single coordinator.
type multiStore struct {
	mu     sync.Mutex
	orders map[string]*store.Order
}

func (f *multiStore) MarkPaid(_ context.Context, id, txHash, proofHash string) (bool, store.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return false, store.Order{}, store.ErrOrderNotFound
	}
	if o.Status == store.StatusPaid {
		return false, *o, nil
	}
	o.Status = store.StatusPaid
	o.TxHash = txHash
	o.ProofHash = proofHash
	return true, *o, nil
}

// slowNotifier stalls on one order's alert to prove another order's
// confirmation is not held up behind it.
type slowNotifier struct {
	slowFor string
	delay   time.Duration
}

func (s *slowNotifier) Send(_ context.Context, text string) error {
	if strings.Contains(text, s.slowFor) {
		time.Sleep(s.delay)
	}
	return nil
}

func TestConfirmPaymentCrossOrderConcurrency(t *testing.T) {
	st := &multiStore{orders: map[string]*store.Order{
		"ord-a": {ID: "ord-a", Status: store.StatusPending},
		"ord-b": {ID: "ord-b", Status: store.StatusPending},
	}}
	c := NewCoordinator(st, &slowNotifier{slowFor: "ord-a", delay: 50 * time.Millisecond}, zap.NewNop())

	start := time.Now()
	done := make(chan struct{})
	go func() {
		_ = c.ConfirmPayment(context.Background(), "ord-a", "tx", "proof")
		close(done)
	}()
	time.Sleep(5 * time.Millisecond) // let ord-a take its lock

	require.NoError(t, c.ConfirmPayment(context.Background(), "ord-b", "tx", "proof"))
	require.Less(t, time.Since(start), 40*time.Millisecond,
		"independent orders must not serialize")
	<-done
}
