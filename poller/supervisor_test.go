package poller

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ADX777/Timelock-newbot/trongrid"
)

func newTestSupervisor(idx Indexer) *Supervisor {
	return NewSupervisor(Deps{
		Indexer:   idx,
		Confirmer: &recordingConfirmer{},
		Proofs:    &fakeProofs{},
		Notifier:  &recordingNotifier{},
		Interval:  time.Millisecond,
		Logger:    zap.NewNop(),
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestSupervisorStopCancelsPoller(t *testing.T) {
	idx := &scriptedIndexer{} // never returns a match
	s := newTestSupervisor(idx)

	s.Watch(context.Background(), testOrder())
	require.Equal(t, 1, s.Running())

	s.Stop("ord-1")
	waitFor(t, func() bool { return s.Running() == 0 })
}

func TestSupervisorDuplicateWatchIsNoop(t *testing.T) {
	s := newTestSupervisor(&scriptedIndexer{})
	defer s.Shutdown()

	o := testOrder()
	s.Watch(context.Background(), o)
	s.Watch(context.Background(), o)
	assert.Equal(t, 1, s.Running())
}

func TestSupervisorShutdownStopsAll(t *testing.T) {
	s := newTestSupervisor(&scriptedIndexer{})

	for _, id := range []string{"ord-1", "ord-2", "ord-3"} {
		o := testOrder()
		o.ID = id
		s.Watch(context.Background(), o)
	}
	require.Equal(t, 3, s.Running())

	done := make(chan struct{})
	go func() {
		s.Shutdown()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not finish")
	}
	assert.Equal(t, 0, s.Running())
}

func TestSupervisorRemovesFinishedPoller(t *testing.T) {
	idx := &scriptedIndexer{batches: [][]trongrid.Transfer{
		{{Amount: 25_000_000, TxHash: "tx-1"}},
	}}
	s := newTestSupervisor(idx)

	s.Watch(context.Background(), testOrder())
	waitFor(t, func() bool { return s.Running() == 0 })
}
