package invoices

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/store"
)

type stubStore struct {
	records map[string][]byte
	order   []string
	putErr  map[string]error
}

func newStubStore() *stubStore {
	return &stubStore{records: map[string][]byte{}, putErr: map[string]error{}}
}

func (s *stubStore) Put(ctx context.Context, collection, key string, value any) error {
	if err := s.putErr[key]; err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if _, exists := s.records[key]; !exists {
		s.order = append(s.order, key)
	}
	s.records[key] = raw
	return nil
}

func (s *stubStore) List(ctx context.Context, collection string) ([]store.Record, error) {
	var out []store.Record
	for _, key := range s.order {
		out = append(out, store.Record{Collection: collection, Key: key, Value: s.records[key]})
	}
	return out, nil
}

func (s *stubStore) invoice(t *testing.T, uid string) Invoice {
	t.Helper()
	var inv Invoice
	require.NoError(t, json.Unmarshal(s.records[uid], &inv))
	return inv
}

type stubSubmitter struct {
	failUIDs map[string]error
	calls    []string
	onSubmit func(uid string)
}

func (s *stubSubmitter) SubmitSale(ctx context.Context, uid string, payload json.RawMessage) error {
	s.calls = append(s.calls, uid)
	if s.onSubmit != nil {
		s.onSubmit(uid)
	}
	if err, ok := s.failUIDs[uid]; ok {
		return err
	}
	return nil
}

func newTestQueue(t *testing.T, st *stubStore, sub *stubSubmitter, guard Guard) Service {
	t.Helper()
	svc, err := NewService(st, sub, guard, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestEnqueueStoresPendingInvoice(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	svc := newTestQueue(t, st, &stubSubmitter{}, nil)

	inv, err := svc.Enqueue(context.Background(), json.RawMessage(`{"total":"10"}`))
	require.NoError(t, err)
	require.NotEmpty(t, inv.UID)
	require.False(t, inv.Synced)

	stored := st.invoice(t, inv.UID)
	require.Equal(t, inv.UID, stored.UID)
	require.False(t, stored.Synced)
}

func TestEnqueueRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	svc := newTestQueue(t, newStubStore(), &stubSubmitter{}, nil)
	_, err := svc.Enqueue(context.Background(), nil)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestListPendingExcludesSynced(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	svc := newTestQueue(t, st, &stubSubmitter{}, nil)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	_, err = svc.Enqueue(ctx, json.RawMessage(`{"n":2}`))
	require.NoError(t, err)

	// mark the first as synced out-of-band
	synced := st.invoice(t, first.UID)
	synced.Synced = true
	require.NoError(t, st.Put(ctx, store.CollectionUnsyncedInvoices, first.UID, synced))

	pending, err := svc.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotEqual(t, first.UID, pending[0].UID)
}

func TestSyncMarksEachSuccessDurably(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{}
	svc := newTestQueue(t, st, sub, nil)
	ctx := context.Background()

	a, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	b, err := svc.Enqueue(ctx, json.RawMessage(`{"n":2}`))
	require.NoError(t, err)

	report, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 2, Synced: 2}, report)
	require.True(t, st.invoice(t, a.UID).Synced)
	require.True(t, st.invoice(t, b.UID).Synced)
}

func TestSyncPartialFailureContinues(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{failUIDs: map[string]error{}}
	svc := newTestQueue(t, st, sub, nil)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	second, err := svc.Enqueue(ctx, json.RawMessage(`{"n":2}`))
	require.NoError(t, err)
	third, err := svc.Enqueue(ctx, json.RawMessage(`{"n":3}`))
	require.NoError(t, err)

	sub.failUIDs[second.UID] = errors.New("timeout")

	report, err := svc.Sync(ctx, "manual")
	require.Error(t, err)
	require.Equal(t, SyncReport{Attempted: 3, Synced: 2, Failed: 1}, report)

	require.True(t, st.invoice(t, first.UID).Synced)
	require.False(t, st.invoice(t, second.UID).Synced)
	require.True(t, st.invoice(t, third.UID).Synced)
	require.Len(t, sub.calls, 3, "failure of one entry must not abort the pass")
}

func TestSyncRetriesPendingOnNextPass(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{failUIDs: map[string]error{}}
	svc := newTestQueue(t, st, sub, nil)
	ctx := context.Background()

	inv, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	sub.failUIDs[inv.UID] = errors.New("timeout")

	_, err = svc.Sync(ctx, "manual")
	require.Error(t, err)

	delete(sub.failUIDs, inv.UID)
	report, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Synced: 1}, report)
	require.Equal(t, []string{inv.UID, inv.UID}, sub.calls)
}

func TestSyncSkipsUIDsClaimedElsewhere(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{}
	guard := NewMemoryGuard()
	svc := newTestQueue(t, st, sub, guard)
	ctx := context.Background()

	inv, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	// another lane already holds the claim
	taken, err := guard.Claim(ctx, inv.UID)
	require.NoError(t, err)
	require.True(t, taken)

	report, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Skipped: 1}, report)
	require.Empty(t, sub.calls)
}

func TestSyncMarkFailureFreesClaimForNextPass(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{}
	guard := NewMemoryGuard()
	svc := newTestQueue(t, st, sub, guard)
	ctx := context.Background()

	inv, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	// submission succeeds but the durable mark does not
	st.putErr[inv.UID] = errors.New("disk full")
	_, err = svc.Sync(ctx, "manual")
	require.Error(t, err)
	require.False(t, st.invoice(t, inv.UID).Synced)

	// with the store healthy again the next pass must be able to reclaim,
	// resubmit, and land the mark
	delete(st.putErr, inv.UID)
	report, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Synced: 1}, report)
	require.True(t, st.invoice(t, inv.UID).Synced)
	require.Equal(t, []string{inv.UID, inv.UID}, sub.calls)
}

func TestSyncReleasesClaimAfterSuccess(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	guard := NewMemoryGuard()
	svc := newTestQueue(t, st, &stubSubmitter{}, guard)
	ctx := context.Background()

	inv, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	_, err = svc.Sync(ctx, "manual")
	require.NoError(t, err)

	taken, err := guard.Claim(ctx, inv.UID)
	require.NoError(t, err)
	require.True(t, taken, "claims must not outlive the pass that took them")
}

func TestSyncSnapshotExcludesMidPassEnqueues(t *testing.T) {
	t.Parallel()

	st := newStubStore()
	sub := &stubSubmitter{}
	svc := newTestQueue(t, st, sub, nil)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)

	var midPass []Invoice
	sub.onSubmit = func(string) {
		sub.onSubmit = nil
		inv, err := svc.Enqueue(ctx, json.RawMessage(`{"n":2}`))
		require.NoError(t, err)
		midPass = append(midPass, inv)
	}

	report, err := svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Synced: 1}, report)
	require.Equal(t, []string{first.UID}, sub.calls)
	require.Len(t, midPass, 1)
	require.False(t, st.invoice(t, midPass[0].UID).Synced)

	// the entry enqueued mid-pass belongs to the following pass
	report, err = svc.Sync(ctx, "manual")
	require.NoError(t, err)
	require.Equal(t, SyncReport{Attempted: 1, Synced: 1}, report)
	require.True(t, st.invoice(t, midPass[0].UID).Synced)
}

func TestSyncWithEmptyQueueIsNoop(t *testing.T) {
	t.Parallel()

	svc := newTestQueue(t, newStubStore(), &stubSubmitter{}, nil)
	report, err := svc.Sync(context.Background(), "timer")
	require.NoError(t, err)
	require.Equal(t, SyncReport{}, report)
}
