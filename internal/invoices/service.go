package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/metrics"
	"github.com/tillworks/posedge/pkg/store"
)

// Invoice is one sale recorded while the remote backend was unreachable.
// synced flips to true exactly once, after the backend acknowledges the uid.
type Invoice struct {
	UID       string          `json:"uid"`
	Payload   json.RawMessage `json:"payload"`
	Synced    bool            `json:"synced"`
	CreatedAt time.Time       `json:"created_at"`
}

type invoiceStore interface {
	Put(ctx context.Context, collection, key string, value any) error
	List(ctx context.Context, collection string) ([]store.Record, error)
}

type submitter interface {
	SubmitSale(ctx context.Context, uid string, payload json.RawMessage) error
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Attempted int `json:"attempted"`
	Synced    int `json:"synced"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Service records offline transactions and drives their push to the remote
// backend. A pass works on a snapshot: entries enqueued mid-pass wait for
// the next one, and one entry's failure never aborts the rest.
type Service interface {
	Enqueue(ctx context.Context, payload json.RawMessage) (Invoice, error)
	ListPending(ctx context.Context) ([]Invoice, error)
	Sync(ctx context.Context, trigger string) (SyncReport, error)
}

type service struct {
	syncMu sync.Mutex

	store   invoiceStore
	remote  submitter
	guard   Guard
	metrics *metrics.SyncMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the invoice queue.
func NewService(st invoiceStore, remote submitter, guard Guard, m *metrics.SyncMetrics, logg *logger.Logger) (Service, error) {
	if st == nil {
		return nil, fmt.Errorf("invoice store required")
	}
	if remote == nil {
		return nil, fmt.Errorf("remote submitter required")
	}
	if guard == nil {
		guard = NewMemoryGuard()
	}
	return &service{
		store:   st,
		remote:  remote,
		guard:   guard,
		metrics: m,
		logg:    logg,
		now:     time.Now,
	}, nil
}

// Enqueue records a transaction that could not reach the backend.
func (s *service) Enqueue(ctx context.Context, payload json.RawMessage) (Invoice, error) {
	if len(payload) == 0 {
		return Invoice{}, pkgerrors.New(pkgerrors.CodeValidation, "invoice payload is required")
	}

	inv := Invoice{
		UID:       uuid.NewString(),
		Payload:   payload,
		Synced:    false,
		CreatedAt: s.now(),
	}
	if err := s.store.Put(ctx, store.CollectionUnsyncedInvoices, inv.UID, inv); err != nil {
		return Invoice{}, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithInvoiceUID(ctx, inv.UID), "invoice queued for sync")
	}
	return inv, nil
}

// ListPending returns every invoice still awaiting acknowledgement,
// oldest first.
func (s *service) ListPending(ctx context.Context) ([]Invoice, error) {
	records, err := s.store.List(ctx, store.CollectionUnsyncedInvoices)
	if err != nil {
		return nil, err
	}

	pending := make([]Invoice, 0, len(records))
	for _, rec := range records {
		var inv Invoice
		if err := json.Unmarshal(rec.Value, &inv); err != nil {
			if s.logg != nil {
				s.logg.Error(s.logg.WithInvoiceUID(ctx, rec.Key), "skipping undecodable invoice", err)
			}
			continue
		}
		if !inv.Synced {
			pending = append(pending, inv)
		}
	}
	return pending, nil
}

// Sync pushes each pending invoice, marking success durably per entry before
// moving to the next. Failures are collected and returned alongside the
// report; the pass itself always completes.
func (s *service) Sync(ctx context.Context, trigger string) (SyncReport, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	started := s.now()
	defer func() {
		s.metrics.ObserveDuration(trigger, s.now().Sub(started))
	}()

	pending, err := s.ListPending(ctx)
	if err != nil {
		return SyncReport{}, err
	}

	var report SyncReport
	var errs error
	for _, inv := range pending {
		report.Attempted++

		claimed, err := s.guard.Claim(ctx, inv.UID)
		if err != nil {
			// A broken guard must not stop local syncing; the uid keeps the
			// retried submission idempotent on the backend.
			claimed = true
			if s.logg != nil {
				s.logg.Warn(s.logg.WithInvoiceUID(ctx, inv.UID), "idempotency guard unavailable")
			}
		}
		if !claimed {
			report.Skipped++
			continue
		}

		if err := s.remote.SubmitSale(ctx, inv.UID, inv.Payload); err != nil {
			report.Failed++
			s.metrics.IncFailure(trigger)
			errs = multierr.Append(errs, fmt.Errorf("invoice %s: %w", inv.UID, err))
			s.releaseClaim(ctx, inv.UID)
			continue
		}

		inv.Synced = true
		if err := s.store.Put(ctx, store.CollectionUnsyncedInvoices, inv.UID, inv); err != nil {
			// The backend has the sale and the uid makes a re-submission a
			// no-op, so the entry counts as synced. The claim must still be
			// freed: a held claim would make every later pass skip the entry
			// and the durable mark would never be retried.
			if s.logg != nil {
				s.logg.Error(s.logg.WithInvoiceUID(ctx, inv.UID), "failed to mark invoice synced", err)
			}
			errs = multierr.Append(errs, fmt.Errorf("mark synced %s: %w", inv.UID, err))
		}
		report.Synced++
		s.metrics.IncSuccess(trigger)
		s.releaseClaim(ctx, inv.UID)
	}

	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"attempted": report.Attempted,
			"synced":    report.Synced,
			"failed":    report.Failed,
			"skipped":   report.Skipped,
			"trigger":   trigger,
		})
		s.logg.Info(ctx, "invoice sync pass complete")
	}
	return report, errs
}

// releaseClaim frees a sync claim once the attempt is over, win or lose.
// Claims only guard the in-flight submission; holding one across passes
// would pin the entry as skipped forever.
func (s *service) releaseClaim(ctx context.Context, uid string) {
	if err := s.guard.Release(ctx, uid); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithInvoiceUID(ctx, uid), "failed to release sync claim")
	}
}
