// Package firestore is the remote document store backend. Records live one
// per document in a single collection; the balance is a single document
// whose last-update-time backs the optimistic commit.
package firestore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"famledger/internal/core"
	"famledger/internal/store"
)

const (
	recordsCollection = "family_ledger"
	metaCollection    = "ledger_meta"
	balanceDoc        = "balance"

	dateLayout = "2006-01-02"
)

type Store struct {
	client *firestore.Client
}

func New(ctx context.Context, projectID string, opts ...option.ClientOption) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// recordDoc is the persisted shape of a ledger record. Dates are stored as
// YYYY-MM-DD strings so the collection stays queryable by prefix and stable
// under timezone churn; amounts are integer cents.
type recordDoc struct {
	Date      string    `firestore:"date"`
	Category  string    `firestore:"category"`
	Amount    int64     `firestore:"amount"`
	Type      string    `firestore:"type"`
	Note      string    `firestore:"note"`
	CreatedAt time.Time `firestore:"created_at,serverTimestamp"`
}

type balanceDocShape struct {
	Balance     int64     `firestore:"balance"`
	LastUpdated time.Time `firestore:"last_updated,serverTimestamp"`
}

func toDoc(r core.Record) recordDoc {
	return recordDoc{
		Date:     r.Date.Format(dateLayout),
		Category: r.Category,
		Amount:   r.Amount.Cents,
		Type:     string(r.Type),
		Note:     r.Note,
	}
}

func fromDoc(id string, d recordDoc) (core.Record, error) {
	day, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return core.Record{}, fmt.Errorf("parse stored date %q: %w", d.Date, err)
	}
	return core.Record{
		ID:        id,
		Date:      core.DateFrom(day),
		Category:  d.Category,
		Amount:    core.Money{Cents: d.Amount},
		Type:      core.EntryType(d.Type),
		Note:      d.Note,
		CreatedAt: d.CreatedAt,
	}, nil
}

// unavailable tags transport-level failures with the domain sentinel.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStorageUnavailable, err)
}

// Append implements store.RecordStore. Firestore allocates the document ID
// and stamps created_at server-side, matching the Append contract.
func (s *Store) Append(ctx context.Context, r core.Record) (string, error) {
	ref, _, err := s.client.Collection(recordsCollection).Add(ctx, toDoc(r))
	if err != nil {
		return "", unavailable("append record", err)
	}

	slog.InfoContext(ctx, "Record saved to Firestore",
		"id", ref.ID,
		"category", r.Category,
		"amount_cents", r.Amount.Cents,
		"type", string(r.Type),
		"date", r.Date.String())

	return ref.ID, nil
}

// Get implements store.RecordStore.
func (s *Store) Get(ctx context.Context, id string) (core.Record, error) {
	snap, err := s.client.Collection(recordsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return core.Record{}, core.ErrRecordNotFound
	}
	if err != nil {
		return core.Record{}, unavailable("get record", err)
	}
	var d recordDoc
	if err := snap.DataTo(&d); err != nil {
		return core.Record{}, fmt.Errorf("decode record %s: %w", id, err)
	}
	return fromDoc(snap.Ref.ID, d)
}

// Delete implements store.RecordStore. The Exists precondition makes the
// delete fail loudly on absent or already-deleted ids instead of being a
// silent no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.Collection(recordsCollection).Doc(id).Delete(ctx, firestore.Exists)
	if status.Code(err) == codes.NotFound || status.Code(err) == codes.FailedPrecondition {
		return core.ErrRecordNotFound
	}
	if err != nil {
		return unavailable("delete record", err)
	}
	return nil
}

// List implements store.RecordStore. Equality filters and the date range are
// pushed into the query; a month-without-year filter is applied in memory.
func (s *Store) List(ctx context.Context, f store.Filter) ([]core.Record, error) {
	q := s.client.Collection(recordsCollection).Query
	if f.Year != 0 {
		start, end := dateRange(f.Year, f.Month)
		q = q.Where("date", ">=", start).Where("date", "<", end)
	}
	if f.Category != "" {
		q = q.Where("category", "==", f.Category)
	}
	if f.Type != "" {
		q = q.Where("type", "==", string(f.Type))
	}
	q = q.OrderBy("date", firestore.Desc)

	it := q.Documents(ctx)
	defer it.Stop()

	var out []core.Record
	for {
		snap, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, unavailable("list records", err)
		}
		var d recordDoc
		if err := snap.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode record %s: %w", snap.Ref.ID, err)
		}
		rec, err := fromDoc(snap.Ref.ID, d)
		if err != nil {
			return nil, err
		}
		if f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// dateRange returns [start, end) bounds over the stored YYYY-MM-DD strings.
func dateRange(year, month int) (string, string) {
	if month == 0 {
		return fmt.Sprintf("%04d-01-01", year), fmt.Sprintf("%04d-01-01", year+1)
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	return start.Format(dateLayout), end.Format(dateLayout)
}

// Balance implements store.BalanceStore. The revision is the document's
// update time in nanoseconds; an absent document reads as zero at revision 0.
func (s *Store) Balance(ctx context.Context) (core.Money, int64, error) {
	snap, err := s.client.Collection(metaCollection).Doc(balanceDoc).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return core.Money{}, 0, nil
	}
	if err != nil {
		return core.Money{}, 0, unavailable("read balance", err)
	}
	var d balanceDocShape
	if err := snap.DataTo(&d); err != nil {
		return core.Money{}, 0, fmt.Errorf("decode balance: %w", err)
	}
	return core.Money{Cents: d.Balance}, snap.UpdateTime.UnixNano(), nil
}

// CommitBalance implements store.BalanceStore. Revision 0 creates the
// document (a concurrent creator trips AlreadyExists); any other revision
// updates it under a last-update-time precondition. Both interference shapes
// map to core.ErrBalanceConflict.
func (s *Store) CommitBalance(ctx context.Context, value core.Money, expectedRev int64) error {
	ref := s.client.Collection(metaCollection).Doc(balanceDoc)

	if expectedRev == 0 {
		_, err := ref.Create(ctx, balanceDocShape{Balance: value.Cents})
		if status.Code(err) == codes.AlreadyExists {
			return core.ErrBalanceConflict
		}
		if err != nil {
			return unavailable("init balance", err)
		}
		return nil
	}

	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "balance", Value: value.Cents},
		{Path: "last_updated", Value: firestore.ServerTimestamp},
	}, firestore.LastUpdateTime(time.Unix(0, expectedRev)))
	switch status.Code(err) {
	case codes.OK:
		return nil
	case codes.FailedPrecondition, codes.Aborted, codes.NotFound:
		// NotFound: the document vanished between read and commit, which
		// is interference all the same.
		return core.ErrBalanceConflict
	default:
		return unavailable("commit balance", err)
	}
}

// ForceSetBalance implements store.BalanceStore. Ground-truth override,
// reconciliation only.
func (s *Store) ForceSetBalance(ctx context.Context, value core.Money) error {
	_, err := s.client.Collection(metaCollection).Doc(balanceDoc).Set(ctx, balanceDocShape{Balance: value.Cents})
	if err != nil {
		return unavailable("force set balance", err)
	}
	return nil
}
