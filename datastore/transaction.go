package datastore

import (
	"context"
	"fmt"

	ds "google.golang.org/api/datastore/v1"
)

// Transaction buffers Save and Delete mutations and applies them in one
// atomic commit. Reads inside the transaction see the snapshot the
// transaction started from.
type Transaction struct {
	dataset   *Dataset
	id        string
	mutations []*ds.Mutation
	saved     []*Entity
	savedAt   []int // index into mutations for each saved entity
	finished  bool
}

// TransactionError reports a commit failure whose follow-up rollback also
// failed. The transaction's outcome on the server is unknown at that point,
// so both errors are surfaced.
type TransactionError struct {
	CommitErr   error
	RollbackErr error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("datastore: commit failed (%v) and rollback failed (%v)", e.CommitErr, e.RollbackErr)
}

// Unwrap exposes the original commit error to errors.Is/As chains.
func (e *TransactionError) Unwrap() error {
	return e.CommitErr
}

// NewTransaction begins a transaction on the dataset.
func (d *Dataset) NewTransaction(ctx context.Context) (*Transaction, error) {
	resp, err := d.svc.Projects.BeginTransaction(d.projectID, &ds.BeginTransactionRequest{}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("datastore beginTransaction error: %w", err)
	}
	return &Transaction{dataset: d, id: resp.Transaction}, nil
}

// Find fetches an entity within the transaction's snapshot.
func (t *Transaction) Find(ctx context.Context, key *Key) (*Entity, error) {
	entities, err := t.dataset.lookup(ctx, []*Key{key}, t.id)
	if err != nil {
		return nil, err
	}
	return entities[0], nil
}

// FindAll fetches entities within the transaction's snapshot.
func (t *Transaction) FindAll(ctx context.Context, keys []*Key) ([]*Entity, error) {
	return t.dataset.lookup(ctx, keys, t.id)
}

// RunQuery executes q within the transaction's snapshot.
func (t *Transaction) RunQuery(ctx context.Context, q *Query) (*QueryResults, error) {
	return t.dataset.runQuery(ctx, q, t.id)
}

// Save buffers entity writes. Nothing reaches the service until Commit.
func (t *Transaction) Save(entities ...*Entity) error {
	for _, e := range entities {
		if e.Key == nil {
			return fmt.Errorf("datastore: entity has no key")
		}
		pe, err := e.proto(t.dataset.projectID)
		if err != nil {
			return err
		}
		t.savedAt = append(t.savedAt, len(t.mutations))
		if e.Key.Incomplete() {
			t.mutations = append(t.mutations, &ds.Mutation{Insert: pe})
		} else {
			t.mutations = append(t.mutations, &ds.Mutation{Upsert: pe})
		}
		t.saved = append(t.saved, e)
	}
	return nil
}

// Delete buffers key deletions.
func (t *Transaction) Delete(keys ...*Key) error {
	for _, k := range keys {
		if k == nil {
			return fmt.Errorf("datastore: nil key")
		}
		if k.Incomplete() {
			return fmt.Errorf("datastore: cannot delete incomplete key %v", k)
		}
		t.mutations = append(t.mutations, &ds.Mutation{Delete: k.proto(t.dataset.projectID)})
	}
	return nil
}

// Commit applies the buffered mutations atomically and completes the keys
// of entities saved under incomplete keys.
func (t *Transaction) Commit(ctx context.Context) error {
	if t.finished {
		return fmt.Errorf("datastore: transaction already finished")
	}
	t.finished = true
	resp, err := t.dataset.commit(ctx, t.mutations, t.id)
	if err != nil {
		return err
	}
	// Mutation results mirror the full mutation list, deletes included;
	// pick out the ones belonging to saved entities.
	results := make([]*ds.MutationResult, len(t.saved))
	for i, at := range t.savedAt {
		if at < len(resp.MutationResults) {
			results[i] = resp.MutationResults[at]
		}
	}
	return completeKeys(t.saved, results)
}

// Rollback abandons the transaction.
func (t *Transaction) Rollback(ctx context.Context) error {
	if t.finished {
		return fmt.Errorf("datastore: transaction already finished")
	}
	t.finished = true
	_, err := t.dataset.svc.Projects.Rollback(t.dataset.projectID, &ds.RollbackRequest{Transaction: t.id}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("datastore rollback error: %w", err)
	}
	return nil
}

// RunInTransaction begins a transaction, runs fn, and commits. When fn
// returns an error, or the commit fails, the transaction is rolled back
// best-effort and the original error returned; a commit failure whose
// rollback also fails comes back as a *TransactionError carrying both.
func (d *Dataset) RunInTransaction(ctx context.Context, fn func(*Transaction) error) error {
	tx, err := d.NewTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			d.logger.Log("msg", "rollback after failed transaction body also failed", "err", rbErr)
		}
		return err
	}
	commitErr := tx.Commit(ctx)
	if commitErr == nil {
		return nil
	}
	tx.finished = false // allow the recovery rollback
	if rbErr := tx.Rollback(ctx); rbErr != nil {
		return &TransactionError{CommitErr: commitErr, RollbackErr: rbErr}
	}
	return commitErr
}
