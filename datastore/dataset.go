// Package datastore wraps the Cloud Datastore API into a Dataset of keyed
// entities: lookups, saves, deletes, kind queries and transactions. The
// request/response payloads belong to the generated datastore/v1 stubs; this
// package only builds requests and unwraps responses into Key/Entity values.
package datastore

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/log"
	ds "google.golang.org/api/datastore/v1"
	"google.golang.org/api/option"

	gcloud "github.com/calavera/gcloud-go"
)

// Scope is the OAuth scope for full Datastore access.
const Scope = "https://www.googleapis.com/auth/datastore"

// Dataset is the connection to a project's Datastore.
type Dataset struct {
	projectID string
	svc       *ds.Service
	logger    kitlog.Logger

	// Namespace applies to keys built by the dataset's query and
	// allocation helpers; keys carry their own namespace otherwise.
	Namespace string
}

// NewDataset connects to the Datastore of the given project. An empty
// projectID falls back to the environment (gcloud.Project).
func NewDataset(ctx context.Context, projectID string, opts ...option.ClientOption) (*Dataset, error) {
	if projectID == "" {
		projectID = gcloud.Project()
	}
	if projectID == "" {
		return nil, fmt.Errorf("datastore: no project id given and none in environment")
	}
	svc, err := ds.NewService(ctx, gcloud.Options(Scope, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Datastore client: %w", err)
	}
	return &Dataset{projectID: projectID, svc: svc, logger: kitlog.NewNopLogger()}, nil
}

// Project returns the project id the dataset is bound to.
func (d *Dataset) Project() string {
	return d.projectID
}

// SetLogger routes the dataset's debug logging to l. The default discards
// everything.
func (d *Dataset) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = kitlog.NewNopLogger()
	}
	d.logger = l
}

// Find fetches the entity stored under key. A key with nothing stored
// under it yields (nil, nil): absence is an answer, not an error.
func (d *Dataset) Find(ctx context.Context, key *Key) (*Entity, error) {
	entities, err := d.FindAll(ctx, []*Key{key})
	if err != nil {
		return nil, err
	}
	return entities[0], nil
}

// FindAll fetches the entities stored under keys, in key order. Missing
// entries come back nil. Keys the service defers are fetched in follow-up
// lookups until the result set is complete.
func (d *Dataset) FindAll(ctx context.Context, keys []*Key) ([]*Entity, error) {
	return d.lookup(ctx, keys, "")
}

func (d *Dataset) lookup(ctx context.Context, keys []*Key, transaction string) ([]*Entity, error) {
	pending := make([]*ds.Key, 0, len(keys))
	for _, k := range keys {
		if k == nil {
			return nil, fmt.Errorf("datastore: nil key")
		}
		pending = append(pending, k.proto(d.projectID))
	}
	var found []*Entity
	for len(pending) > 0 {
		req := &ds.LookupRequest{Keys: pending}
		if transaction != "" {
			req.ReadOptions = &ds.ReadOptions{Transaction: transaction}
		}
		resp, err := d.svc.Projects.Lookup(d.projectID, req).Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("datastore lookup error: %w", err)
		}
		for _, fr := range resp.Found {
			e, err := entityFromProto(fr.Entity)
			if err != nil {
				return nil, err
			}
			found = append(found, e)
		}
		pending = resp.Deferred
	}
	d.logger.Log("msg", "lookup", "keys", len(keys), "found", len(found))
	// Results come back in no particular order; match them to the
	// requested keys by full key equality, namespace included.
	out := make([]*Entity, len(keys))
	for i, k := range keys {
		for _, e := range found {
			if k.Equal(e.Key) {
				out[i] = e
				break
			}
		}
	}
	return out, nil
}

// Save writes the entities. Entities under complete keys are upserted;
// entities under incomplete keys are inserted and their keys completed in
// place from the commit response.
func (d *Dataset) Save(ctx context.Context, entities ...*Entity) error {
	mutations := make([]*ds.Mutation, 0, len(entities))
	for _, e := range entities {
		if e.Key == nil {
			return fmt.Errorf("datastore: entity has no key")
		}
		pe, err := e.proto(d.projectID)
		if err != nil {
			return err
		}
		if e.Key.Incomplete() {
			mutations = append(mutations, &ds.Mutation{Insert: pe})
		} else {
			mutations = append(mutations, &ds.Mutation{Upsert: pe})
		}
	}
	resp, err := d.commit(ctx, mutations, "")
	if err != nil {
		return err
	}
	return completeKeys(entities, resp.MutationResults)
}

// Delete removes the entities stored under keys. Deleting an absent key is
// not an error.
func (d *Dataset) Delete(ctx context.Context, keys ...*Key) error {
	mutations := make([]*ds.Mutation, 0, len(keys))
	for _, k := range keys {
		if k == nil {
			return fmt.Errorf("datastore: nil key")
		}
		if k.Incomplete() {
			return fmt.Errorf("datastore: cannot delete incomplete key %v", k)
		}
		mutations = append(mutations, &ds.Mutation{Delete: k.proto(d.projectID)})
	}
	_, err := d.commit(ctx, mutations, "")
	return err
}

func (d *Dataset) commit(ctx context.Context, mutations []*ds.Mutation, transaction string) (*ds.CommitResponse, error) {
	req := &ds.CommitRequest{
		Mode:      "NON_TRANSACTIONAL",
		Mutations: mutations,
	}
	if transaction != "" {
		req.Mode = "TRANSACTIONAL"
		req.Transaction = transaction
	}
	resp, err := d.svc.Projects.Commit(d.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("datastore commit error: %w", err)
	}
	d.logger.Log("msg", "commit", "mutations", len(mutations), "indexUpdates", resp.IndexUpdates)
	return resp, nil
}

// completeKeys copies the service-assigned keys back onto the entities
// saved under incomplete keys.
func completeKeys(entities []*Entity, results []*ds.MutationResult) error {
	for i, e := range entities {
		if !e.Key.Incomplete() {
			continue
		}
		if i >= len(results) || results[i] == nil || results[i].Key == nil {
			return fmt.Errorf("datastore: commit response missing key for entity %d", i)
		}
		key, err := keyFromProto(results[i].Key)
		if err != nil {
			return err
		}
		key.Namespace = e.Key.Namespace
		e.Key = key
	}
	return nil
}

// QueryResults is one batch of query results plus the cursor to resume
// from. More is false once the result set is exhausted.
type QueryResults struct {
	Entities []*Entity
	Cursor   string
	More     bool
}

// RunQuery executes q and returns the first batch of results.
func (d *Dataset) RunQuery(ctx context.Context, q *Query) (*QueryResults, error) {
	return d.runQuery(ctx, q, "")
}

func (d *Dataset) runQuery(ctx context.Context, q *Query, transaction string) (*QueryResults, error) {
	pq, err := q.proto(d.projectID)
	if err != nil {
		return nil, err
	}
	req := &ds.RunQueryRequest{
		Query: pq,
		PartitionId: &ds.PartitionId{
			ProjectId:   d.projectID,
			NamespaceId: d.Namespace,
		},
	}
	if transaction != "" {
		req.ReadOptions = &ds.ReadOptions{Transaction: transaction}
	}
	resp, err := d.svc.Projects.RunQuery(d.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("datastore query error: %w", err)
	}
	results := &QueryResults{}
	if batch := resp.Batch; batch != nil {
		for _, er := range batch.EntityResults {
			e, err := entityFromProto(er.Entity)
			if err != nil {
				return nil, err
			}
			results.Entities = append(results.Entities, e)
		}
		results.Cursor = batch.EndCursor
		results.More = batch.MoreResults == "NOT_FINISHED" ||
			batch.MoreResults == "MORE_RESULTS_AFTER_LIMIT" ||
			batch.MoreResults == "MORE_RESULTS_AFTER_CURSOR"
	}
	d.logger.Log("msg", "query", "kind", q.kind, "results", len(results.Entities))
	return results, nil
}

// AllocateIDs reserves IDs for the incomplete keys and returns the
// completed keys in order.
func (d *Dataset) AllocateIDs(ctx context.Context, keys ...*Key) ([]*Key, error) {
	req := &ds.AllocateIdsRequest{}
	for _, k := range keys {
		if k == nil {
			return nil, fmt.Errorf("datastore: nil key")
		}
		if !k.Incomplete() {
			return nil, fmt.Errorf("datastore: cannot allocate id for complete key %v", k)
		}
		req.Keys = append(req.Keys, k.proto(d.projectID))
	}
	resp, err := d.svc.Projects.AllocateIds(d.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("datastore allocateIds error: %w", err)
	}
	out := make([]*Key, 0, len(resp.Keys))
	for _, pk := range resp.Keys {
		key, err := keyFromProto(pk)
		if err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}
