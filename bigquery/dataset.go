package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/iterator"
)

// Dataset mirrors a BigQuery dataset resource.
type Dataset struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	// Name is the human-friendly name, distinct from the dataset id.
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Location    string `json:"location,omitempty"`
	// DefaultExpiration applies to tables created in the dataset; zero
	// means tables never expire.
	DefaultExpiration time.Duration `json:"default_expiration,omitempty"`
	Etag              string        `json:"etag,omitempty"`
	CreatedAt         time.Time     `json:"created_at,omitempty"`
	ModifiedAt        time.Time     `json:"modified_at,omitempty"`
}

func datasetFromProto(pd *bq.Dataset) *Dataset {
	d := &Dataset{
		Name:              pd.FriendlyName,
		Description:       pd.Description,
		Location:          pd.Location,
		DefaultExpiration: time.Duration(pd.DefaultTableExpirationMs) * time.Millisecond,
		Etag:              pd.Etag,
		CreatedAt:         time.UnixMilli(pd.CreationTime).UTC(),
		ModifiedAt:        time.UnixMilli(pd.LastModifiedTime).UTC(),
	}
	if pd.DatasetReference != nil {
		d.ID = pd.DatasetReference.DatasetId
		d.ProjectID = pd.DatasetReference.ProjectId
	}
	return d
}

// Datasets lists the project's datasets one page at a time. Pass the
// returned token to fetch the next page; an empty token means the listing
// is complete.
func (c *Client) Datasets(ctx context.Context, pageToken string) ([]*Dataset, string, error) {
	call := c.svc.Datasets.List(c.projectID).Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("bigquery datasets.list error: %w", err)
	}
	datasets := make([]*Dataset, 0, len(resp.Datasets))
	for _, pd := range resp.Datasets {
		d := &Dataset{Name: pd.FriendlyName, Location: pd.Location}
		if pd.DatasetReference != nil {
			d.ID = pd.DatasetReference.DatasetId
			d.ProjectID = pd.DatasetReference.ProjectId
		}
		datasets = append(datasets, d)
	}
	return datasets, resp.NextPageToken, nil
}

// DatasetIterator walks the project's datasets across page boundaries.
type DatasetIterator struct {
	client  *Client
	ctx     context.Context
	items   []*Dataset
	token   string
	started bool
}

// AllDatasets returns an iterator over every dataset in the project.
func (c *Client) AllDatasets(ctx context.Context) *DatasetIterator {
	return &DatasetIterator{client: c, ctx: ctx}
}

// Next returns the next dataset, fetching pages as needed. It returns
// iterator.Done once the listing is exhausted.
func (it *DatasetIterator) Next() (*Dataset, error) {
	for len(it.items) == 0 {
		if it.started && it.token == "" {
			return nil, iterator.Done
		}
		items, token, err := it.client.Datasets(it.ctx, it.token)
		if err != nil {
			return nil, err
		}
		it.started = true
		it.items, it.token = items, token
		if len(it.items) == 0 && it.token == "" {
			return nil, iterator.Done
		}
	}
	d := it.items[0]
	it.items = it.items[1:]
	return d, nil
}

// Dataset fetches one dataset with its full metadata.
func (c *Client) Dataset(ctx context.Context, datasetID string) (*Dataset, error) {
	pd, err := c.svc.Datasets.Get(c.projectID, datasetID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery datasets.get error: %w", err)
	}
	return datasetFromProto(pd), nil
}

// CreateDataset creates a dataset. Only ID, Name, Description, Location
// and DefaultExpiration are sent; the returned dataset carries the
// service-filled fields.
func (c *Client) CreateDataset(ctx context.Context, d *Dataset) (*Dataset, error) {
	if d.ID == "" {
		return nil, fmt.Errorf("bigquery: dataset has no id")
	}
	pd := &bq.Dataset{
		DatasetReference: &bq.DatasetReference{
			DatasetId: d.ID,
			ProjectId: c.projectID,
		},
		FriendlyName:             d.Name,
		Description:              d.Description,
		Location:                 d.Location,
		DefaultTableExpirationMs: d.DefaultExpiration.Milliseconds(),
	}
	created, err := c.svc.Datasets.Insert(c.projectID, pd).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery datasets.insert error: %w", err)
	}
	return datasetFromProto(created), nil
}

// DeleteDataset removes a dataset. With force set the contained tables go
// with it; without it deleting a non-empty dataset is a service error.
func (c *Client) DeleteDataset(ctx context.Context, datasetID string, force bool) error {
	call := c.svc.Datasets.Delete(c.projectID, datasetID).Context(ctx)
	if force {
		call.DeleteContents(true)
	}
	if err := call.Do(); err != nil {
		return fmt.Errorf("bigquery datasets.delete error: %w", err)
	}
	return nil
}

// DatasetUpdate holds the dataset fields PatchDataset changes. Nil fields
// stay as they are.
type DatasetUpdate struct {
	Name        *string
	Description *string
}

// PatchDataset updates a dataset's mutable metadata and returns the
// refreshed dataset.
func (c *Client) PatchDataset(ctx context.Context, datasetID string, u DatasetUpdate) (*Dataset, error) {
	pd := &bq.Dataset{}
	if u.Name != nil {
		pd.FriendlyName = *u.Name
		pd.ForceSendFields = append(pd.ForceSendFields, "FriendlyName")
	}
	if u.Description != nil {
		pd.Description = *u.Description
		pd.ForceSendFields = append(pd.ForceSendFields, "Description")
	}
	patched, err := c.svc.Datasets.Patch(c.projectID, datasetID, pd).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery datasets.patch error: %w", err)
	}
	return datasetFromProto(patched), nil
}
