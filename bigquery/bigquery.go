// Package bigquery wraps the BigQuery REST API into value objects for
// datasets, tables, schemas and query results. Queries run through the
// synchronous jobs.query endpoint; row streaming goes through
// tabledata.insertAll. The wire payloads belong to the generated
// bigquery/v2 stubs.
package bigquery

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/log"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/option"

	gcloud "github.com/calavera/gcloud-go"
)

// Scope is the OAuth scope for full BigQuery access.
const Scope = "https://www.googleapis.com/auth/bigquery"

// Client calls BigQuery on behalf of one project.
type Client struct {
	projectID string
	svc       *bq.Service
	logger    kitlog.Logger
}

// NewClient creates a BigQuery client bound to projectID. An empty
// projectID falls back to the environment (gcloud.Project).
func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	if projectID == "" {
		projectID = gcloud.Project()
	}
	if projectID == "" {
		return nil, fmt.Errorf("bigquery: no project id given and none in environment")
	}
	svc, err := bq.NewService(ctx, gcloud.Options(Scope, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	return &Client{projectID: projectID, svc: svc, logger: kitlog.NewNopLogger()}, nil
}

// Project returns the project id the client is bound to.
func (c *Client) Project() string {
	return c.projectID
}

// SetLogger routes the client's debug logging to l. The default discards
// everything.
func (c *Client) SetLogger(l kitlog.Logger) {
	if l == nil {
		l = kitlog.NewNopLogger()
	}
	c.logger = l
}
