// Package logging wraps the Cloud Logging API: writing and listing log
// entries, deleting logs, and managing sinks and logs-based metrics. The
// wire payloads belong to the generated logging/v2 stubs.
package logging

import (
	"context"
	"fmt"

	kitlog "github.com/go-kit/log"
	lg "google.golang.org/api/logging/v2"
	"google.golang.org/api/option"

	gcloud "github.com/calavera/gcloud-go"
)

// Scope is the OAuth scope for full Logging access.
const Scope = "https://www.googleapis.com/auth/logging.admin"

// Client calls Cloud Logging on behalf of one project.
type Client struct {
	projectID string
	svc       *lg.Service
	logger    kitlog.Logger
}

// NewClient creates a Logging client bound to projectID. An empty
// projectID falls back to the environment (gcloud.Project).
func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	if projectID == "" {
		projectID = gcloud.Project()
	}
	if projectID == "" {
		return nil, fmt.Errorf("logging: no project id given and none in environment")
	}
	svc, err := lg.NewService(ctx, gcloud.Options(Scope, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Logging client: %w", err)
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

func (c *Client) parent() string {
	return "projects/" + c.projectID
}

// WriteOptions supply defaults for a batch of entries. Entries that carry
// their own log id, resource or labels keep them.
type WriteOptions struct {
	// LogID is the default short log name for entries without one.
	LogID string
	// Resource is the default monitored resource for entries without one.
	Resource *Resource
	// Labels are merged into every entry by the service.
	Labels map[string]string
	// PartialSuccess writes the valid entries of a batch even when others
	// are rejected.
	PartialSuccess bool
}

// WriteEntries sends a batch of entries to the service.
func (c *Client) WriteEntries(ctx context.Context, entries []*Entry, opts WriteOptions) error {
	req := &lg.WriteLogEntriesRequest{
		Resource:       opts.Resource.proto(),
		Labels:         opts.Labels,
		PartialSuccess: opts.PartialSuccess,
	}
	if opts.LogID != "" {
		req.LogName = LogName(c.projectID, opts.LogID)
	}
	for _, e := range entries {
		pe, err := e.proto(c.projectID)
		if err != nil {
			return err
		}
		req.Entries = append(req.Entries, pe)
	}
	if _, err := c.svc.Entries.Write(req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("logging entries.write error: %w", err)
	}
	c.logger.Log("msg", "wrote entries", "count", len(entries), "log", opts.LogID)
	return nil
}

// EntriesOptions tune a listing of log entries.
type EntriesOptions struct {
	// Filter is an advanced logs filter, e.g. `severity >= ERROR`.
	Filter string
	// OrderBy is "timestamp asc" (default) or "timestamp desc".
	OrderBy string
	// PageSize caps the entries returned per page; 0 leaves it to the
	// service.
	PageSize int64
	// PageToken resumes a previous listing.
	PageToken string
}

// Entries lists the project's log entries one page at a time. Pass the
// returned token to fetch the next page; an empty token means the listing
// is complete.
func (c *Client) Entries(ctx context.Context, opts EntriesOptions) ([]*Entry, string, error) {
	req := &lg.ListLogEntriesRequest{
		ResourceNames: []string{c.parent()},
		Filter:        opts.Filter,
		OrderBy:       opts.OrderBy,
		PageSize:      opts.PageSize,
		PageToken:     opts.PageToken,
	}
	resp, err := c.svc.Entries.List(req).Context(ctx).Do()
	if err != nil {
		return nil, "", fmt.Errorf("logging entries.list error: %w", err)
	}
	entries := make([]*Entry, 0, len(resp.Entries))
	for _, pe := range resp.Entries {
		e, err := entryFromProto(pe)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, e)
	}
	return entries, resp.NextPageToken, nil
}

// DeleteLog deletes the named log and all its entries. The log reappears
// on its next write.
func (c *Client) DeleteLog(ctx context.Context, logID string) error {
	if _, err := c.svc.Projects.Logs.Delete(LogName(c.projectID, logID)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("logging logs.delete error: %w", err)
	}
	return nil
}

// ResourceDescriptor describes one monitored resource type the service
// accepts, with the labels it expects.
type ResourceDescriptor struct {
	Type        string   `json:"type"`
	DisplayName string   `json:"display_name,omitempty"`
	Description string   `json:"description,omitempty"`
	LabelKeys   []string `json:"label_keys,omitempty"`
}

// ResourceDescriptors lists the monitored resource types known to the
// service.
func (c *Client) ResourceDescriptors(ctx context.Context, pageToken string) ([]*ResourceDescriptor, string, error) {
	call := c.svc.MonitoredResourceDescriptors.List().Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("logging monitoredResourceDescriptors.list error: %w", err)
	}
	descriptors := make([]*ResourceDescriptor, 0, len(resp.ResourceDescriptors))
	for _, pd := range resp.ResourceDescriptors {
		d := &ResourceDescriptor{
			Type:        pd.Type,
			DisplayName: pd.DisplayName,
			Description: pd.Description,
		}
		for _, l := range pd.Labels {
			d.LabelKeys = append(d.LabelKeys, l.Key)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, resp.NextPageToken, nil
}
