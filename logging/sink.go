package logging

import (
	"context"
	"fmt"

	lg "google.golang.org/api/logging/v2"
)

// Sink exports matched log entries to a destination: a Cloud Storage
// bucket, a BigQuery dataset or a Pub/Sub topic, named in the service's
// destination URI form.
type Sink struct {
	ID          string `json:"id"`
	Destination string `json:"destination"`
	// Filter selects the entries to export; empty exports everything.
	Filter string `json:"filter,omitempty"`
	// WriterIdentity is the service account the service writes with,
	// assigned on creation.
	WriterIdentity string `json:"writer_identity,omitempty"`
}

func (s *Sink) proto() *lg.LogSink {
	return &lg.LogSink{
		Name:        s.ID,
		Destination: s.Destination,
		Filter:      s.Filter,
	}
}

func sinkFromProto(ps *lg.LogSink) *Sink {
	return &Sink{
		ID:             ps.Name,
		Destination:    ps.Destination,
		Filter:         ps.Filter,
		WriterIdentity: ps.WriterIdentity,
	}
}

func (c *Client) sinkName(sinkID string) string {
	return fmt.Sprintf("projects/%s/sinks/%s", c.projectID, sinkID)
}

// Sinks lists the project's sinks one page at a time.
func (c *Client) Sinks(ctx context.Context, pageToken string) ([]*Sink, string, error) {
	call := c.svc.Projects.Sinks.List(c.parent()).Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("logging sinks.list error: %w", err)
	}
	sinks := make([]*Sink, 0, len(resp.Sinks))
	for _, ps := range resp.Sinks {
		sinks = append(sinks, sinkFromProto(ps))
	}
	return sinks, resp.NextPageToken, nil
}

// Sink fetches one sink.
func (c *Client) Sink(ctx context.Context, sinkID string) (*Sink, error) {
	ps, err := c.svc.Projects.Sinks.Get(c.sinkName(sinkID)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging sinks.get error: %w", err)
	}
	return sinkFromProto(ps), nil
}

// CreateSink creates a sink and returns it with the service-assigned
// writer identity.
func (c *Client) CreateSink(ctx context.Context, s *Sink) (*Sink, error) {
	if s.ID == "" || s.Destination == "" {
		return nil, fmt.Errorf("logging: sink needs an id and a destination")
	}
	created, err := c.svc.Projects.Sinks.Create(c.parent(), s.proto()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging sinks.create error: %w", err)
	}
	return sinkFromProto(created), nil
}

// UpdateSink replaces a sink's destination and filter.
func (c *Client) UpdateSink(ctx context.Context, s *Sink) (*Sink, error) {
	updated, err := c.svc.Projects.Sinks.Update(c.sinkName(s.ID), s.proto()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging sinks.update error: %w", err)
	}
	return sinkFromProto(updated), nil
}

// DeleteSink removes a sink. Already-exported entries stay where the sink
// put them.
func (c *Client) DeleteSink(ctx context.Context, sinkID string) error {
	if _, err := c.svc.Projects.Sinks.Delete(c.sinkName(sinkID)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("logging sinks.delete error: %w", err)
	}
	return nil
}
