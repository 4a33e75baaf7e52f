package logging

import (
	"context"
	"fmt"

	lg "google.golang.org/api/logging/v2"
)

// Metric is a logs-based metric: a counter of the entries matching its
// filter, visible in Cloud Monitoring.
type Metric struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Filter      string `json:"filter"`
}

func (m *Metric) proto() *lg.LogMetric {
	return &lg.LogMetric{
		Name:        m.ID,
		Description: m.Description,
		Filter:      m.Filter,
	}
}

func metricFromProto(pm *lg.LogMetric) *Metric {
	return &Metric{
		ID:          pm.Name,
		Description: pm.Description,
		Filter:      pm.Filter,
	}
}

func (c *Client) metricName(metricID string) string {
	return fmt.Sprintf("projects/%s/metrics/%s", c.projectID, metricID)
}

// Metrics lists the project's logs-based metrics one page at a time.
func (c *Client) Metrics(ctx context.Context, pageToken string) ([]*Metric, string, error) {
	call := c.svc.Projects.Metrics.List(c.parent()).Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("logging metrics.list error: %w", err)
	}
	metrics := make([]*Metric, 0, len(resp.Metrics))
	for _, pm := range resp.Metrics {
		metrics = append(metrics, metricFromProto(pm))
	}
	return metrics, resp.NextPageToken, nil
}

// Metric fetches one logs-based metric.
func (c *Client) Metric(ctx context.Context, metricID string) (*Metric, error) {
	pm, err := c.svc.Projects.Metrics.Get(c.metricName(metricID)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging metrics.get error: %w", err)
	}
	return metricFromProto(pm), nil
}

// CreateMetric creates a logs-based metric.
func (c *Client) CreateMetric(ctx context.Context, m *Metric) (*Metric, error) {
	if m.ID == "" || m.Filter == "" {
		return nil, fmt.Errorf("logging: metric needs an id and a filter")
	}
	created, err := c.svc.Projects.Metrics.Create(c.parent(), m.proto()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging metrics.create error: %w", err)
	}
	return metricFromProto(created), nil
}

// UpdateMetric replaces a metric's description and filter.
func (c *Client) UpdateMetric(ctx context.Context, m *Metric) (*Metric, error) {
	updated, err := c.svc.Projects.Metrics.Update(c.metricName(m.ID), m.proto()).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("logging metrics.update error: %w", err)
	}
	return metricFromProto(updated), nil
}

// DeleteMetric removes a logs-based metric.
func (c *Client) DeleteMetric(ctx context.Context, metricID string) error {
	if _, err := c.svc.Projects.Metrics.Delete(c.metricName(metricID)).Context(ctx).Do(); err != nil {
		return fmt.Errorf("logging metrics.delete error: %w", err)
	}
	return nil
}
