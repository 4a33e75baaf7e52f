package bigquery

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"time"

	bq "google.golang.org/api/bigquery/v2"
)

// QueryOptions tune a synchronous query. The zero value asks for standard
// SQL with no row cap and the service-default timeout.
type QueryOptions struct {
	// MaxResults caps the rows returned per page; 0 leaves it to the
	// service.
	MaxResults int64
	// Timeout bounds how long the service holds the request open waiting
	// for the job to finish. Zero uses the service default.
	Timeout time.Duration
	// DefaultDatasetID qualifies unqualified table names in the query.
	DefaultDatasetID string
	// UseLegacySQL switches to the legacy BigQuery dialect.
	UseLegacySQL bool
	// DryRun validates the query and estimates cost without running it.
	DryRun bool
}

// QueryResults is one page of rows from a query. When Complete is false
// the job was still running when the request timed out; fetch again with
// the page token to keep waiting. Rows are keyed by column name with cells
// converted per the schema.
type QueryResults struct {
	Rows      []map[string]interface{}
	Schema    *Schema
	Complete  bool
	TotalRows uint64
	PageToken string
	JobID     string
	CacheHit  bool
	// TotalBytesProcessed is the billing-relevant scan size. For a dry
	// run it is the estimate.
	TotalBytesProcessed int64
}

// Query runs sql through the synchronous query endpoint and returns the
// first page of results.
func (c *Client) Query(ctx context.Context, sql string, opts QueryOptions) (*QueryResults, error) {
	req := &bq.QueryRequest{
		Query:           sql,
		MaxResults:      opts.MaxResults,
		DryRun:          opts.DryRun,
		UseLegacySql:    &opts.UseLegacySQL,
		ForceSendFields: []string{"UseLegacySql"},
	}
	if opts.Timeout > 0 {
		req.TimeoutMs = opts.Timeout.Milliseconds()
	}
	if opts.DefaultDatasetID != "" {
		req.DefaultDataset = &bq.DatasetReference{
			ProjectId: c.projectID,
			DatasetId: opts.DefaultDatasetID,
		}
	}
	resp, err := c.svc.Jobs.Query(c.projectID, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery jobs.query error: %w", err)
	}
	schema := schemaFromProto(resp.Schema)
	rows, err := rowsFromProto(schema, resp.Rows)
	if err != nil {
		return nil, err
	}
	results := &QueryResults{
		Rows:                rows,
		Schema:              schema,
		Complete:            resp.JobComplete,
		TotalRows:           resp.TotalRows,
		PageToken:           resp.PageToken,
		CacheHit:            resp.CacheHit,
		TotalBytesProcessed: resp.TotalBytesProcessed,
	}
	if resp.JobReference != nil {
		results.JobID = resp.JobReference.JobId
	}
	c.logger.Log("msg", "query", "job", results.JobID, "rows", len(rows), "complete", results.Complete)
	return results, nil
}

// QueryNext fetches the next page of a query's results, or waits out an
// incomplete job. jobID and pageToken come from the previous page.
func (c *Client) QueryNext(ctx context.Context, jobID, pageToken string) (*QueryResults, error) {
	call := c.svc.Jobs.GetQueryResults(c.projectID, jobID).Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery jobs.getQueryResults error: %w", err)
	}
	schema := schemaFromProto(resp.Schema)
	rows, err := rowsFromProto(schema, resp.Rows)
	if err != nil {
		return nil, err
	}
	results := &QueryResults{
		Rows:                rows,
		Schema:              schema,
		Complete:            resp.JobComplete,
		TotalRows:           resp.TotalRows,
		PageToken:           resp.PageToken,
		CacheHit:            resp.CacheHit,
		TotalBytesProcessed: resp.TotalBytesProcessed,
		JobID:               jobID,
	}
	return results, nil
}

// rowsFromProto materializes wire rows into name-keyed maps. The wire form
// is positional with every scalar rendered as a string, so the schema
// drives both naming and type conversion.
func rowsFromProto(schema *Schema, rows []*bq.TableRow) ([]map[string]interface{}, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	if schema == nil {
		return nil, fmt.Errorf("bigquery: rows in response but no schema")
	}
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		r, err := rowFromCells(schema.Fields, row.F)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func rowFromCells(fields []*Field, cells []*bq.TableCell) (map[string]interface{}, error) {
	if len(cells) != len(fields) {
		return nil, fmt.Errorf("bigquery: row has %d cells for %d schema fields", len(cells), len(fields))
	}
	row := make(map[string]interface{}, len(fields))
	for i, f := range fields {
		v, err := convertCell(f, cells[i].V)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", f.Name, err)
		}
		row[f.Name] = v
	}
	return row, nil
}

func convertCell(f *Field, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if f.Mode == ModeRepeated {
		items, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("expected repeated cell, got %T", v)
		}
		scalar := *f
		scalar.Mode = ModeNullable
		var out []interface{}
		for _, item := range items {
			wrapper, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("expected value wrapper, got %T", item)
			}
			cv, err := convertCell(&scalar, wrapper["v"])
			if err != nil {
				return nil, err
			}
			out = append(out, cv)
		}
		return out, nil
	}
	if f.Type == FieldRecord {
		rec, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("expected record cell, got %T", v)
		}
		rawCells, _ := rec["f"].([]interface{})
		cells := make([]*bq.TableCell, 0, len(rawCells))
		for _, rc := range rawCells {
			wrapper, ok := rc.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("expected cell wrapper, got %T", rc)
			}
			cells = append(cells, &bq.TableCell{V: wrapper["v"]})
		}
		return rowFromCells(f.Fields, cells)
	}
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string cell, got %T", v)
	}
	switch f.Type {
	case FieldInteger:
		return strconv.ParseInt(s, 10, 64)
	case FieldFloat:
		return strconv.ParseFloat(s, 64)
	case FieldBoolean:
		return strconv.ParseBool(s)
	case FieldTimestamp:
		// Timestamps arrive as fractional epoch seconds.
		sec, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", s, err)
		}
		whole, frac := math.Modf(sec)
		return time.Unix(int64(whole), int64(frac*float64(time.Second))).UTC(), nil
	case FieldBytes:
		return base64.StdEncoding.DecodeString(s)
	default:
		return s, nil
	}
}
