package bigquery

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	bq "google.golang.org/api/bigquery/v2"
)

// Row is one record for streaming insertion. InsertID deduplicates
// retries on the service side; when empty a random one is generated so a
// caller-side retry of the same Row value does not double-insert.
type Row struct {
	InsertID string
	Data     map[string]interface{}
}

// InsertOptions tune streaming inserts.
type InsertOptions struct {
	// SkipInvalidRows inserts the valid rows of a batch even when others
	// fail validation.
	SkipInvalidRows bool
	// IgnoreUnknownValues drops row keys that have no schema column
	// instead of rejecting the row.
	IgnoreUnknownValues bool
}

// RowInsertError describes why one row of a batch was rejected.
type RowInsertError struct {
	// Index is the row's position in the submitted batch.
	Index    int64
	Messages []string
}

// InsertErrors is the per-row failure list from a partially-failed batch.
type InsertErrors []RowInsertError

func (e InsertErrors) Error() string {
	return fmt.Sprintf("bigquery: %d row(s) failed to insert", len(e))
}

// Insert streams rows into a table. The table must exist and have a
// schema. A nil error means every row was accepted; otherwise the error is
// an InsertErrors listing the rejected rows.
func (c *Client) Insert(ctx context.Context, datasetID, tableID string, rows []Row, opts InsertOptions) error {
	if len(rows) == 0 {
		return nil
	}
	req := &bq.TableDataInsertAllRequest{
		SkipInvalidRows:     opts.SkipInvalidRows,
		IgnoreUnknownValues: opts.IgnoreUnknownValues,
		Rows:                make([]*bq.TableDataInsertAllRequestRows, 0, len(rows)),
	}
	for _, row := range rows {
		insertID := row.InsertID
		if insertID == "" {
			insertID = uuid.NewString()
		}
		data := make(map[string]bq.JsonValue, len(row.Data))
		for k, v := range row.Data {
			data[k] = v
		}
		req.Rows = append(req.Rows, &bq.TableDataInsertAllRequestRows{
			InsertId: insertID,
			Json:     data,
		})
	}
	resp, err := c.svc.Tabledata.InsertAll(c.projectID, datasetID, tableID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("bigquery tabledata.insertAll error: %w", err)
	}
	if len(resp.InsertErrors) == 0 {
		return nil
	}
	var errs InsertErrors
	for _, ie := range resp.InsertErrors {
		re := RowInsertError{Index: ie.Index}
		for _, ep := range ie.Errors {
			msg := ep.Message
			if ep.Reason != "" {
				msg = ep.Reason + ": " + msg
			}
			re.Messages = append(re.Messages, strings.TrimSuffix(msg, ": "))
		}
		errs = append(errs, re)
	}
	c.logger.Log("msg", "insert rejected rows", "table", tableID, "failed", len(errs), "of", len(rows))
	return errs
}
