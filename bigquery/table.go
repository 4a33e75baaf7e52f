package bigquery

import (
	"context"
	"fmt"
	"time"

	bq "google.golang.org/api/bigquery/v2"
)

// Field types accepted by the service.
const (
	FieldString    = "STRING"
	FieldBytes     = "BYTES"
	FieldInteger   = "INTEGER"
	FieldFloat     = "FLOAT"
	FieldBoolean   = "BOOLEAN"
	FieldTimestamp = "TIMESTAMP"
	FieldRecord    = "RECORD"
)

// Field modes.
const (
	ModeNullable = "NULLABLE"
	ModeRequired = "REQUIRED"
	ModeRepeated = "REPEATED"
)

// Field is one column of a table schema. RECORD fields nest their own
// field list.
type Field struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Mode        string   `json:"mode,omitempty"`
	Description string   `json:"description,omitempty"`
	Fields      []*Field `json:"fields,omitempty"`
}

// Schema is the ordered column list of a table.
type Schema struct {
	Fields []*Field `json:"fields"`
}

func (s *Schema) proto() *bq.TableSchema {
	if s == nil {
		return nil
	}
	return &bq.TableSchema{Fields: fieldsToProto(s.Fields)}
}

func fieldsToProto(fields []*Field) []*bq.TableFieldSchema {
	out := make([]*bq.TableFieldSchema, 0, len(fields))
	for _, f := range fields {
		out = append(out, &bq.TableFieldSchema{
			Name:        f.Name,
			Type:        f.Type,
			Mode:        f.Mode,
			Description: f.Description,
			Fields:      fieldsToProto(f.Fields),
		})
	}
	return out
}

func schemaFromProto(ps *bq.TableSchema) *Schema {
	if ps == nil {
		return nil
	}
	return &Schema{Fields: fieldsFromProto(ps.Fields)}
}

func fieldsFromProto(pfs []*bq.TableFieldSchema) []*Field {
	out := make([]*Field, 0, len(pfs))
	for _, pf := range pfs {
		out = append(out, &Field{
			Name:        pf.Name,
			Type:        pf.Type,
			Mode:        pf.Mode,
			Description: pf.Description,
			Fields:      fieldsFromProto(pf.Fields),
		})
	}
	return out
}

// Table mirrors a BigQuery table resource.
type Table struct {
	ID        string `json:"id"`
	DatasetID string `json:"dataset_id"`
	ProjectID string `json:"project_id"`
	// Name is the human-friendly name, distinct from the table id.
	Name        string    `json:"name,omitempty"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	Schema      *Schema   `json:"schema,omitempty"`
	NumRows     uint64    `json:"num_rows,omitempty"`
	NumBytes    int64     `json:"num_bytes,omitempty"`
	Etag        string    `json:"etag,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	ModifiedAt  time.Time `json:"modified_at,omitempty"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

func tableFromProto(pt *bq.Table) *Table {
	t := &Table{
		Name:        pt.FriendlyName,
		Description: pt.Description,
		Type:        pt.Type,
		Schema:      schemaFromProto(pt.Schema),
		NumRows:     pt.NumRows,
		NumBytes:    pt.NumBytes,
		Etag:        pt.Etag,
		CreatedAt:   time.UnixMilli(pt.CreationTime).UTC(),
		ModifiedAt:  time.UnixMilli(int64(pt.LastModifiedTime)).UTC(),
	}
	if pt.ExpirationTime > 0 {
		t.ExpiresAt = time.UnixMilli(pt.ExpirationTime).UTC()
	}
	if pt.TableReference != nil {
		t.ID = pt.TableReference.TableId
		t.DatasetID = pt.TableReference.DatasetId
		t.ProjectID = pt.TableReference.ProjectId
	}
	return t
}

// Tables lists a dataset's tables one page at a time.
func (c *Client) Tables(ctx context.Context, datasetID, pageToken string) ([]*Table, string, error) {
	call := c.svc.Tables.List(c.projectID, datasetID).Context(ctx)
	if pageToken != "" {
		call.PageToken(pageToken)
	}
	resp, err := call.Do()
	if err != nil {
		return nil, "", fmt.Errorf("bigquery tables.list error: %w", err)
	}
	tables := make([]*Table, 0, len(resp.Tables))
	for _, pt := range resp.Tables {
		t := &Table{Name: pt.FriendlyName, Type: pt.Type}
		if pt.TableReference != nil {
			t.ID = pt.TableReference.TableId
			t.DatasetID = pt.TableReference.DatasetId
			t.ProjectID = pt.TableReference.ProjectId
		}
		tables = append(tables, t)
	}
	return tables, resp.NextPageToken, nil
}

// Table fetches one table with its full metadata and schema.
func (c *Client) Table(ctx context.Context, datasetID, tableID string) (*Table, error) {
	pt, err := c.svc.Tables.Get(c.projectID, datasetID, tableID).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery tables.get error: %w", err)
	}
	return tableFromProto(pt), nil
}

// CreateTable creates a table in the dataset. Only ID, Name, Description
// and Schema are sent.
func (c *Client) CreateTable(ctx context.Context, datasetID string, t *Table) (*Table, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("bigquery: table has no id")
	}
	pt := &bq.Table{
		TableReference: &bq.TableReference{
			ProjectId: c.projectID,
			DatasetId: datasetID,
			TableId:   t.ID,
		},
		FriendlyName: t.Name,
		Description:  t.Description,
		Schema:       t.Schema.proto(),
	}
	created, err := c.svc.Tables.Insert(c.projectID, datasetID, pt).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("bigquery tables.insert error: %w", err)
	}
	return tableFromProto(created), nil
}

// DeleteTable removes a table and its data.
func (c *Client) DeleteTable(ctx context.Context, datasetID, tableID string) error {
	if err := c.svc.Tables.Delete(c.projectID, datasetID, tableID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("bigquery tables.delete error: %w", err)
	}
	return nil
}
