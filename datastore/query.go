package datastore

import (
	"fmt"
	"strings"

	ds "google.golang.org/api/datastore/v1"
)

// Query describes a kind query: filters, ordering, pagination. The zero
// Query is not usable; start from NewQuery. Builder methods return the
// receiver so calls chain.
type Query struct {
	kind       string
	ancestor   *Key
	filters    []filter
	orders     []order
	projection []string
	distinctOn []string
	limit      int64
	offset     int64
	start      string
	end        string
	err        error
}

type filter struct {
	property string
	op       string
	value    interface{}
}

type order struct {
	property  string
	direction string
}

var filterOps = map[string]string{
	"<":  "LESS_THAN",
	"<=": "LESS_THAN_OR_EQUAL",
	">":  "GREATER_THAN",
	">=": "GREATER_THAN_OR_EQUAL",
	"=":  "EQUAL",
}

// NewQuery creates a query over the given kind.
func NewQuery(kind string) *Query {
	return &Query{kind: kind, limit: -1}
}

// Ancestor restricts results to descendants of key.
func (q *Query) Ancestor(key *Key) *Query {
	q.ancestor = key
	return q
}

// Filter adds a property filter. The condition combines a property name
// and comparison operator, e.g. "done =", "priority >=".
func (q *Query) Filter(condition string, value interface{}) *Query {
	parts := strings.Fields(condition)
	if len(parts) != 2 {
		q.err = fmt.Errorf("datastore: bad filter condition %q", condition)
		return q
	}
	op, ok := filterOps[parts[1]]
	if !ok {
		q.err = fmt.Errorf("datastore: bad filter operator %q", parts[1])
		return q
	}
	q.filters = append(q.filters, filter{property: parts[0], op: op, value: value})
	return q
}

// Order adds a sort order. Prefix the property with "-" for descending.
func (q *Query) Order(property string) *Query {
	direction := "ASCENDING"
	if strings.HasPrefix(property, "-") {
		direction = "DESCENDING"
		property = property[1:]
	}
	q.orders = append(q.orders, order{property: property, direction: direction})
	return q
}

// Project restricts the returned properties.
func (q *Query) Project(properties ...string) *Query {
	q.projection = append(q.projection, properties...)
	return q
}

// DistinctOn deduplicates results on the named properties.
func (q *Query) DistinctOn(properties ...string) *Query {
	q.distinctOn = append(q.distinctOn, properties...)
	return q
}

// Limit caps the number of results.
func (q *Query) Limit(n int) *Query {
	q.limit = int64(n)
	return q
}

// Offset skips the first n results.
func (q *Query) Offset(n int) *Query {
	q.offset = int64(n)
	return q
}

// Start resumes the query from a cursor returned by a previous run.
func (q *Query) Start(cursor string) *Query {
	q.start = cursor
	return q
}

// End stops the query at a cursor.
func (q *Query) End(cursor string) *Query {
	q.end = cursor
	return q
}

func (q *Query) proto(projectID string) (*ds.Query, error) {
	if q.err != nil {
		return nil, q.err
	}
	if q.kind == "" {
		return nil, fmt.Errorf("datastore: query has no kind")
	}
	pq := &ds.Query{
		Kind:        []*ds.KindExpression{{Name: q.kind}},
		StartCursor: q.start,
		EndCursor:   q.end,
		Offset:      q.offset,
	}
	if q.limit >= 0 {
		pq.Limit = q.limit
		pq.ForceSendFields = append(pq.ForceSendFields, "Limit")
	}
	var filters []*ds.Filter
	if q.ancestor != nil {
		filters = append(filters, &ds.Filter{
			PropertyFilter: &ds.PropertyFilter{
				Property: &ds.PropertyReference{Name: "__key__"},
				Op:       "HAS_ANCESTOR",
				Value:    &ds.Value{KeyValue: q.ancestor.proto(projectID)},
			},
		})
	}
	for _, f := range q.filters {
		v, err := toValue(f.value, projectID)
		if err != nil {
			return nil, fmt.Errorf("filter on %q: %w", f.property, err)
		}
		filters = append(filters, &ds.Filter{
			PropertyFilter: &ds.PropertyFilter{
				Property: &ds.PropertyReference{Name: f.property},
				Op:       f.op,
				Value:    v,
			},
		})
	}
	switch len(filters) {
	case 0:
	case 1:
		pq.Filter = filters[0]
	default:
		pq.Filter = &ds.Filter{
			CompositeFilter: &ds.CompositeFilter{Op: "AND", Filters: filters},
		}
	}
	for _, o := range q.orders {
		pq.Order = append(pq.Order, &ds.PropertyOrder{
			Property:  &ds.PropertyReference{Name: o.property},
			Direction: o.direction,
		})
	}
	for _, p := range q.projection {
		pq.Projection = append(pq.Projection, &ds.Projection{
			Property: &ds.PropertyReference{Name: p},
		})
	}
	for _, p := range q.distinctOn {
		pq.DistinctOn = append(pq.DistinctOn, &ds.PropertyReference{Name: p})
	}
	return pq, nil
}
