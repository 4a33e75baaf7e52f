package datastore

import (
	"encoding/base64"
	"fmt"
	"time"

	ds "google.golang.org/api/datastore/v1"
)

// Entity is a Datastore record: a key plus a bag of typed properties.
// Supported property types are string, bool, int (stored as int64),
// float64, time.Time, []byte, *Key, *Entity (embedded entity), nil and
// []interface{} of the above.
type Entity struct {
	Key        *Key
	Properties map[string]interface{}

	// NoIndex lists the property names excluded from the built-in indexes.
	NoIndex []string
}

// NewEntity creates an empty entity under key.
func NewEntity(key *Key) *Entity {
	return &Entity{Key: key, Properties: make(map[string]interface{})}
}

// Get returns the named property, or nil when absent.
func (e *Entity) Get(name string) interface{} {
	return e.Properties[name]
}

// Set stores a property value.
func (e *Entity) Set(name string, value interface{}) {
	if e.Properties == nil {
		e.Properties = make(map[string]interface{})
	}
	e.Properties[name] = value
}

func (e *Entity) noIndex(name string) bool {
	for _, n := range e.NoIndex {
		if n == name {
			return true
		}
	}
	return false
}

func (e *Entity) proto(projectID string) (*ds.Entity, error) {
	pe := &ds.Entity{}
	if e.Key != nil {
		pe.Key = e.Key.proto(projectID)
	}
	if len(e.Properties) > 0 {
		pe.Properties = make(map[string]ds.Value, len(e.Properties))
		for name, v := range e.Properties {
			pv, err := toValue(v, projectID)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", name, err)
			}
			if e.noIndex(name) {
				pv.ExcludeFromIndexes = true
				pv.ForceSendFields = append(pv.ForceSendFields, "ExcludeFromIndexes")
			}
			pe.Properties[name] = *pv
		}
	}
	return pe, nil
}

func entityFromProto(pe *ds.Entity) (*Entity, error) {
	if pe == nil {
		return nil, nil
	}
	e := &Entity{Properties: make(map[string]interface{}, len(pe.Properties))}
	if pe.Key != nil {
		key, err := keyFromProto(pe.Key)
		if err != nil {
			return nil, err
		}
		e.Key = key
	}
	for name, pv := range pe.Properties {
		v, err := fromValue(&pv)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", name, err)
		}
		e.Properties[name] = v
		if pv.ExcludeFromIndexes {
			e.NoIndex = append(e.NoIndex, name)
		}
	}
	return e, nil
}

// toValue maps a Go value onto the wire Value. Zero booleans and integers
// need ForceSendFields or the JSON encoder drops them.
func toValue(v interface{}, projectID string) (*ds.Value, error) {
	switch v := v.(type) {
	case nil:
		return &ds.Value{NullValue: "NULL_VALUE"}, nil
	case string:
		return &ds.Value{StringValue: v, ForceSendFields: []string{"StringValue"}}, nil
	case bool:
		return &ds.Value{BooleanValue: v, ForceSendFields: []string{"BooleanValue"}}, nil
	case int:
		return &ds.Value{IntegerValue: int64(v), ForceSendFields: []string{"IntegerValue"}}, nil
	case int32:
		return &ds.Value{IntegerValue: int64(v), ForceSendFields: []string{"IntegerValue"}}, nil
	case int64:
		return &ds.Value{IntegerValue: v, ForceSendFields: []string{"IntegerValue"}}, nil
	case float64:
		return &ds.Value{DoubleValue: v, ForceSendFields: []string{"DoubleValue"}}, nil
	case time.Time:
		return &ds.Value{TimestampValue: v.UTC().Format(time.RFC3339Nano)}, nil
	case []byte:
		return &ds.Value{BlobValue: base64.StdEncoding.EncodeToString(v)}, nil
	case *Key:
		return &ds.Value{KeyValue: v.proto(projectID)}, nil
	case *Entity:
		pe, err := v.proto(projectID)
		if err != nil {
			return nil, err
		}
		return &ds.Value{EntityValue: pe}, nil
	case []interface{}:
		av := &ds.ArrayValue{}
		for _, item := range v {
			pv, err := toValue(item, projectID)
			if err != nil {
				return nil, err
			}
			av.Values = append(av.Values, pv)
		}
		return &ds.Value{ArrayValue: av}, nil
	default:
		return nil, fmt.Errorf("unsupported property type %T", v)
	}
}

func fromValue(pv *ds.Value) (interface{}, error) {
	switch {
	case pv.NullValue != "":
		return nil, nil
	case pv.ArrayValue != nil:
		var out []interface{}
		for _, item := range pv.ArrayValue.Values {
			v, err := fromValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case pv.EntityValue != nil:
		return entityFromProto(pv.EntityValue)
	case pv.KeyValue != nil:
		return keyFromProto(pv.KeyValue)
	case pv.TimestampValue != "":
		t, err := time.Parse(time.RFC3339Nano, pv.TimestampValue)
		if err != nil {
			return nil, fmt.Errorf("bad timestamp %q: %w", pv.TimestampValue, err)
		}
		return t, nil
	case pv.BlobValue != "":
		b, err := base64.StdEncoding.DecodeString(pv.BlobValue)
		if err != nil {
			return nil, fmt.Errorf("bad blob value: %w", err)
		}
		return b, nil
	case pv.DoubleValue != 0:
		return pv.DoubleValue, nil
	case pv.IntegerValue != 0:
		return pv.IntegerValue, nil
	case pv.BooleanValue:
		return true, nil
	case pv.StringValue != "":
		return pv.StringValue, nil
	}
	// The JSON wire form drops zero values, so a fully-zero Value is
	// ambiguous. Distinguish what we can from the populated field names.
	for _, f := range pv.ForceSendFields {
		switch f {
		case "BooleanValue":
			return false, nil
		case "IntegerValue":
			return int64(0), nil
		case "DoubleValue":
			return float64(0), nil
		}
	}
	return "", nil
}
