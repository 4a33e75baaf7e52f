package datastore

import (
	"fmt"
	"strconv"
	"strings"

	ds "google.golang.org/api/datastore/v1"
)

// Key is the unique identifier of a Datastore entity: a kind plus either a
// numeric ID or a string name, optionally chained to a parent key. A key
// with neither ID nor name is incomplete; saving an entity under an
// incomplete key lets the service assign the ID.
type Key struct {
	Kind   string `json:"kind"`
	ID     int64  `json:"id,omitempty"`
	Name   string `json:"name,omitempty"`
	Parent *Key   `json:"parent,omitempty"`

	// Namespace is the multitenancy partition, empty for the default.
	Namespace string `json:"namespace,omitempty"`
}

// NameKey creates a key identified by name. parent may be nil.
func NameKey(kind, name string, parent *Key) *Key {
	return &Key{Kind: kind, Name: name, Parent: parent}
}

// IDKey creates a key identified by a numeric ID. parent may be nil.
func IDKey(kind string, id int64, parent *Key) *Key {
	return &Key{Kind: kind, ID: id, Parent: parent}
}

// IncompleteKey creates a key with no identifier. The service completes it
// on save.
func IncompleteKey(kind string, parent *Key) *Key {
	return &Key{Kind: kind, Parent: parent}
}

// Incomplete reports whether the key still needs an identifier.
func (k *Key) Incomplete() bool {
	return k.ID == 0 && k.Name == ""
}

// Equal reports whether two keys name the same entity. The namespace is a
// partition attribute of the whole key, so it is compared once, on the
// head of each chain.
func (k *Key) Equal(o *Key) bool {
	if k == nil || o == nil {
		return k == nil && o == nil
	}
	if k.Namespace != o.Namespace {
		return false
	}
	for k != nil && o != nil {
		if k.Kind != o.Kind || k.ID != o.ID || k.Name != o.Name {
			return false
		}
		k, o = k.Parent, o.Parent
	}
	return k == nil && o == nil
}

// String renders the key path root-first, e.g. /Parent,123/Task,sample.
func (k *Key) String() string {
	if k == nil {
		return ""
	}
	var b strings.Builder
	k.path(&b)
	return b.String()
}

func (k *Key) path(b *strings.Builder) {
	if k.Parent != nil {
		k.Parent.path(b)
	}
	b.WriteByte('/')
	b.WriteString(k.Kind)
	b.WriteByte(',')
	if k.Name != "" {
		b.WriteString(k.Name)
	} else {
		b.WriteString(strconv.FormatInt(k.ID, 10))
	}
}

// proto flattens the key chain into the wire form: an ancestor-first path
// inside a partition.
func (k *Key) proto(projectID string) *ds.Key {
	if k == nil {
		return nil
	}
	var path []*ds.PathElement
	for cur := k; cur != nil; cur = cur.Parent {
		path = append([]*ds.PathElement{{
			Kind: cur.Kind,
			Id:   cur.ID,
			Name: cur.Name,
		}}, path...)
	}
	pk := &ds.Key{Path: path}
	if projectID != "" || k.Namespace != "" {
		pk.PartitionId = &ds.PartitionId{
			ProjectId:   projectID,
			NamespaceId: k.Namespace,
		}
	}
	return pk
}

func keyFromProto(pk *ds.Key) (*Key, error) {
	if pk == nil || len(pk.Path) == 0 {
		return nil, fmt.Errorf("datastore: empty key path in response")
	}
	var namespace string
	if pk.PartitionId != nil {
		namespace = pk.PartitionId.NamespaceId
	}
	var key *Key
	for _, el := range pk.Path {
		key = &Key{
			Kind:   el.Kind,
			ID:     el.Id,
			Name:   el.Name,
			Parent: key,
		}
	}
	key.Namespace = namespace
	return key, nil
}
