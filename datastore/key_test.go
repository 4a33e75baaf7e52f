package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIncomplete(t *testing.T) {
	assert.True(t, IncompleteKey("Task", nil).Incomplete())
	assert.False(t, NameKey("Task", "sample", nil).Incomplete())
	assert.False(t, IDKey("Task", 42, nil).Incomplete())
}

func TestKeyEqual(t *testing.T) {
	parent := NameKey("Group", "g1", nil)
	a := IDKey("Task", 1, parent)
	b := IDKey("Task", 1, NameKey("Group", "g1", nil))
	c := IDKey("Task", 2, parent)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(IDKey("Task", 1, nil)))

	ns := IDKey("Task", 1, nil)
	ns.Namespace = "tenant-a"
	assert.False(t, ns.Equal(IDKey("Task", 1, nil)))
}

func TestKeyString(t *testing.T) {
	key := NameKey("Task", "sample", IDKey("Group", 7, nil))
	assert.Equal(t, "/Group,7/Task,sample", key.String())
}

func TestKeyProtoRoundTrip(t *testing.T) {
	key := NameKey("Task", "sample", IDKey("Group", 7, nil))
	key.Namespace = "tenant-a"

	pk := key.proto("my-project")
	require.NotNil(t, pk.PartitionId)
	assert.Equal(t, "my-project", pk.PartitionId.ProjectId)
	assert.Equal(t, "tenant-a", pk.PartitionId.NamespaceId)
	// Path is ancestor-first on the wire.
	require.Len(t, pk.Path, 2)
	assert.Equal(t, "Group", pk.Path[0].Kind)
	assert.Equal(t, int64(7), pk.Path[0].Id)
	assert.Equal(t, "Task", pk.Path[1].Kind)
	assert.Equal(t, "sample", pk.Path[1].Name)

	back, err := keyFromProto(pk)
	require.NoError(t, err)
	assert.True(t, key.Equal(back))
}

func TestKeyFromProtoEmptyPath(t *testing.T) {
	_, err := keyFromProto(nil)
	assert.Error(t, err)
}
