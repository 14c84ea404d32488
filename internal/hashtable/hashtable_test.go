package hashtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashtable_SetGetDel(t *testing.T) {
	ht := MkHash(4)
	_, inserted := ht.Set("a", 1)
	assert.True(t, inserted)

	v, ok := ht.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	ht.Del("a")
	_, ok = ht.Get("a")
	assert.False(t, ok)
}

func TestHashtable_SetExistingKeyReportsNotInserted(t *testing.T) {
	ht := MkHash(4)
	ht.Set("k", 1)
	_, inserted := ht.Set("k", 2)
	assert.False(t, inserted, "Set on an existing key must report false")

	v, _ := ht.Get("k")
	assert.Equal(t, 1, v, "Set must not overwrite an existing key's value")
}

func TestHashtable_DelMissingKeyPanics(t *testing.T) {
	ht := MkHash(4)
	assert.Panics(t, func() { ht.Del("absent") })
}

func TestHashtable_SizeAndElems(t *testing.T) {
	ht := MkHash(8)
	keys := []string{"one", "two", "three", "four", "five"}
	for i, k := range keys {
		ht.Set(k, i)
	}
	assert.Equal(t, len(keys), ht.Size())

	elems := ht.Elems()
	require.Len(t, elems, len(keys))
	got := map[interface{}]interface{}{}
	for _, p := range elems {
		got[p.Key] = p.Value
	}
	for i, k := range keys {
		assert.Equal(t, i, got[k])
	}
}

func TestHashtable_IterStopsEarlyOnTrue(t *testing.T) {
	ht := MkHash(4)
	ht.Set("a", 1)
	ht.Set("b", 2)
	ht.Set("c", 3)

	count := 0
	stopped := ht.Iter(func(k, v interface{}) bool {
		count++
		return count == 2
	})
	assert.True(t, stopped)
	assert.Equal(t, 2, count)
}
