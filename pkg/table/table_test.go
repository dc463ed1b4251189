package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kristofer/ember/pkg/bytecode"
)

func fnv1a(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func newStr(s string) *bytecode.StringObj {
	return &bytecode.StringObj{Chars: s, Hash: fnv1a(s)}
}

func TestTable_SetGet(t *testing.T) {
	tb := New()
	key := newStr("x")
	isNew := tb.Set(key, bytecode.Number(42))
	assert.True(t, isNew)

	v, ok := tb.Get(key)
	require.True(t, ok)
	assert.Equal(t, float64(42), v.AsNumber())
}

func TestTable_SetExistingIsNotNew(t *testing.T) {
	tb := New()
	key := newStr("x")
	tb.Set(key, bytecode.Number(1))
	isNew := tb.Set(key, bytecode.Number(2))
	assert.False(t, isNew)

	v, _ := tb.Get(key)
	assert.Equal(t, float64(2), v.AsNumber())
}

func TestTable_GetMissing(t *testing.T) {
	tb := New()
	_, ok := tb.Get(newStr("missing"))
	assert.False(t, ok)
}

func TestTable_DeleteThenProbeChainSurvives(t *testing.T) {
	tb := New()
	a, b, c := newStr("a"), newStr("b"), newStr("c")
	tb.Set(a, bytecode.Number(1))
	tb.Set(b, bytecode.Number(2))
	tb.Set(c, bytecode.Number(3))

	require.True(t, tb.Delete(b))

	// a and c must still be reachable even though b's slot, which may
	// sit on their probe chain, was deleted.
	v, ok := tb.Get(a)
	require.True(t, ok)
	assert.Equal(t, float64(1), v.AsNumber())

	v, ok = tb.Get(c)
	require.True(t, ok)
	assert.Equal(t, float64(3), v.AsNumber())

	_, ok = tb.Get(b)
	assert.False(t, ok)
}

func TestTable_GrowPreservesEntries(t *testing.T) {
	tb := New()
	keys := make([]*bytecode.StringObj, 0, 64)
	for i := 0; i < 64; i++ {
		k := newStr(string(rune('a' + i%26)) + string(rune(i)))
		keys = append(keys, k)
		tb.Set(k, bytecode.Number(float64(i)))
	}
	for i, k := range keys {
		v, ok := tb.Get(k)
		require.True(t, ok)
		assert.Equal(t, float64(i), v.AsNumber())
	}
}

func TestTable_FindString(t *testing.T) {
	tb := New()
	key := newStr("hello")
	tb.Set(key, bytecode.Nil())

	found := tb.FindString("hello", key.Hash)
	require.NotNil(t, found)
	assert.Same(t, key, found)

	assert.Nil(t, tb.FindString("nope", fnv1a("nope")))
}

func TestTable_CopyAll(t *testing.T) {
	src := New()
	dst := New()
	keyA := newStr("a")
	src.Set(keyA, bytecode.Number(1))
	src.Set(newStr("b"), bytecode.Number(2))

	src.CopyAll(dst)

	// Table keys are compared by pointer identity (callers are expected
	// to pass already-interned strings), so looking a copied entry back
	// up requires the same StringObj pointer used to install it.
	a, ok := dst.Get(keyA)
	require.True(t, ok)
	assert.Equal(t, float64(1), a.AsNumber())
}

func TestTable_RemoveWhiteEvictsUnmarked(t *testing.T) {
	tb := New()
	marked := newStr("kept")
	marked.SetMarked(true)
	unmarked := newStr("dropped")

	tb.Set(marked, bytecode.Nil())
	tb.Set(unmarked, bytecode.Nil())

	tb.RemoveWhite()

	_, ok := tb.Get(marked)
	assert.True(t, ok)
	_, ok = tb.Get(unmarked)
	assert.False(t, ok)
}
