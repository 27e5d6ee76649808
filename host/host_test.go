package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caffeineduck/ngxmod/abi"
)

func TestNewAssignsIndices(t *testing.T) {
	rec := &recorder{}
	a, b := rec.module("a"), rec.module("b")
	h := newTestHost(t, a, b)

	mods := h.Modules()
	require.Len(t, mods, 3)
	assert.Equal(t, CoreModuleName, mods[0].Name)
	assert.Equal(t, abi.Uint(0), mods[0].CtxIndex)
	assert.NotEqual(t, a.CtxIndex, b.CtxIndex)
	assert.Equal(t, a.Index, a.CtxIndex)

	// Indices are fixed once assigned.
	idx := a.CtxIndex
	newTestHost(t, b, a)
	assert.Equal(t, idx, a.CtxIndex)
}

func TestNewRejectsDuplicates(t *testing.T) {
	rec := &recorder{}

	_, err := New([]*abi.Module{rec.module("dup"), rec.module("dup")})
	assert.ErrorIs(t, err, ErrDuplicateModule)

	m1 := rec.module("one")
	m2 := rec.module("two")
	m2.Commands[0].Name = m1.Commands[0].Name
	_, err = New([]*abi.Module{m1, m2})
	assert.ErrorIs(t, err, ErrDuplicateDirective)

	_, err = New([]*abi.Module{nil})
	assert.ErrorIs(t, err, ErrNilModule)

	_, err = New([]*abi.Module{{Name: "stream"}})
	assert.ErrorIs(t, err, ErrNotHTTPModule)
}

func TestPoolScope(t *testing.T) {
	h := newTestHost(t)
	p := h.newPool(poolRequest, 16, quietLogger())

	var order []int
	require.True(t, h.PoolCleanupAdd(p, func() { order = append(order, 1) }))
	require.True(t, h.PoolCleanupAdd(p, func() { order = append(order, 2) }))

	assert.True(t, h.PAlloc(p, 8, new(int64)))
	assert.True(t, h.PAlloc(p, 8, new(int64)))
	assert.False(t, h.PAlloc(p, 1, new(byte)), "limit exceeded")
	assert.True(t, h.PoolAlive(p))

	h.destroyPool(p)
	assert.Equal(t, []int{2, 1}, order)
	assert.False(t, h.PoolAlive(p))
	assert.False(t, h.PAlloc(p, 1, new(byte)), "allocation after destroy")
	assert.False(t, h.PoolCleanupAdd(p, func() {}))

	h.destroyPool(p)
	assert.Equal(t, []int{2, 1}, order, "destroy is idempotent")
}
