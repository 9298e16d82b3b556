package stable

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertReturnsPrevious(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	prev, had, err := s.Insert(ctx, 0, []byte("a"), []byte("1"))
	require.NoError(t, err)
	assert.False(t, had)
	assert.Nil(t, prev)

	prev, had, err = s.Insert(ctx, 0, []byte("a"), []byte("2"))
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, []byte("1"), prev)

	v, ok, err := s.Get(ctx, 0, []byte("a"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("2"), v)
}

func TestGetMissing(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.Get(context.Background(), 0, []byte("nope"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, v)
}

func TestRemove(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.Insert(ctx, 3, []byte("k"), []byte("v"))
	require.NoError(t, err)

	prev, had, err := s.Remove(ctx, 3, []byte("k"))
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, []byte("v"), prev)

	_, had, err = s.Remove(ctx, 3, []byte("k"))
	require.NoError(t, err)
	assert.False(t, had)

	found, err := s.ContainsKey(ctx, 3, []byte("k"))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMapsAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, _, err := s.Insert(ctx, 1, []byte("k"), []byte("one"))
	require.NoError(t, err)
	_, _, err = s.Insert(ctx, 2, []byte("k"), []byte("two"))
	require.NoError(t, err)

	v, _, err := s.Get(ctx, 1, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), v)

	n, err := s.Len(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	empty, err := s.IsEmpty(ctx, 9)
	require.NoError(t, err)
	assert.True(t, empty)
}

func TestItemsBytewiseOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	keys := [][]byte{{0x02}, {0x01, 0xff}, {0x01}, {0xff}, {0x00, 0x00}}
	for i, k := range keys {
		_, _, err := s.Insert(ctx, 0, k, []byte{byte(i)})
		require.NoError(t, err)
	}

	got, err := s.Keys(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{0x00, 0x00}, {0x01}, {0x01, 0xff}, {0x02}, {0xff}}, got)

	values, err := s.Values(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{{4}, {2}, {1}, {0}, {3}}, values)
}

func TestItemsWindow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	for _, k := range []string{"a", "b", "c", "d"} {
		_, _, err := s.Insert(ctx, 0, []byte(k), []byte(k))
		require.NoError(t, err)
	}

	page, err := s.Items(ctx, 0, 1, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, []byte("b"), page[0].Key)
	assert.Equal(t, []byte("c"), page[1].Key)

	rest, err := s.Items(ctx, 0, 3, 0)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, []byte("d"), rest[0].Key)

	none, err := s.Items(ctx, 0, 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDeclare(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	d := Declaration{MapID: 4, Name: "users", KeyType: `{"kind":"text"}`, ValueType: `{"kind":"nat8"}`}

	require.NoError(t, s.Declare(ctx, d))
	require.NoError(t, s.Declare(ctx, d), "identical redeclaration is a no-op")

	changed := d
	changed.ValueType = `{"kind":"nat16"}`
	err := s.Declare(ctx, changed)
	var redeclared *RedeclaredError
	require.ErrorAs(t, err, &redeclared)
	assert.Equal(t, d, redeclared.Stored)
	assert.Contains(t, err.Error(), "stable map 4")

	all, err := s.Declarations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Declaration{d}, all)
}
