package datastructure

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinHeapOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, d := range []int{2, 4, 8} {
		h := NewdAryHeap[int](d)
		ranks := make([]float64, 200)
		for i := range ranks {
			ranks[i] = float64(rng.Intn(50))
			h.Insert(NewPriorityQueueNode(ranks[i], i))
		}
		sort.Float64s(ranks)

		for _, want := range ranks {
			n, err := h.ExtractMin()
			require.NoError(t, err)
			assert.Equal(t, want, n.GetRank())
		}
		_, err := h.ExtractMin()
		assert.ErrorIs(t, err, ErrHeapEmpty)
	}
}

func TestMinHeapTiesKeepInsertionOrder(t *testing.T) {
	h := NewFourAryHeap[string]()
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		h.Insert(NewPriorityQueueNode(1, s))
	}

	got := make([]string, 0, 5)
	for !h.IsEmpty() {
		n, err := h.ExtractMin()
		require.NoError(t, err)
		got = append(got, n.GetItem())
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}

func TestMinHeapDecreaseKey(t *testing.T) {
	h := NewFourAryHeap[string]()
	a := NewPriorityQueueNode(5, "a")
	b := NewPriorityQueueNode(3, "b")
	c := NewPriorityQueueNode(4, "c")
	h.Insert(a)
	h.Insert(b)
	h.Insert(c)

	require.NoError(t, h.DecreaseKey(a, 1))
	assert.Error(t, h.DecreaseKey(c, 9))

	// c now ties with b's new rank but was queued later
	require.NoError(t, h.DecreaseKey(b, 2))
	require.NoError(t, h.DecreaseKey(c, 2))

	got := make([]string, 0, 3)
	for !h.IsEmpty() {
		n, err := h.ExtractMin()
		require.NoError(t, err)
		got = append(got, n.GetItem())
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Error(t, h.DecreaseKey(a, 0))
}
