package avl

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCompare(a, b int) int { return a - b }

func height[K any, V any](n *Node[K, V]) int {
	if n == nil {
		return 0
	}
	lh, rh := height(n.Left()), height(n.Right())
	if lh > rh {
		return lh + 1
	}
	return rh + 1
}

// checkInvariants walks the whole tree verifying the BST ordering, parent
// pointers, and that every node's stored balance factor matches its
// actual computed height difference and stays within [-1, 1].
func checkInvariants(t *testing.T, tr *Tree[int, string]) {
	t.Helper()
	var prev *int
	var walk func(n *Node[int, string])
	walk = func(n *Node[int, string]) {
		if n == nil {
			return
		}
		if n.Left() != nil {
			assert.Same(t, n, n.Left().parent)
		}
		if n.Right() != nil {
			assert.Same(t, n, n.Right().parent)
		}
		walk(n.Left())
		if prev != nil {
			assert.True(t, *prev < n.Key, "keys out of order: %d before %d", *prev, n.Key)
		}
		k := n.Key
		prev = &k
		walk(n.Right())

		bal := height(n.Right()) - height(n.Left())
		assert.Equal(t, bal, int(n.balance), "balance factor mismatch at key %d", n.Key)
		assert.True(t, bal >= -1 && bal <= 1, "unbalanced at key %d: %d", n.Key, bal)
	}
	walk(tr.root)
}

func TestFindOrInsertNewAndExisting(t *testing.T) {
	tr := New[int, string](intCompare)
	n1, created := tr.FindOrInsert(5, func() string { return "five" })
	require.True(t, created)
	assert.Equal(t, "five", n1.Value)

	n2, created := tr.FindOrInsert(5, func() string { return "should-not-be-called" })
	require.False(t, created)
	assert.Same(t, n1, n2)
	assert.Equal(t, "five", n2.Value)
	assert.Equal(t, 1, tr.Len())
}

func TestSearchMissing(t *testing.T) {
	tr := New[int, string](intCompare)
	tr.FindOrInsert(1, func() string { return "one" })
	assert.Nil(t, tr.Search(2))
}

func TestInsertAscendingStaysBalanced(t *testing.T) {
	tr := New[int, string](intCompare)
	for i := 0; i < 1000; i++ {
		tr.FindOrInsert(i, func() string { return "" })
		checkInvariants(t, tr)
	}
	assert.Equal(t, 1000, tr.Len())
}

func TestInsertDescendingStaysBalanced(t *testing.T) {
	tr := New[int, string](intCompare)
	for i := 1000; i > 0; i-- {
		tr.FindOrInsert(i, func() string { return "" })
		checkInvariants(t, tr)
	}
}

func TestTraverseIsInOrder(t *testing.T) {
	tr := New[int, string](intCompare)
	keys := []int{5, 3, 8, 1, 4, 7, 9, 2, 6, 0}
	for _, k := range keys {
		tr.FindOrInsert(k, func() string { return "" })
	}
	var got []int
	tr.Traverse(func(n *Node[int, string]) { got = append(got, n.Key) })
	want := []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	assert.Equal(t, want, got)
}

func TestRemoveLeaf(t *testing.T) {
	tr := New[int, string](intCompare)
	for _, k := range []int{5, 3, 8} {
		tr.FindOrInsert(k, func() string { return "" })
	}
	n := tr.Search(3)
	require.NotNil(t, n)
	tr.Remove(n)
	checkInvariants(t, tr)
	assert.Nil(t, tr.Search(3))
	assert.Equal(t, 2, tr.Len())
}

func TestRemoveNodeWithTwoChildren(t *testing.T) {
	tr := New[int, string](intCompare)
	for _, k := range []int{5, 3, 8, 1, 4, 7, 9} {
		tr.FindOrInsert(k, func() string { return "" })
	}
	tr.Remove(tr.Search(5))
	checkInvariants(t, tr)
	assert.Nil(t, tr.Search(5))

	var got []int
	tr.Traverse(func(n *Node[int, string]) { got = append(got, n.Key) })
	assert.Equal(t, []int{1, 3, 4, 7, 8, 9}, got)
}

func TestRemoveRoot(t *testing.T) {
	tr := New[int, string](intCompare)
	tr.FindOrInsert(1, func() string { return "" })
	tr.Remove(tr.Search(1))
	assert.Equal(t, 0, tr.Len())
	assert.Nil(t, tr.Search(1))

	tr.FindOrInsert(2, func() string { return "" })
	assert.Equal(t, 1, tr.Len())
}

func TestRemoveAllRandomOrderStaysBalanced(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const n = 500
	keys := rng.Perm(n)

	tr := New[int, string](intCompare)
	for _, k := range keys {
		tr.FindOrInsert(k, func() string { return "" })
	}
	checkInvariants(t, tr)

	removalOrder := rng.Perm(n)
	for i, k := range removalOrder {
		node := tr.Search(k)
		require.NotNil(t, node, "key %d missing before removal", k)
		tr.Remove(node)
		if i%37 == 0 {
			checkInvariants(t, tr)
		}
	}
	assert.Equal(t, 0, tr.Len())
}

func TestHeightStaysLogarithmic(t *testing.T) {
	tr := New[int, string](intCompare)
	const n = 10000
	for i := 0; i < n; i++ {
		tr.FindOrInsert(i, func() string { return "" })
	}
	h := height[int, string](tr.root)
	// AVL worst-case height is about 1.44*log2(n); generous bound below.
	assert.LessOrEqual(t, h, 40)
}
