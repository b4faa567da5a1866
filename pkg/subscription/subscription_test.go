package subscription

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencyphal-go/serard/internal/header"
)

type fakeAllocator struct{}

func (fakeAllocator) Allocate(size int) []byte { return make([]byte, size) }
func (fakeAllocator) Free([]byte)               {}

func TestSubscribeCreatesAndFinds(t *testing.T) {
	var r Registry
	sub, replaced, err := r.Subscribe(fakeAllocator{}, header.KindMessage, 100, 64, 2_000_000)
	require.NoError(t, err)
	assert.False(t, replaced)
	assert.Same(t, sub, r.Find(header.KindMessage, 100))
}

func TestSubscribeReplacesExisting(t *testing.T) {
	var r Registry
	first, _, _ := r.Subscribe(fakeAllocator{}, header.KindMessage, 100, 64, 1000)
	first.FindSession(5)

	second, replaced, err := r.Subscribe(fakeAllocator{}, header.KindMessage, 100, 128, 2000)
	require.NoError(t, err)
	assert.True(t, replaced)
	assert.NotSame(t, first, second)
	assert.Equal(t, 128, second.Extent)
	assert.Same(t, second, r.Find(header.KindMessage, 100))
}

func TestKindsAreIndependentTrees(t *testing.T) {
	var r Registry
	msg, _, _ := r.Subscribe(fakeAllocator{}, header.KindMessage, 7, 64, 1000)
	req, _, _ := r.Subscribe(fakeAllocator{}, header.KindRequest, 7, 64, 1000)
	assert.NotSame(t, msg, req)
	assert.Same(t, msg, r.Find(header.KindMessage, 7))
	assert.Same(t, req, r.Find(header.KindRequest, 7))
}

func TestUnsubscribeRemovesAndReportsAbsence(t *testing.T) {
	var r Registry
	r.Subscribe(fakeAllocator{}, header.KindMessage, 1, 64, 1000)

	assert.True(t, r.Unsubscribe(fakeAllocator{}, header.KindMessage, 1))
	assert.Nil(t, r.Find(header.KindMessage, 1))
	assert.False(t, r.Unsubscribe(fakeAllocator{}, header.KindMessage, 1))
}

func TestFindOnEmptyRegistry(t *testing.T) {
	var r Registry
	assert.Nil(t, r.Find(header.KindMessage, 1))
}

func TestFindSessionLazyCreatesOncePerNode(t *testing.T) {
	var r Registry
	sub, _, _ := r.Subscribe(fakeAllocator{}, header.KindMessage, 1, 64, 1000)

	s1, created1 := sub.FindSession(42)
	require.True(t, created1)
	s1.LastTransferID = 99

	s2, created2 := sub.FindSession(42)
	assert.False(t, created2)
	assert.Same(t, s1, s2)
	assert.Equal(t, uint64(99), s2.LastTransferID)

	s3, created3 := sub.FindSession(43)
	assert.True(t, created3)
	assert.NotSame(t, s1, s3)
}
