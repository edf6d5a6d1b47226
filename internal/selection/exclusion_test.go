package selection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExclusionRingEvictsOldest(t *testing.T) {
	ring := NewExclusionRing(3)
	for i := 0; i < 5; i++ {
		ring.Push(fmt.Sprintf("id-%d", i))
	}
	assert.Equal(t, []string{"id-2", "id-3", "id-4"}, ring.IDs())
	assert.False(t, ring.Contains("id-0"))
	assert.True(t, ring.Contains("id-4"))
	assert.Equal(t, 3, ring.Len())
}

func TestExclusionRingRefreshesDuplicates(t *testing.T) {
	ring := NewExclusionRing(3)
	ring.Push("a")
	ring.Push("b")
	ring.Push("a")
	ring.Push("c")
	ring.Push("d")
	assert.Equal(t, []string{"a", "c", "d"}, ring.IDs())
}

func TestExclusionRingDefaultsAndNil(t *testing.T) {
	ring := NewExclusionRing(0)
	for i := 0; i < 25; i++ {
		ring.Push(fmt.Sprintf("%d", i))
	}
	assert.Equal(t, DefaultExclusionSize, ring.Len())

	var nilRing *ExclusionRing
	assert.False(t, nilRing.Contains("x"))
	assert.Equal(t, 0, nilRing.Len())
	nilRing.Push("x")
}
