package payments

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderKeepsNewestFirst(t *testing.T) {
	r := NewEventRecorder(3)
	assert.Empty(t, r.List())

	for i := 0; i < 2; i++ {
		r.Record(BoldEvent{Type: fmt.Sprintf("T%d", i)})
	}
	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "T1", list[0].Type)
	assert.Equal(t, "T0", list[1].Type)
	assert.NotEmpty(t, list[0].ID)
	assert.NotEqual(t, list[0].ID, list[1].ID)
}

func TestRecorderDropsOldestPastCapacity(t *testing.T) {
	r := NewEventRecorder(0)
	for i := 0; i < DefaultRecorderCapacity+7; i++ {
		r.Record(BoldEvent{Type: fmt.Sprintf("T%d", i), Reference: fmt.Sprintf("ref-%d", i%2)})
	}

	list := r.List()
	require.Len(t, list, DefaultRecorderCapacity)
	assert.Equal(t, DefaultRecorderCapacity, r.Len())
	assert.Equal(t, fmt.Sprintf("T%d", DefaultRecorderCapacity+6), list[0].Type)
	assert.Equal(t, "T7", list[len(list)-1].Type)

	for _, e := range r.ByReference("ref-1") {
		assert.Equal(t, "ref-1", e.Reference)
	}
	assert.Len(t, r.ByReference("ref-1"), DefaultRecorderCapacity/2)
	assert.Empty(t, r.ByReference("nope"))
}
