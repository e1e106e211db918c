package utils

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceToSet(t *testing.T) {
	set := SliceToSet([]string{"a", "b", "a"})
	assert.Len(t, set, 2)
	assert.True(t, CheckInSet(set, "a"))
	assert.False(t, CheckInSet(set, "c"))
}

func TestCheckInSlice(t *testing.T) {
	assert.True(t, CheckInSlice([]int{1, 2, 3}, 2))
	assert.False(t, CheckInSlice([]int{1, 2, 3}, 5))
	assert.False(t, CheckInSlice(nil, 5))
}

func TestSliceToSlice(t *testing.T) {
	in := []int{1, 2, 3}
	out := SliceToSlice(&in, func(i *int) string { return strconv.Itoa(*i) })
	assert.Equal(t, []string{"1", "2", "3"}, out)

	var empty []int
	assert.Empty(t, SliceToSlice(&empty, func(i *int) string { return "" }))
}
