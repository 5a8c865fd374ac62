package checked

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddUint64(t *testing.T) {
	v, ok := AddUint64(1, 2)
	assert.True(t, ok)
	assert.Equal(t, uint64(3), v)

	_, ok = AddUint64(math.MaxUint64, 1)
	assert.False(t, ok)

	v, ok = AddUint64(math.MaxUint64, 0)
	assert.True(t, ok)
	assert.Equal(t, uint64(math.MaxUint64), v)
}

func TestSubUint64(t *testing.T) {
	v, ok := SubUint64(5, 3)
	assert.True(t, ok)
	assert.Equal(t, uint64(2), v)

	_, ok = SubUint64(3, 5)
	assert.False(t, ok)

	v, ok = SubUint64(5, 5)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), v)
}
