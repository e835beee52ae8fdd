package idgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewUUIDRngProducesDistinctIDs(t *testing.T) {
	t.Parallel()
	a := NewUUIDRng()
	b := NewUUIDRng()
	assert.NotEqual(t, a.DeviceID(), b.DeviceID())
}

func TestNewUUIDRngNonZero(t *testing.T) {
	t.Parallel()
	r := NewUUIDRng()
	assert.NotZero(t, r.DeviceID())
}
