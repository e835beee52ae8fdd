// Package idgen derives a Phoenix device ID, satisfying boundary.Rng.
package idgen

import (
	"github.com/google/uuid"

	"github.com/Rocky43007/phoenix/internal/boundary"
)

// UUIDRng derives a device ID from a freshly generated random UUID's first
// four bytes, matching this lineage's preference for google/uuid over
// hand-rolled randomness wherever an identifier is needed.
type UUIDRng struct {
	id uint32
}

// NewUUIDRng generates a new random device ID.
func NewUUIDRng() *UUIDRng {
	u := uuid.New()
	id := uint32(u[0])<<24 | uint32(u[1])<<16 | uint32(u[2])<<8 | uint32(u[3])
	return &UUIDRng{id: id}
}

func (r *UUIDRng) DeviceID() uint32 { return r.id }

var _ boundary.Rng = (*UUIDRng)(nil)
