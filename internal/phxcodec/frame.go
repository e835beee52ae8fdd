package phxcodec

import (
	"encoding/binary"

	"github.com/Rocky43007/phoenix/internal/phxerr"
)

// Wrap builds a 24-byte manufacturer-data frame from a 20-byte payload and a
// company ID: [CompanyID LE:2][Magic LE:2][Payload:20].
func Wrap(payload [PayloadSize]byte, companyID uint16) [FrameSize]byte {
	var out [FrameSize]byte
	binary.LittleEndian.PutUint16(out[0:2], companyID)
	binary.LittleEndian.PutUint16(out[2:4], Magic)
	copy(out[4:], payload[:])
	return out
}

// Unwrap extracts the company ID and 20-byte payload from manufacturer data.
// It fails with phxerr.ErrNotPhoenix if the length isn't exactly FrameSize,
// the magic doesn't match, or the company ID isn't one of accepted.
func Unwrap(data []byte, accepted func(id uint16) bool) (companyID uint16, payload [PayloadSize]byte, err error) {
	if len(data) != FrameSize {
		return 0, payload, phxerr.ErrNotPhoenix
	}
	companyID = binary.LittleEndian.Uint16(data[0:2])
	magic := binary.LittleEndian.Uint16(data[2:4])
	if magic != Magic {
		return 0, payload, phxerr.ErrNotPhoenix
	}
	if accepted != nil && !accepted(companyID) {
		return 0, payload, phxerr.ErrNotPhoenix
	}
	copy(payload[:], data[4:24])
	return companyID, payload, nil
}
