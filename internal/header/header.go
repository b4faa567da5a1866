// Package header packs and parses the fixed-size Cyphal/serial transfer
// header: a 24-byte little-endian record carrying addressing metadata,
// the transfer ID, and a CRC-16/CCITT-FALSE integrity field.
package header

import (
	"encoding/binary"
	"errors"

	"github.com/opencyphal-go/serard/internal/crc"
)

// Size is the number of bytes a packed header occupies on the wire.
const Size = 24

// ErrMalformed is returned by Parse when the header fails any structural
// or integrity check. Per the spec this is not reported to the caller of
// the public API -- the frame is silently dropped -- but it is useful for
// the reassembler and for tests to distinguish "not a header" from
// "valid header".
var ErrMalformed = errors.New("header: malformed")

const wireVersion = 1

const (
	// bit positions within the data-specifier word (offset 6..7)
	bitServiceFlag  = 15
	bitRequestFlag  = 14
	bitAnonymousFlg = 13
	portIDMask      = 0x1FFF // 13 bits, large enough for the subject-ID range
)

// Kind identifies the category of a transfer.
type Kind uint8

const (
	KindMessage Kind = iota
	KindResponse
	KindRequest
)

// NumKinds is the number of transfer kinds, used to size kind-indexed
// arrays (e.g. the three subscription indices).
const NumKinds = 3

// NodeIDUnset is the sentinel node-ID denoting an anonymous source or a
// broadcast destination.
const NodeIDUnset uint16 = 0xFFFF

// NodeIDMax is the largest valid node-ID.
const NodeIDMax uint16 = 0xFFFE

// Priority is one of the eight ordered transfer priority levels, 0 highest.
type Priority uint8

const PriorityMax Priority = 7

// SubjectIDMax and ServiceIDMax bound the valid port range per kind.
const (
	SubjectIDMax uint16 = 8191
	ServiceIDMax uint16 = 511
)

// Header is the parsed, in-memory form of a transfer header.
type Header struct {
	Priority      Priority
	SourceNode    uint16
	DestNode      uint16
	Kind          Kind
	PortID        uint16
	TransferID    uint64
}

// Pack writes h's wire representation into buf, which must be at least
// Size bytes long. Pack never fails given a Header with in-range fields;
// validating the metadata is the caller's responsibility (see the tx
// package), matching the spec's "emission... never fails given valid
// in-range metadata".
func Pack(h Header, buf []byte) {
	_ = buf[:Size] // bounds check hint, mirrors the teacher's fixed-frame encoders

	buf[0] = wireVersion
	buf[1] = byte(h.Priority)
	binary.LittleEndian.PutUint16(buf[2:4], h.SourceNode)
	binary.LittleEndian.PutUint16(buf[4:6], h.DestNode)

	var spec uint16
	switch h.Kind {
	case KindMessage:
		spec = h.PortID & portIDMask
		if h.SourceNode == NodeIDUnset {
			spec |= 1 << bitAnonymousFlg
		}
	case KindRequest:
		spec = (h.PortID & portIDMask) | 1<<bitServiceFlag | 1<<bitRequestFlag
	case KindResponse:
		spec = (h.PortID & portIDMask) | 1<<bitServiceFlag
	}
	binary.LittleEndian.PutUint16(buf[6:8], spec)

	binary.LittleEndian.PutUint16(buf[8:10], 0) // reserved, always zero
	binary.LittleEndian.PutUint64(buf[10:18], h.TransferID)

	// Single-frame transfers: frame index 0, end-of-transfer flag set.
	binary.LittleEndian.PutUint32(buf[18:22], 1<<31)

	crcAcc := crc.NewCRC16()
	crcAcc.Block(buf[0:22])
	binary.LittleEndian.PutUint16(buf[22:24], crcAcc.Value())
}

// Parse decodes buf (which must be exactly Size bytes) into a Header. It
// fails with ErrMalformed when: the version is unsupported, reserved bits
// are non-zero, the anonymity flag disagrees with the source node ID
// being the unset sentinel, the end-of-transfer flag is not set (this
// implementation only emits and accepts single-frame transfers), or the
// header CRC does not match.
func Parse(buf []byte) (Header, error) {
	if len(buf) != Size {
		return Header{}, ErrMalformed
	}

	crcAcc := crc.NewCRC16()
	crcAcc.Block(buf[0:22])
	if crcAcc.Value() != binary.LittleEndian.Uint16(buf[22:24]) {
		return Header{}, ErrMalformed
	}

	if buf[0] != wireVersion {
		return Header{}, ErrMalformed
	}

	priority := buf[1]
	if priority > byte(PriorityMax) {
		return Header{}, ErrMalformed
	}

	reserved := binary.LittleEndian.Uint16(buf[8:10])
	if reserved != 0 {
		return Header{}, ErrMalformed
	}

	frameIndexEOT := binary.LittleEndian.Uint32(buf[18:22])
	if frameIndexEOT != 1<<31 {
		// Either not end-of-transfer, or a non-zero frame index: this
		// implementation handles single-frame transfers only.
		return Header{}, ErrMalformed
	}

	sourceNode := binary.LittleEndian.Uint16(buf[2:4])
	destNode := binary.LittleEndian.Uint16(buf[4:6])
	spec := binary.LittleEndian.Uint16(buf[6:8])

	h := Header{
		Priority:   Priority(priority),
		SourceNode: sourceNode,
		DestNode:   destNode,
		TransferID: binary.LittleEndian.Uint64(buf[10:18]),
	}

	isService := spec&(1<<bitServiceFlag) != 0
	if isService {
		if spec&(1<<bitRequestFlag) != 0 {
			h.Kind = KindRequest
		} else {
			h.Kind = KindResponse
		}
		h.PortID = spec & portIDMask
		if h.PortID > ServiceIDMax {
			return Header{}, ErrMalformed
		}
	} else {
		h.Kind = KindMessage
		anonymous := spec&(1<<bitAnonymousFlg) != 0
		if anonymous != (sourceNode == NodeIDUnset) {
			return Header{}, ErrMalformed
		}
		// The 13-bit port field cannot exceed SubjectIDMax (8191), so
		// no separate range check is needed here.
		h.PortID = spec & portIDMask
	}

	return h, nil
}
