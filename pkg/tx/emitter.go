// Package tx implements the Cyphal/serial emission side: validating
// outgoing transfer metadata, building the fixed header, and streaming a
// COBS-encoded, CRC-guarded, delimiter-framed transfer through a
// caller-supplied sink. The emitter holds no heap memory and never calls
// an allocator.
package tx

import (
	"encoding/binary"
	"errors"

	"github.com/opencyphal-go/serard/internal/cobs"
	"github.com/opencyphal-go/serard/internal/crc"
	"github.com/opencyphal-go/serard/internal/header"
)

// ErrInvalidArgument is returned by Push when metadata is out of range
// for its kind, or the remote node field disagrees with what the kind
// requires (unset for Message, set for Request/Response).
var ErrInvalidArgument = errors.New("tx: invalid argument")

// Metadata is the outgoing transfer's addressing and sequencing fields.
// It mirrors the root package's TransferMetadata without importing it,
// to avoid an import cycle; serard.Instance.TxPush converts between the
// two.
type Metadata struct {
	Priority   header.Priority
	Kind       header.Kind
	PortID     uint16
	RemoteNode uint16
	TransferID uint64
}

// EmitFunc receives one or more wire bytes at a time: the opening frame
// delimiter, then the COBS-encoded blocks, then the closing delimiter.
// Returning false aborts the transfer; no further calls are made for it.
type EmitFunc func(fragment []byte) bool

func portMax(kind header.Kind) uint16 {
	if kind == header.KindMessage {
		return header.SubjectIDMax
	}
	return header.ServiceIDMax
}

func validate(m Metadata) bool {
	if m.Priority > header.PriorityMax {
		return false
	}
	switch m.Kind {
	case header.KindMessage:
		if m.RemoteNode != header.NodeIDUnset {
			return false
		}
	case header.KindRequest, header.KindResponse:
		if m.RemoteNode == header.NodeIDUnset {
			return false
		}
	default:
		return false
	}
	return m.PortID <= portMax(m.Kind)
}

// Push validates metadata, then streams a single-frame transfer carrying
// payload through emit: opening delimiter, COBS-encoded header, COBS-
// encoded payload, COBS-encoded CRC-32C trailer, flush, closing
// delimiter. localNode is the sending instance's own node ID (possibly
// NodeIDUnset, for an anonymous Message transfer); it becomes the
// header's source node field, while m.RemoteNode becomes the
// destination for Request/Response and is left unused on the wire for
// Message (which has no single destination).
//
// It returns a negative value without calling emit if metadata is
// invalid; zero if emit aborted the frame partway through (the caller
// must treat the partial frame as discarded by the link); a positive
// count of wire bytes emitted on success.
func Push(m Metadata, localNode uint16, payload []byte, emit EmitFunc) (int32, error) {
	if !validate(m) {
		return int32(-2), ErrInvalidArgument
	}

	destNode := header.NodeIDUnset
	if m.Kind != header.KindMessage {
		destNode = m.RemoteNode
	}

	var buf [header.Size]byte
	header.Pack(header.Header{
		Priority:   m.Priority,
		SourceNode: localNode,
		DestNode:   destNode,
		Kind:       m.Kind,
		PortID:     m.PortID,
		TransferID: m.TransferID,
	}, buf[:])

	wireBytes := int32(0)
	ok := emit([]byte{cobs.Delimiter})
	wireBytes++
	if !ok {
		return 0, nil
	}

	enc := cobs.NewEncoder(func(fragment []byte) bool {
		wireBytes += int32(len(fragment))
		return emit(fragment)
	})

	if !enc.Write(buf[:]) {
		return 0, nil
	}

	acc := crc.NewCRC32C()
	acc.Block(payload)
	if !enc.Write(payload) {
		return 0, nil
	}

	var trailer [4]byte
	binary.LittleEndian.PutUint32(trailer[:], acc.Value())
	if !enc.Write(trailer[:]) {
		return 0, nil
	}

	if !enc.Finish() {
		return 0, nil
	}

	if !emit([]byte{cobs.Delimiter}) {
		return 0, nil
	}
	wireBytes++

	return wireBytes, nil
}
