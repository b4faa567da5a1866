// Package rx implements the Cyphal/serial reception side: a streaming,
// byte-at-a-time reassembler that decodes COBS, parses the transfer
// header, verifies the payload CRC, and dispatches completed transfers
// against a subscription registry.
package rx

import (
	"encoding/binary"
	"log/slog"

	"github.com/opencyphal-go/serard/internal/cobs"
	"github.com/opencyphal-go/serard/internal/crc"
	"github.com/opencyphal-go/serard/internal/header"
	"github.com/opencyphal-go/serard/pkg/subscription"
)

// Allocator is the capability the reassembler needs for payload buffer
// storage. Structurally identical to serard.Allocator; defined locally to
// avoid an import cycle with the root package.
type Allocator interface {
	Allocate(size int) []byte
	Free(buf []byte)
}

// Transfer is a completed, CRC-verified reassembly handed to the
// dispatcher. Its fields mirror the root package's TransferMetadata
// without importing it, again to avoid a cycle; serard.Instance.RxAccept
// converts this into the public RxTransfer.
type Transfer struct {
	Priority      header.Priority
	Kind          header.Kind
	PortID        uint16
	RemoteNode    uint16
	TransferID    uint64
	TimestampUsec uint64
	Payload       []byte
}

type state uint8

const (
	stateIdle state = iota
	stateHeader
	statePayload
	stateDiscard
)

// Reassembler holds the byte-at-a-time reception state for one redundant
// link. Its zero value is not ready to use; construct with NewReassembler.
type Reassembler struct {
	cobsDec *cobs.Decoder
	state   state

	headerBuf [header.Size]byte
	headerLen int

	hdr            header.Header
	firstTimestamp uint64
	sub            *subscription.Subscription

	crcAcc    crc.CRC32C
	window    [4]byte
	windowLen int

	payload    []byte
	payloadLen int

	// call-scoped: valid only for the duration of one Accept invocation.
	alloc    Allocator
	registry *subscription.Registry
	callTime uint64

	logger *slog.Logger
}

// NewReassembler returns a Reassembler ready to decode the start of a new
// frame.
func NewReassembler() *Reassembler {
	return &Reassembler{cobsDec: cobs.NewDecoder(), logger: slog.Default()}
}

// SetLogger replaces the reassembler's logger, following the teacher's
// per-component SetLogger convention.
func (r *Reassembler) SetLogger(logger *slog.Logger) {
	r.logger = logger
}

// Accept feeds in, a chunk of raw wire bytes, into the reassembler and,
// once a complete and valid transfer is decoded, dispatches it against
// registry. It returns the number of bytes of in consumed; if consumed is
// less than len(in), a transfer was delivered before the input ended and
// the caller must re-invoke Accept with in[consumed:]. Short inputs are not
// exempt: a frame with an empty payload occupies 31 bytes on the wire,
// both delimiters included, so an input of 32 bytes can leave a residual.
func (r *Reassembler) Accept(alloc Allocator, registry *subscription.Registry, timestampUsec uint64, in []byte) (consumed int, transfer *Transfer, sub *subscription.Subscription, err error) {
	r.alloc = alloc
	r.registry = registry
	r.callTime = timestampUsec

	for i, b := range in {
		if b == cobs.Delimiter {
			t, s := r.endFrame()
			r.resetToIdle()
			if t != nil {
				return i + 1, t, s, nil
			}
			continue
		}

		if r.state == stateIdle {
			r.state = stateHeader
			r.headerLen = 0
		}
		if r.state == stateDiscard {
			continue
		}

		decoded, ok := r.cobsDec.DecodeByte(b)
		if !ok {
			continue
		}

		switch r.state {
		case stateHeader:
			r.appendHeaderByte(decoded)
		case statePayload:
			r.appendPayloadByte(decoded)
		}
	}
	return len(in), nil, nil, nil
}

func (r *Reassembler) appendHeaderByte(b byte) {
	r.headerBuf[r.headerLen] = b
	r.headerLen++
	if r.headerLen < header.Size {
		return
	}

	hdr, err := header.Parse(r.headerBuf[:])
	if err != nil {
		r.logger.Debug("discarding frame with malformed header", "err", err)
		r.state = stateDiscard
		return
	}

	sub := r.registry.Find(hdr.Kind, hdr.PortID)
	if sub == nil {
		r.logger.Debug("discarding frame for unknown subscription", "kind", hdr.Kind, "port", hdr.PortID)
		r.state = stateDiscard
		return
	}

	r.hdr = hdr
	r.sub = sub
	r.firstTimestamp = r.callTime
	r.crcAcc = crc.NewCRC32C()
	r.windowLen = 0
	r.payloadLen = 0
	r.payload = r.alloc.Allocate(sub.Extent)
	r.state = statePayload
}

func (r *Reassembler) appendPayloadByte(b byte) {
	if r.windowLen < 4 {
		r.window[r.windowLen] = b
		r.windowLen++
		return
	}

	oldest := r.window[0]
	r.window[0] = r.window[1]
	r.window[1] = r.window[2]
	r.window[2] = r.window[3]
	r.window[3] = b

	r.crcAcc.Single(oldest)
	if r.payloadLen < len(r.payload) {
		r.payload[r.payloadLen] = oldest
		r.payloadLen++
	}
}

// endFrame finalises whatever has been accumulated when a delimiter is
// seen. It returns a non-nil transfer only when the state was Payload,
// the CRC trailer matched, and the dispatcher accepted the transfer per
// the transfer-ID policy; otherwise it returns nil and the frame (if any)
// is silently dropped. The payload buffer allocated for the frame becomes
// the delivered transfer's Payload, or is freed through the allocator when
// the frame is dropped.
func (r *Reassembler) endFrame() (*Transfer, *subscription.Subscription) {
	if r.state != statePayload {
		return nil, nil
	}
	if r.windowLen != 4 {
		r.alloc.Free(r.payload)
		r.payload = nil
		return nil, nil // not enough trailing bytes to hold the CRC
	}
	if r.crcAcc.Value() != binary.LittleEndian.Uint32(r.window[:]) {
		r.logger.Warn("discarding frame with bad payload CRC", "port", r.hdr.PortID, "transfer_id", r.hdr.TransferID)
		r.alloc.Free(r.payload)
		r.payload = nil
		return nil, nil
	}

	t := &Transfer{
		Priority:      r.hdr.Priority,
		Kind:          r.hdr.Kind,
		PortID:        r.hdr.PortID,
		RemoteNode:    r.hdr.SourceNode,
		TransferID:    r.hdr.TransferID,
		TimestampUsec: r.firstTimestamp,
		Payload:       r.payload[:r.payloadLen],
	}
	transfer, sub := dispatch(r.sub, t)
	if transfer != nil {
		r.logger.Debug("delivered transfer", "port", transfer.PortID, "remote", transfer.RemoteNode, "transfer_id", transfer.TransferID, "bytes", len(transfer.Payload))
	} else {
		r.alloc.Free(r.payload)
	}
	r.payload = nil
	return transfer, sub
}

func (r *Reassembler) resetToIdle() {
	r.cobsDec.Reset()
	r.state = stateIdle
	r.headerLen = 0
	r.payloadLen = 0
	r.windowLen = 0
	r.sub = nil
}
