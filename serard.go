// Package serard implements the Cyphal/serial transport: COBS-framed,
// CRC-guarded transfer emission and reception over an arbitrary
// byte-oriented link, plus the subscription registry that drives
// reassembly and delivery. The core is single-threaded and synchronous;
// callers that need concurrent access must serialize it themselves, the
// same contract the teacher's low-level bus manager methods carry.
package serard

import (
	"log/slog"

	"github.com/opencyphal-go/serard/pkg/rx"
	"github.com/opencyphal-go/serard/pkg/subscription"
	"github.com/opencyphal-go/serard/pkg/tx"
)

// Allocator provides the buffer allocation and release capability the
// core needs for session and payload storage. It replaces the original
// C API's pair of free-standing allocate/deallocate function pointers
// with a single idiomatic object.
type Allocator interface {
	Allocate(size int) []byte
	Free(buf []byte)
}

// DefaultAllocator backs Allocate with make and treats Free as a no-op,
// relying on the garbage collector -- appropriate for any target that
// isn't itself memory constrained.
type DefaultAllocator struct{}

func (DefaultAllocator) Allocate(size int) []byte { return make([]byte, size) }
func (DefaultAllocator) Free([]byte)              {}

// Instance is one Cyphal/serial node's transport-layer state: its node
// ID, an opaque user reference, the allocator used for session and
// payload storage, and the subscription registry reception dispatches
// against. Init sets NodeID to NodeIDUnset; an Instance built without Init
// has NodeID 0.
type Instance struct {
	NodeID        uint16
	UserReference any
	Allocator     Allocator
	subscriptions subscription.Registry

	logger *slog.Logger
}

// Init returns a new Instance using alloc for session and payload
// storage, with NodeID defaulting to NodeIDUnset. Logging goes through
// slog.Default() until SetLogger is called.
func Init(alloc Allocator) *Instance {
	if alloc == nil {
		alloc = DefaultAllocator{}
	}
	return &Instance{
		NodeID:    NodeIDUnset,
		Allocator: alloc,
		logger:    slog.Default(),
	}
}

// SetLogger replaces the instance's logger, following the teacher's
// per-component SetLogger convention, and propagates it to the
// subscription registry this instance owns.
func (inst *Instance) SetLogger(logger *slog.Logger) {
	inst.logger = logger
	inst.subscriptions.SetLogger(logger)
}

// TxPush validates metadata, encodes a single-frame transfer, and streams
// it COBS-encoded and delimited through emit. It returns the number of
// bytes the frame would occupy on the wire on success, 0 if emit aborted
// the frame by returning false from one of its calls, or a negative
// legacy status code (see CodeInvalidArgument) if metadata is invalid.
// TxPush never calls the instance's Allocator.
func (inst *Instance) TxPush(metadata TransferMetadata, payload []byte, emit tx.EmitFunc) (int32, error) {
	n, err := tx.Push(tx.Metadata{
		Priority:   metadata.Priority,
		Kind:       metadata.Kind,
		PortID:     metadata.PortID,
		RemoteNode: metadata.RemoteNode,
		TransferID: metadata.TransferID,
	}, inst.NodeID, payload, emit)
	if err != nil {
		inst.logger.Warn("rejected outgoing transfer", "kind", metadata.Kind, "port", metadata.PortID, "err", err)
		return n, ErrInvalidArgument
	}
	inst.logger.Debug("pushed transfer", "kind", metadata.Kind, "port", metadata.PortID, "transfer_id", metadata.TransferID, "bytes", n)
	return n, nil
}

// RxSubscribe registers interest in transfers of kind on port, with
// payloads truncated (but still CRC-verified) to extent bytes and
// sessions reset after timeoutUsec of inactivity. It returns true if this
// replaced an existing subscription for the same (kind, port), false if
// one was newly created.
func (inst *Instance) RxSubscribe(kind Kind, port uint16, extent int, timeoutUsec uint64) (*subscription.Subscription, bool, error) {
	if kind != KindMessage && kind != KindResponse && kind != KindRequest {
		inst.logger.Warn("rejected subscribe with invalid kind", "kind", kind)
		return nil, false, ErrInvalidArgument
	}
	if port > portMax(kind) {
		inst.logger.Warn("rejected subscribe with out-of-range port", "kind", kind, "port", port)
		return nil, false, ErrInvalidArgument
	}
	return inst.subscriptions.Subscribe(inst.Allocator, kind, port, extent, timeoutUsec)
}

// RxUnsubscribe removes the subscription for (kind, port), if any,
// together with its sessions. The instance's allocator is not called,
// since sessions hold no allocator-owned storage. It reports whether a
// subscription was found and removed.
func (inst *Instance) RxUnsubscribe(kind Kind, port uint16) bool {
	return inst.subscriptions.Unsubscribe(inst.Allocator, kind, port)
}

// RxAccept feeds in, a chunk of raw wire bytes, into reassembler and
// drives the dispatcher against this instance's subscription registry.
// It returns the number of bytes of in actually consumed; if consumed is
// less than len(in), the caller must re-invoke Accept with the remainder.
// transfer and sub are non-nil exactly when a transfer was delivered.
func (inst *Instance) RxAccept(reassembler *rx.Reassembler, timestampUsec uint64, in []byte) (consumed int, transfer *RxTransfer, sub *subscription.Subscription, err error) {
	reassembler.SetLogger(inst.logger)
	n, t, s, rerr := reassembler.Accept(inst.Allocator, &inst.subscriptions, timestampUsec, in)
	if t == nil {
		return n, nil, s, rerr
	}
	return n, &RxTransfer{
		Metadata: TransferMetadata{
			Priority:   t.Priority,
			Kind:       t.Kind,
			PortID:     t.PortID,
			RemoteNode: t.RemoteNode,
			TransferID: t.TransferID,
		},
		TimestampUsec: t.TimestampUsec,
		Payload:       t.Payload,
	}, s, rerr
}
