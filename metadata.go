package serard

import "github.com/opencyphal-go/serard/internal/header"

// Priority is one of the eight ordered transfer priority levels, 0 being
// the highest.
type Priority = header.Priority

// PriorityMax is the lowest valid priority level.
const PriorityMax = header.PriorityMax

// Kind identifies the category of a transfer: Message transfers are
// multicast on a subject; Request and Response transfers are
// point-to-point on a service.
type Kind = header.Kind

const (
	KindMessage  = header.KindMessage
	KindResponse = header.KindResponse
	KindRequest  = header.KindRequest
)

// NumKinds is the number of transfer kinds.
const NumKinds = header.NumKinds

// NodeIDUnset is the sentinel node ID denoting an anonymous source or a
// broadcast destination.
const NodeIDUnset uint16 = header.NodeIDUnset

// NodeIDMax is the largest valid node ID.
const NodeIDMax uint16 = header.NodeIDMax

// SubjectIDMax and ServiceIDMax bound the valid port range per kind.
const (
	SubjectIDMax = header.SubjectIDMax
	ServiceIDMax = header.ServiceIDMax
)

// DefaultTransferIDTimeoutUsec is the default interval, in microseconds,
// after which a session with no activity is reset rather than used for
// transfer-ID deduplication.
const DefaultTransferIDTimeoutUsec uint64 = 2_000_000

// TransferMetadata describes an outgoing or incoming transfer's
// addressing and sequencing fields, independent of its payload.
type TransferMetadata struct {
	Priority   Priority
	Kind       Kind
	PortID     uint16
	RemoteNode uint16
	TransferID uint64
}

// portMax returns the largest valid PortID for kind.
func portMax(kind Kind) uint16 {
	if kind == KindMessage {
		return SubjectIDMax
	}
	return ServiceIDMax
}
