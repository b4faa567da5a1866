package serard

// RxTransfer is a transfer delivered to the application by Accept. Payload
// is owned by the caller once Accept returns; the allocator that produced
// it is not retained, so the caller is responsible for eventually freeing
// it back through the same Allocator if it cares about reuse.
type RxTransfer struct {
	Metadata      TransferMetadata
	TimestampUsec uint64
	Payload       []byte
}
