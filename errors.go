package serard

import "errors"

// Sentinel errors of the public API. TxPush and RxSubscribe return
// ErrInvalidArgument for out-of-range arguments; TxPush's int32 result is
// then the legacy numeric code CodeInvalidArgument, for callers porting
// code from the C API this module is descended from. No function in this
// package returns ErrOutOfMemory or CodeOutOfMemory: RxAccept does not
// check the buffers the Allocator returns.
var (
	ErrInvalidArgument = errors.New("serard: invalid argument")
	ErrOutOfMemory     = errors.New("serard: out of memory")
)

// Legacy status codes, preserved from the original C API's return-value
// convention (1 is intentionally unused there and here).
const (
	CodeInvalidArgument int8 = -2
	CodeOutOfMemory     int8 = -3
)
