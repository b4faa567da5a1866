// Package cobs implements Consistent-Overhead Byte Stuffing, used on the
// Cyphal/serial wire to remove the 0x00 delimiter byte from frame interiors.
package cobs

// Delimiter is the single byte value reserved for framing. It never
// appears inside an encoded block.
const Delimiter byte = 0x00

// maxBlock is the largest number of bytes (including the length byte
// itself) a single COBS block may cover.
const maxBlock = 0xFF

// Sink receives one or more encoded bytes at a time. Fragments passed to it
// are always non-empty and never larger than 255 bytes, matching the
// emitter's fragment-size contract. Returning false aborts encoding.
type Sink func(fragment []byte) bool

// Encoder streams COBS-encoded output to a Sink, one logical frame payload
// at a time. Its state is a fixed-size buffer holding the data bytes of the
// current block, whose code byte cannot be emitted until the block ends.
type Encoder struct {
	sink Sink

	// block buffers the bytes following the code byte of the current
	// COBS block (length < maxBlock-1, since block length is capped).
	block   [maxBlock - 1]byte
	blockAt int
	aborted bool
}

// NewEncoder returns an Encoder that streams output to sink.
func NewEncoder(sink Sink) *Encoder {
	return &Encoder{sink: sink}
}

// WriteByte feeds one raw byte into the encoder. Zero bytes are stuffed
// away transparently; the caller never needs to special-case them.
func (e *Encoder) WriteByte(b byte) bool {
	if e.aborted {
		return false
	}
	if b == Delimiter {
		e.aborted = !e.flushBlock()
		return !e.aborted
	}
	e.block[e.blockAt] = b
	e.blockAt++
	if e.blockAt == len(e.block) {
		e.aborted = !e.flushBlock()
	}
	return !e.aborted
}

// Write feeds a slice of raw bytes into the encoder.
func (e *Encoder) Write(data []byte) bool {
	for _, b := range data {
		if !e.WriteByte(b) {
			return false
		}
	}
	return true
}

// flushBlock emits the code byte followed by whatever data has accumulated
// in the current block, then resets the block.
func (e *Encoder) flushBlock() bool {
	code := byte(e.blockAt + 1)
	fragment := make([]byte, 0, maxBlock)
	fragment = append(fragment, code)
	fragment = append(fragment, e.block[:e.blockAt]...)
	e.blockAt = 0
	return e.sink(fragment)
}

// Finish flushes any residual block (emitting its code byte even if no
// data bytes follow) and must be called exactly once, after all payload
// bytes have been written, to complete the COBS encoding of the frame.
func (e *Encoder) Finish() bool {
	if e.aborted {
		return false
	}
	return e.flushBlock()
}

// decoderState names the states of the byte-at-a-time COBS decoder.
type decoderState uint8

const (
	// stateAwaitCode is waiting for the next block's code byte.
	stateAwaitCode decoderState = iota
	// stateInBlock is emitting the data bytes of the current block.
	stateInBlock
)

// Decoder undoes COBS encoding one byte at a time. It never allocates: the
// decoded byte is returned directly to the caller for further processing
// (accumulation into a header or payload buffer happens one level up).
//
// The implicit zero that terminates a non-full block is emitted lazily, on
// the byte that starts the following block, rather than eagerly when the
// block ends. This is what makes frame-ending delimiters unambiguous: a
// zero pending at end-of-frame was only a block-length artifact and is
// discarded by Reset rather than being emitted as a spurious trailing byte.
type Decoder struct {
	state       decoderState
	remaining   byte // data bytes left to copy in the current block
	pendingZero bool // an implicit zero is owed before the next block's data
}

// NewDecoder returns a Decoder ready to decode the start of a new frame.
func NewDecoder() *Decoder {
	return &Decoder{state: stateAwaitCode}
}

// Reset returns the decoder to its initial state, discarding any partial
// block and any zero owed from the previous block. This mirrors the spec's
// invariant that any decoder state is safely reset to AwaitFrameStart on a
// delimiter, with no partial state persisting across frames.
func (d *Decoder) Reset() {
	d.state = stateAwaitCode
	d.remaining = 0
	d.pendingZero = false
}

// DecodeByte feeds one raw wire byte (never the frame Delimiter -- that is
// handled by the caller, which calls Reset on delimiters) into the decoder.
//
// out, ok is the decoded data byte, if any, produced by this input byte.
func (d *Decoder) DecodeByte(b byte) (out byte, ok bool) {
	switch d.state {
	case stateAwaitCode:
		owed, hadOwed := Delimiter, d.pendingZero
		d.remaining = b - 1
		d.pendingZero = b != maxBlock
		d.state = stateInBlock
		if d.remaining == 0 {
			d.state = stateAwaitCode
		}
		return owed, hadOwed

	case stateInBlock:
		d.remaining--
		if d.remaining == 0 {
			d.state = stateAwaitCode
		}
		return b, true
	}
	return 0, false
}
