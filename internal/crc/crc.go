// Package crc implements the two CRC variants used on the Cyphal/serial
// wire: CRC-16/CCITT-FALSE protects the fixed transfer header, and
// CRC-32C (Castagnoli) protects the transfer payload.
package crc

// CRC16 is a CRC-16/CCITT-FALSE accumulator (poly 0x1021, init 0xFFFF, no
// reflection, no xor-out). It is used to protect the fixed-size transfer
// header.
type CRC16 uint16

const crc16InitialValue CRC16 = 0xFFFF

// NewCRC16 returns a fresh CRC-16/CCITT-FALSE accumulator.
func NewCRC16() CRC16 {
	return crc16InitialValue
}

// Single folds one byte into the accumulator.
func (c *CRC16) Single(b byte) {
	*c ^= CRC16(b) << 8
	for range [8]struct{}{} {
		if *c&0x8000 != 0 {
			*c = (*c << 1) ^ 0x1021
		} else {
			*c <<= 1
		}
	}
}

// Block folds every byte of data into the accumulator, in order.
func (c *CRC16) Block(data []byte) {
	for _, b := range data {
		c.Single(b)
	}
}

// CRC32C is a streaming CRC-32C (Castagnoli, reflected, init 0xFFFFFFFF,
// xor-out 0xFFFFFFFF) accumulator, as mandated for Cyphal transfer payload
// protection.
type CRC32C uint32

const crc32cInitialValue CRC32C = 0xFFFFFFFF

var crc32cTable [256]uint32

func init() {
	const poly = 0x82F63B78 // reflected Castagnoli polynomial
	for i := range crc32cTable {
		v := uint32(i)
		for range [8]struct{}{} {
			if v&1 != 0 {
				v = (v >> 1) ^ poly
			} else {
				v >>= 1
			}
		}
		crc32cTable[i] = v
	}
}

// NewCRC32C returns a fresh CRC-32C accumulator.
func NewCRC32C() CRC32C {
	return crc32cInitialValue
}

// Single folds one byte into the accumulator.
func (c *CRC32C) Single(b byte) {
	*c = CRC32C(crc32cTable[byte(*c)^b]) ^ (*c >> 8)
}

// Block folds every byte of data into the accumulator, in order.
func (c *CRC32C) Block(data []byte) {
	for _, b := range data {
		c.Single(b)
	}
}

// Value returns the finalised CRC (accumulator xor-ed out), ready to compare
// against the four wire trailer bytes.
func (c CRC32C) Value() uint32 {
	return uint32(c) ^ 0xFFFFFFFF
}

// Value returns the finalised CRC-16/CCITT-FALSE value.
func (c CRC16) Value() uint16 {
	return uint16(c)
}
