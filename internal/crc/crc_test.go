package crc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRC16CcittSingle(t *testing.T) {
	crc := CRC16(0)
	crc.Single(10)
	assert.EqualValues(t, 0xA14A, crc)
}

func TestCRC16Block(t *testing.T) {
	a := CRC16(0)
	a.Single(1)
	a.Single(2)
	a.Single(3)

	b := CRC16(0)
	b.Block([]byte{1, 2, 3})

	assert.Equal(t, a, b)
}

func TestCRC32CKnownVector(t *testing.T) {
	// "hello" -> 0x9A71BB4C, the payload CRC given in scenario S1 of
	// SPEC_FULL.md.
	c := NewCRC32C()
	c.Block([]byte("hello"))
	assert.Equal(t, uint32(0x9A71BB4C), c.Value())
}

func TestCRC32CStreamingMatchesBulk(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	bulk := NewCRC32C()
	bulk.Block(data)

	streaming := NewCRC32C()
	for _, b := range data {
		streaming.Single(b)
	}

	assert.Equal(t, bulk.Value(), streaming.Value())
}

func TestCRC32CEmpty(t *testing.T) {
	c := NewCRC32C()
	assert.Equal(t, uint32(0), c.Value())
}
