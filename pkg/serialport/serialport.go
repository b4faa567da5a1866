// Package serialport adapts a real serial device to the byte sink and
// byte source the transport core is deliberately decoupled from. It is
// grounded on the teacher pack's own UART adapter, which opens a
// github.com/tarm/serial port and feeds it byte-at-a-time into a state
// machine; this package runs no framing of its own: Read is the byte
// source its caller feeds to an rx.Reassembler, and EmitFragment is a
// tx.EmitFunc-shaped sink.
package serialport

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Config mirrors the fields of serial.Config this module actually uses.
type Config struct {
	Device      string
	BaudRate    int
	ReadTimeout int // milliseconds; 0 blocks until at least one byte arrives
}

// conn is the narrow surface Port needs from *serial.Port, kept as an
// interface so tests can substitute an in-memory fake instead of opening
// a real device.
type conn interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Close() error
}

// Port wraps an open serial connection.
type Port struct {
	conn conn
}

// Open opens the serial device described by cfg.
func Open(cfg Config) (*Port, error) {
	sc := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.BaudRate,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: msToDuration(cfg.ReadTimeout),
	}
	c, err := serial.OpenPort(sc)
	if err != nil {
		return nil, fmt.Errorf("serialport: open %s: %w", cfg.Device, err)
	}
	return &Port{conn: c}, nil
}

// Close releases the underlying device.
func (p *Port) Close() error {
	return p.conn.Close()
}

// Read satisfies io.Reader, reading whatever bytes are immediately
// available into buf.
func (p *Port) Read(buf []byte) (int, error) {
	return p.conn.Read(buf)
}

// EmitFragment writes a single COBS fragment to the wire and reports
// whether the write fully succeeded, the shape tx.EmitFunc expects.
func (p *Port) EmitFragment(fragment []byte) bool {
	n, err := p.conn.Write(fragment)
	return err == nil && n == len(fragment)
}

func msToDuration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
