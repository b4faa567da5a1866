// Package config loads the link and subscription parameters for a
// Cyphal/serial node from an INI file, the same configuration style the
// teacher uses for its EDS object dictionaries, but scoped to this
// module's own schema rather than CANopen objects.
package config

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Link describes how to reach the serial transport.
type Link struct {
	Device      string
	BaudRate    int
	ReadTimeout int // milliseconds; 0 means block
}

// Subscription describes one subscription to install at startup.
type Subscription struct {
	Kind        string // "message", "response", or "request"
	Port        uint16
	Extent      int
	TimeoutUsec uint64
}

// Config is the fully parsed node configuration.
type Config struct {
	NodeID        uint16
	Link          Link
	Subscriptions []Subscription
}

const (
	defaultBaudRate    = 115200
	defaultExtent      = 256
	defaultTimeoutUsec = 2_000_000
)

// Load reads and validates a Config from the INI file at path.
//
// The expected layout, mirroring the teacher's section-per-concern EDS
// style:
//
//	[node]
//	id = 42
//
//	[link]
//	device = /dev/ttyUSB0
//	baud = 115200
//	read_timeout_ms = 100
//
//	[sub "telemetry"]
//	kind = message
//	port = 1000
//	extent = 512
//	timeout_usec = 2000000
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	cfg := &Config{
		Link: Link{BaudRate: defaultBaudRate},
	}

	nodeSection := f.Section("node")
	cfg.NodeID = uint16(nodeSection.Key("id").MustUint(0xFFFF))

	linkSection := f.Section("link")
	cfg.Link.Device = linkSection.Key("device").String()
	if cfg.Link.Device == "" {
		return nil, fmt.Errorf("config: %s: [link] device is required", path)
	}
	cfg.Link.BaudRate = linkSection.Key("baud").MustInt(defaultBaudRate)
	cfg.Link.ReadTimeout = linkSection.Key("read_timeout_ms").MustInt(0)

	for _, section := range f.Sections() {
		if !isSubscriptionSection(section.Name()) {
			continue
		}
		kind := section.Key("kind").String()
		if kind != "message" && kind != "response" && kind != "request" {
			return nil, fmt.Errorf("config: section %s: kind must be message, response or request, got %q", section.Name(), kind)
		}
		port, err := section.Key("port").Uint()
		if err != nil {
			return nil, fmt.Errorf("config: section %s: port: %w", section.Name(), err)
		}
		cfg.Subscriptions = append(cfg.Subscriptions, Subscription{
			Kind:        kind,
			Port:        uint16(port),
			Extent:      section.Key("extent").MustInt(defaultExtent),
			TimeoutUsec: uint64(section.Key("timeout_usec").MustInt64(defaultTimeoutUsec)),
		})
	}

	return cfg, nil
}

func isSubscriptionSection(name string) bool {
	return len(name) > 5 && name[:5] == "sub \""
}
