// Command serardcat opens a serial device, decodes Cyphal/serial
// transfers off it for one or more subscriptions, and logs each
// delivered transfer (optionally republishing it to Redis). It is the
// CLI front-end for this module, in the same plain flag-package,
// logrus-at-Debug style as the teacher's cmd/canopen.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/opencyphal-go/serard"
	"github.com/opencyphal-go/serard/pkg/bridge"
	"github.com/opencyphal-go/serard/pkg/config"
	"github.com/opencyphal-go/serard/pkg/rx"
	"github.com/opencyphal-go/serard/pkg/serialport"
)

const (
	defaultDevice = "/dev/ttyUSB0"
	defaultBaud   = 115200
	defaultExtent = 256
	defaultKind   = "message"
)

func main() {
	configPath := flag.String("config", "", "INI file with link and subscription parameters (see pkg/config); -port and -baud override its [link] values when they differ from their defaults")
	device := flag.String("port", defaultDevice, "serial device path")
	baud := flag.Int("baud", defaultBaud, "baud rate")
	kindFlag := flag.String("kind", defaultKind, "transfer kind: message, response, or request (ignored if -config supplies its own subscriptions)")
	subject := flag.Uint("subject", 0, "port ID to subscribe to (ignored if -config supplies its own subscriptions)")
	extent := flag.Int("extent", defaultExtent, "maximum payload bytes to retain")
	timeoutUsec := flag.Uint64("timeout-usec", serard.DefaultTransferIDTimeoutUsec, "session inactivity timeout in microseconds")
	bridgeAddr := flag.String("bridge-addr", "", "if set, republish delivered transfers to this Redis address")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	subs, err := resolveSubscriptions(*configPath, *device, *baud, *kindFlag, uint16(*subject), *extent, *timeoutUsec)
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	port, err := serialport.Open(serialport.Config{Device: subs.device, BaudRate: subs.baud})
	if err != nil {
		fmt.Printf("could not open serial device %v: %v\n", subs.device, err)
		os.Exit(1)
	}
	defer port.Close()

	inst := serard.Init(serard.DefaultAllocator{})
	for _, s := range subs.entries {
		if _, _, err := inst.RxSubscribe(s.kind, s.port, s.extent, s.timeoutUsec); err != nil {
			fmt.Printf("failed to subscribe to port %v: %v\n", s.port, err)
			os.Exit(1)
		}
	}

	var telemetry *bridge.Bridge
	if *bridgeAddr != "" {
		telemetry, err = bridge.New(bridge.Config{Addr: *bridgeAddr})
		if err != nil {
			fmt.Printf("could not connect to bridge at %v: %v\n", *bridgeAddr, err)
			os.Exit(1)
		}
		defer telemetry.Close()
	}

	log.Infof("serardcat listening on %s at %d baud, %d subscription(s)", subs.device, subs.baud, len(subs.entries))

	reassembler := rx.NewReassembler()
	buf := make([]byte, 256)
	start := time.Now()

	for {
		n, err := port.Read(buf)
		if err != nil {
			log.Errorf("read error: %v", err)
			continue
		}
		if n == 0 {
			continue
		}

		in := buf[:n]
		for len(in) > 0 {
			timestampUsec := uint64(time.Since(start).Microseconds())
			consumed, transfer, sub, err := inst.RxAccept(reassembler, timestampUsec, in)
			if err != nil {
				log.Debugf("accept error: %v", err)
			}
			if transfer != nil {
				log.Infof("transfer: port=%d remote=%d id=%d bytes=%d extent=%d",
					transfer.Metadata.PortID, transfer.Metadata.RemoteNode,
					transfer.Metadata.TransferID, len(transfer.Payload), sub.Extent)
				if telemetry != nil {
					if err := telemetry.Publish(transfer); err != nil {
						log.Errorf("bridge publish error: %v", err)
					}
				}
			}
			in = in[consumed:]
		}
	}
}

func parseKind(s string) (serard.Kind, error) {
	switch s {
	case "message":
		return serard.KindMessage, nil
	case "response":
		return serard.KindResponse, nil
	case "request":
		return serard.KindRequest, nil
	default:
		return 0, fmt.Errorf("unknown kind %q", s)
	}
}

type subscriptionEntry struct {
	kind        serard.Kind
	port        uint16
	extent      int
	timeoutUsec uint64
}

type resolvedConfig struct {
	device  string
	baud    int
	entries []subscriptionEntry
}

// resolveSubscriptions builds the device/baud/subscription list to run
// with: when configPath is set, it loads pkg/config's INI file and uses
// its link and subscription parameters, with the CLI's own -port/-baud
// flags taking precedence whenever their values differ from
// defaultDevice and defaultBaud. Without
// -config, it falls back to a single subscription built from the
// remaining flags, as before.
func resolveSubscriptions(configPath string, flagDevice string, flagBaud int, flagKind string, flagPort uint16, flagExtent int, flagTimeoutUsec uint64) (resolvedConfig, error) {
	if configPath == "" {
		kind, err := parseKind(flagKind)
		if err != nil {
			return resolvedConfig{}, err
		}
		return resolvedConfig{
			device: flagDevice,
			baud:   flagBaud,
			entries: []subscriptionEntry{
				{kind: kind, port: flagPort, extent: flagExtent, timeoutUsec: flagTimeoutUsec},
			},
		}, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return resolvedConfig{}, err
	}

	out := resolvedConfig{device: cfg.Link.Device, baud: cfg.Link.BaudRate}
	if flagDevice != defaultDevice {
		out.device = flagDevice
	}
	if flagBaud != defaultBaud {
		out.baud = flagBaud
	}

	for _, s := range cfg.Subscriptions {
		kind, err := parseKind(s.Kind)
		if err != nil {
			return resolvedConfig{}, err
		}
		out.entries = append(out.entries, subscriptionEntry{
			kind:        kind,
			port:        s.Port,
			extent:      s.Extent,
			timeoutUsec: s.TimeoutUsec,
		})
	}
	return out, nil
}
