// neovi-ls enumerates attached Intrepid devices through the binding and
// prints what the native library knows about them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	icsneo "github.com/vehnet/go-icsneo"
)

// Populated via -ldflags at release build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	jsonOut := flag.Bool("json", false, "JSON output")
	withEvents := flag.Bool("events", false, "Include each device's diagnostic events")
	clearEvents := flag.Bool("clear-events", false, "Discard device events after dumping them (implies -events)")
	supported := flag.Bool("supported", false, "Include the supported-device-type table")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()
	if *showVersion {
		fmt.Printf("neovi-ls %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if *clearEvents {
		*withEvents = true
	}
	if err := run(os.Stdout, *jsonOut, *withEvents, *clearEvents, *supported); err != nil {
		fmt.Fprintf(os.Stderr, "neovi-ls: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer, jsonOut, withEvents, clearEvents, supported bool) error {
	defer icsneo.FreeUnconnectedDevices()

	r := report{LibraryVersion: icsneo.LibraryVersion().String()}

	devs, err := icsneo.FindAll()
	if err != nil && !errors.Is(err, icsneo.ErrNoDevices) {
		return fmt.Errorf("find devices: %w", err)
	}
	for _, d := range devs {
		info := deviceInfo{
			Serial: d.Serial(),
			Type:   d.Type().String(),
			Valid:  d.Valid(),
		}
		// Describe and product name need no open session; failures leave
		// the column empty rather than aborting the listing.
		info.Description, _ = d.Describe()
		info.Product, _ = d.ProductName()
		if withEvents {
			evs, err := d.Events()
			if err == nil {
				for _, ev := range evs {
					info.Events = append(info.Events, eventInfo{
						Severity:    ev.Severity.String(),
						Description: ev.Description,
						Code:        ev.EventNumber,
					})
				}
			}
			if clearEvents {
				d.DiscardEvents()
			}
		}
		r.Devices = append(r.Devices, info)
	}

	if supported {
		types, err := icsneo.SupportedDevices()
		if err != nil {
			return fmt.Errorf("supported devices: %w", err)
		}
		for _, t := range types {
			name, _ := icsneo.ProductNameForType(t)
			r.Supported = append(r.Supported, supportedInfo{Type: t.String(), Product: name})
		}
	}

	if jsonOut {
		return renderJSON(out, r)
	}
	return renderText(out, r)
}
