package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
)

// report is the gathered enumeration result, rendered as text or JSON.
type report struct {
	LibraryVersion string          `json:"library_version"`
	Devices        []deviceInfo    `json:"devices"`
	Supported      []supportedInfo `json:"supported,omitempty"`
}

type deviceInfo struct {
	Serial      string      `json:"serial"`
	Description string      `json:"description"`
	Product     string      `json:"product"`
	Type        string      `json:"type"`
	Valid       bool        `json:"valid"`
	Events      []eventInfo `json:"events,omitempty"`
}

type eventInfo struct {
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Code        uint32 `json:"code"`
}

type supportedInfo struct {
	Type    string `json:"type"`
	Product string `json:"product"`
}

func renderJSON(w io.Writer, r report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func renderText(w io.Writer, r report) error {
	fmt.Fprintf(w, "library version: %s\n", r.LibraryVersion)
	if len(r.Devices) == 0 {
		fmt.Fprintln(w, "no devices found")
	} else {
		fmt.Fprintf(w, "%d device(s) found\n\n", len(r.Devices))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SERIAL\tTYPE\tPRODUCT\tDESCRIPTION\tVALID")
		for _, d := range r.Devices {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", d.Serial, d.Type, d.Product, d.Description, d.Valid)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		for _, d := range r.Devices {
			if len(d.Events) == 0 {
				continue
			}
			fmt.Fprintf(w, "\nevents for %s:\n", d.Serial)
			for _, ev := range d.Events {
				fmt.Fprintf(w, "  [%s] %s (code %d)\n", ev.Severity, ev.Description, ev.Code)
			}
		}
	}
	if len(r.Supported) > 0 {
		fmt.Fprintf(w, "\n%d supported device type(s)\n\n", len(r.Supported))
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TYPE\tPRODUCT")
		for _, s := range r.Supported {
			fmt.Fprintf(tw, "%s\t%s\n", s.Type, s.Product)
		}
		return tw.Flush()
	}
	return nil
}
