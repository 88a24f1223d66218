package proxy

import (
	"fmt"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// Port describes an available serial port.
type Port struct {
	Name         string
	Description  string
	SerialNumber string
}

// ListPorts returns the serial ports visible on this host, with USB
// metadata when the platform exposes it.
func ListPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err == nil {
		result := make([]Port, 0, len(details))
		for _, d := range details {
			p := Port{Name: d.Name, Description: d.Product, SerialNumber: d.SerialNumber}
			if p.Description == "" {
				p.Description = d.Name
			}
			result = append(result, p)
		}
		return result, nil
	}

	// Detailed enumeration is not available everywhere; fall back to the
	// plain port list.
	names, lerr := serial.GetPortsList()
	if lerr != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", lerr)
	}
	result := make([]Port, 0, len(names))
	for _, name := range names {
		result = append(result, Port{Name: name, Description: name})
	}
	return result, nil
}
