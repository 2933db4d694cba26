package serial

import (
	"fmt"

	"github.com/tarm/serial"
)

// RealPort wraps a tarm/serial port.
type RealPort struct {
	port *serial.Port
}

// Open opens the serial device described by cfg.
func Open(cfg Config) (*RealPort, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:     cfg.Device,
		Baud:     cfg.Baud,
		Size:     cfg.Size,
		Parity:   serial.Parity(cfg.Parity),
		StopBits: serial.StopBits(cfg.StopBits),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return &RealPort{port: port}, nil
}

// Write implements io.Writer.
func (p *RealPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Flush discards buffered data.
func (p *RealPort) Flush() error {
	return p.port.Flush()
}

// Close closes the port.
func (p *RealPort) Close() error {
	if p.port == nil {
		return nil
	}
	return p.port.Close()
}
