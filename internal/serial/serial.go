// Package serial writes time telegrams to a serial line for an NTP
// reference clock driver.
package serial

import (
	"fmt"
	"io"

	"github.com/sweeney/dcf77-receiver/internal/telegram"
)

// Port is the write side of a serial line.
type Port interface {
	io.WriteCloser

	// Flush discards anything not yet transmitted.
	Flush() error
}

// Config describes a serial line.
type Config struct {
	Device   string // e.g. "/dev/ttyAMA0"
	Baud     int
	Size     byte // data bits
	Parity   byte // 'N', 'E' or 'O'
	StopBits int  // 1 or 2
}

// ConfigFor returns the line settings NTP expects for the given telegram
// format: 7E2 for PZF5xx, 8N1 for Hopf 6021.
func ConfigFor(device string, baud int, f telegram.Format) Config {
	cfg := Config{Device: device, Baud: baud, Size: 8, Parity: 'N', StopBits: 1}
	if f == telegram.PZF5xx {
		cfg.Size, cfg.Parity, cfg.StopBits = 7, 'E', 2
	}
	return cfg
}

// Validate checks the line settings.
func (c Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("serial device is empty")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.Size < 5 || c.Size > 8 {
		return fmt.Errorf("invalid data bits %d", c.Size)
	}
	switch c.Parity {
	case 'N', 'E', 'O':
	default:
		return fmt.Errorf("invalid parity %q", c.Parity)
	}
	if c.StopBits != 1 && c.StopBits != 2 {
		return fmt.Errorf("invalid stop bits %d", c.StopBits)
	}
	return nil
}

// Writer sends telegrams to a Port.
type Writer struct {
	port   Port
	format telegram.Format
}

// NewWriter creates a Writer rendering telegrams in format f.
func NewWriter(port Port, f telegram.Format) *Writer {
	return &Writer{port: port, format: f}
}

// Format returns the telegram format of the writer.
func (w *Writer) Format() telegram.Format {
	return w.format
}

// Write sends one rendered telegram. A short write flushes the line so
// the receiver does not see half a telegram followed by the next one.
func (w *Writer) Write(b []byte) error {
	n, err := w.port.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		if ferr := w.port.Flush(); ferr != nil {
			return fmt.Errorf("write telegram: %w (flush: %v)", err, ferr)
		}
		return fmt.Errorf("write telegram: %w", err)
	}
	return nil
}

// Close closes the underlying port.
func (w *Writer) Close() error {
	return w.port.Close()
}
