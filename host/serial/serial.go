package serial

import (
	"io"
)

// Port is the byte transport to the controller. Implementations:
//   - Native serial (github.com/tarm/serial)
//   - Loopback (in-memory pair, for tests)
type Port interface {
	io.ReadWriteCloser

	// Flush drops any buffered but unwritten data.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. USB CDC links ignore this.
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the configuration matching the firmware's UART
// settings.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
