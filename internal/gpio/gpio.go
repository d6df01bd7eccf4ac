// Package gpio drives the motion indicator LED with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// LED is a single output line.
type LED interface {
	// Set drives the LED on or off.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// DefaultPinLED is the BCM pin of the indicator LED.
const DefaultPinLED = 17
