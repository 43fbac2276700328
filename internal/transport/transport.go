// Package transport is the only place raw printer I/O happens. It knows how
// to enumerate, open and write to USB thermal printers; it never decides what
// a device is for or what state the rest of the engine should be in.
package transport

import (
	"errors"
	"fmt"
)

var (
	// ErrUserCancelled means device selection ended without a device. It is
	// a no-op for callers, not a failure.
	ErrUserCancelled = errors.New("device selection cancelled")

	// ErrEndpointNotFound means no bulk OUT endpoint could be detected.
	// Sending to a guessed endpoint silently corrupts printer state, so this
	// is a hard failure that requires re-pairing the device.
	ErrEndpointNotFound = errors.New("no bulk OUT endpoint found")

	// ErrDeviceNotOpen is returned by Transfer before Open succeeded.
	ErrDeviceNotOpen = errors.New("device not open")
)

// Identity carries enough to correlate a physical device across unplug and
// replug. SerialNumber may be empty; Address disambiguates identical models
// on the same bus within one session only.
type Identity struct {
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
	Bus          int
	Address      int
}

// Key returns the session-stable map key for this identity.
func (id Identity) Key() string {
	return fmt.Sprintf("%04x:%04x:%d:%d", id.VendorID, id.ProductID, id.Bus, id.Address)
}

func (id Identity) String() string {
	if id.Product != "" {
		return fmt.Sprintf("%s (%04X:%04X)", id.Product, id.VendorID, id.ProductID)
	}
	return fmt.Sprintf("%04X:%04X", id.VendorID, id.ProductID)
}

// Device is one printer-capable USB device. Open is idempotent; Transfer is
// the only call that moves bytes to hardware.
type Device interface {
	Identity() Identity
	Open() error
	IsOpen() bool
	DetectOutputEndpoint() (uint8, error)
	Transfer(endpoint uint8, data []byte) error
	Close() error
}

// Transport enumerates and hands out devices. Implementations must not touch
// registry state; callers own every state transition.
type Transport interface {
	// ListCandidates returns the allow-listed devices currently attached.
	ListCandidates() ([]Device, error)

	// RequestNewDevice selects one attached, allow-listed device whose
	// identity key is not in exclude. With nothing to offer it returns
	// ErrUserCancelled.
	RequestNewDevice(exclude map[string]bool) (Device, error)

	// OnDisconnect registers a callback fired when a previously opened
	// device is physically removed.
	OnDisconnect(fn func(Identity))

	Close() error
}

// knownVendors is the allow-list of thermal printer vendor ids. Star gets
// special treatment in dialect detection; everything else speaks ESC/POS.
var knownVendors = map[uint16]string{
	0x04B8: "Epson",
	0x0519: "Star Micronics",
	0x1D90: "Citizen",
	0x1504: "Bixolon",
	0x0FE6: "Rongta",
	0x0483: "STMicro bridge",
}

// VendorStar is the vendor id implying the Star PRNT dialect.
const VendorStar uint16 = 0x0519

// KnownVendor reports whether a vendor id is on the thermal printer
// allow-list, and its label when it is.
func KnownVendor(vid uint16) (string, bool) {
	name, ok := knownVendors[vid]
	return name, ok
}
