package transport

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/gousb"
	"go.uber.org/zap"
)

// USBTransport implements Transport over libusb via gousb. One instance owns
// one gousb context for the life of the process.
type USBTransport struct {
	ctx    *gousb.Context
	logger *zap.Logger

	mu        sync.Mutex
	opened    map[string]Identity // devices we opened, for unplug correlation
	callbacks []func(Identity)
	watcher   *watcher
}

// NewUSB creates the transport and starts its unplug watcher.
func NewUSB(logger *zap.Logger) *USBTransport {
	t := &USBTransport{
		ctx:    gousb.NewContext(),
		logger: logger,
		opened: make(map[string]Identity),
	}
	t.watcher = newWatcher(t)
	t.watcher.start()
	return t
}

// ListCandidates opens every attached device whose vendor id is on the
// thermal printer allow-list.
func (t *USBTransport) ListCandidates() ([]Device, error) {
	devs, err := t.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		_, ok := KnownVendor(uint16(desc.Vendor))
		return ok
	})
	if err != nil {
		// OpenDevices can return devices alongside an error for devices it
		// could not open; keep what we got.
		t.logger.Warn("usb enumeration reported errors", zap.Error(err))
	}

	devices := make([]Device, 0, len(devs))
	for _, dev := range devs {
		devices = append(devices, t.wrap(dev))
	}

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Identity().Key() < devices[j].Identity().Key()
	})

	return devices, nil
}

// RequestNewDevice stands in for the pairing prompt: it offers the first
// attached allow-listed device not already excluded. Nothing to offer means
// the "prompt" was dismissed.
func (t *USBTransport) RequestNewDevice(exclude map[string]bool) (Device, error) {
	candidates, err := t.ListCandidates()
	if err != nil {
		return nil, err
	}

	var picked Device
	for _, dev := range candidates {
		if picked == nil && !exclude[dev.Identity().Key()] {
			picked = dev
			continue
		}
		dev.Close()
	}

	if picked == nil {
		return nil, ErrUserCancelled
	}
	return picked, nil
}

// OnDisconnect registers an unplug callback. Callbacks run on the watcher
// goroutine.
func (t *USBTransport) OnDisconnect(fn func(Identity)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.callbacks = append(t.callbacks, fn)
}

// Close stops the watcher and releases the USB context.
func (t *USBTransport) Close() error {
	t.watcher.stop()
	return t.ctx.Close()
}

func (t *USBTransport) wrap(dev *gousb.Device) *usbDevice {
	desc := dev.Desc
	serial, _ := dev.SerialNumber()
	product, _ := dev.Product()

	return &usbDevice{
		transport: t,
		dev:       dev,
		identity: Identity{
			VendorID:     uint16(desc.Vendor),
			ProductID:    uint16(desc.Product),
			SerialNumber: serial,
			Product:      product,
			Bus:          desc.Bus,
			Address:      desc.Address,
		},
		endpoints: make(map[uint8]*gousb.OutEndpoint),
	}
}

func (t *USBTransport) trackOpened(id Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened[id.Key()] = id
}

func (t *USBTransport) untrack(id Identity) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.opened, id.Key())
}

func (t *USBTransport) notifyDisconnect(id Identity) {
	t.mu.Lock()
	callbacks := append([]func(Identity){}, t.callbacks...)
	t.mu.Unlock()

	t.logger.Info("usb device removed", zap.String("device", id.String()))
	for _, fn := range callbacks {
		fn(id)
	}
}

// usbDevice wraps one gousb device handle. The interface claim and endpoint
// cache live here; the registry owns when this is opened or closed.
type usbDevice struct {
	transport *USBTransport
	dev       *gousb.Device
	identity  Identity

	mu        sync.Mutex
	iface     *gousb.Interface
	ifaceDone func()
	endpoints map[uint8]*gousb.OutEndpoint
	open      bool
}

func (d *usbDevice) Identity() Identity { return d.identity }

func (d *usbDevice) IsOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.open
}

// Open claims the device's primary interface. Calling it on an already-open
// device is a no-op success.
func (d *usbDevice) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.open {
		return nil
	}

	// Most printers work on interface 0 alt 0 of the active config. Try the
	// plain claim first, then again with the kernel driver detached.
	iface, done, err := d.dev.DefaultInterface()
	if err != nil {
		d.dev.SetAutoDetach(true)
		iface, done, err = d.dev.DefaultInterface()
	}
	if err != nil {
		return fmt.Errorf("failed to claim interface on %s: %w", d.identity, err)
	}

	d.iface = iface
	d.ifaceDone = done
	d.open = true
	d.transport.trackOpened(d.identity)
	return nil
}

// DetectOutputEndpoint scans the claimed interface for a bulk OUT endpoint.
// There is no fallback guess: a wrong endpoint corrupts printer state.
func (d *usbDevice) DetectOutputEndpoint() (uint8, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return 0, ErrDeviceNotOpen
	}

	for _, epDesc := range d.iface.Setting.Endpoints {
		if epDesc.Direction != gousb.EndpointDirectionOut {
			continue
		}
		if epDesc.TransferType != gousb.TransferTypeBulk {
			continue
		}
		ep, err := d.iface.OutEndpoint(epDesc.Number)
		if err != nil {
			continue
		}
		d.endpoints[uint8(epDesc.Number)] = ep
		return uint8(epDesc.Number), nil
	}

	return 0, fmt.Errorf("%s: %w", d.identity, ErrEndpointNotFound)
}

// Transfer performs one bulk write. A short write is an error; the printer
// would be left with a truncated command stream.
func (d *usbDevice) Transfer(endpoint uint8, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.open {
		return ErrDeviceNotOpen
	}

	ep, ok := d.endpoints[endpoint]
	if !ok {
		out, err := d.iface.OutEndpoint(int(endpoint))
		if err != nil {
			return fmt.Errorf("failed to open endpoint %d on %s: %w", endpoint, d.identity, err)
		}
		d.endpoints[endpoint] = out
		ep = out
	}

	n, err := ep.Write(data)
	if err != nil {
		return fmt.Errorf("bulk write to %s failed: %w", d.identity, err)
	}
	if n < len(data) {
		return fmt.Errorf("short write to %s: %d of %d bytes", d.identity, n, len(data))
	}
	return nil
}

// Close releases the interface claim and the device handle.
func (d *usbDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.iface != nil {
		d.iface.Close()
		if d.ifaceDone != nil {
			d.ifaceDone()
		}
		d.iface = nil
		d.ifaceDone = nil
	}
	d.endpoints = make(map[uint8]*gousb.OutEndpoint)

	if d.open {
		d.open = false
		d.transport.untrack(d.identity)
	}

	return d.dev.Close()
}
