// Package registry owns the mapping from logical printer role to physical
// device. It is the only component allowed to hold an open transport handle.
package registry

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/transport"
)

// Role is the business duty a printer is connected for.
type Role string

const (
	RoleReceipt Role = "receipt"
	RoleKitchen Role = "kitchen"
	RoleInvoice Role = "invoice"
)

// Roles lists every valid role in a fixed order.
var Roles = []Role{RoleReceipt, RoleKitchen, RoleInvoice}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	for _, role := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Dialect selects the opcode encoding a device expects.
type Dialect string

const (
	DialectESCPOS   Dialect = "esc-pos"
	DialectStarPRNT Dialect = "star-prnt"
)

// Status is the connection state of a known printer.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

// Printer is the engine's view of one known device. The transport handle is
// private and only reachable through EnsureOpen while status is connected.
type Printer struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Role     Role    `json:"role"`
	Status   Status  `json:"status"`
	Dialect  Dialect `json:"dialect"`
	Codepage string  `json:"codepage"`
	Endpoint uint8   `json:"endpoint"`
	Serial   string  `json:"serial,omitempty"`

	identity transport.Identity
	device   transport.Device
}

// Registry tracks known printers and their persisted reconnection metadata.
type Registry struct {
	transport transport.Transport
	store     *Store
	logger    *zap.Logger

	mu       sync.Mutex
	printers []*Printer // connect order; Lookup picks the first match
	onChange []func(Printer)
}

// New builds a registry over the given transport and persistent store, and
// subscribes to unplug notifications.
func New(t transport.Transport, store *Store, logger *zap.Logger) *Registry {
	r := &Registry{
		transport: t,
		store:     store,
		logger:    logger,
	}
	t.OnDisconnect(r.HandleDisconnect)
	return r
}

// OnStatusChange registers a hook invoked with a snapshot after any printer
// changes state.
func (r *Registry) OnStatusChange(fn func(Printer)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Connect pairs a new device for the role: select, open, detect dialect and
// endpoint, persist reconnection metadata. Dismissed selection surfaces as
// transport.ErrUserCancelled.
func (r *Registry) Connect(role Role) (Printer, error) {
	if !role.Valid() {
		return Printer{}, fmt.Errorf("unknown role: %s", role)
	}

	r.mu.Lock()
	exclude := make(map[string]bool)
	for _, p := range r.printers {
		if p.Status == StatusConnected {
			exclude[p.identity.Key()] = true
		}
	}
	r.mu.Unlock()

	dev, err := r.transport.RequestNewDevice(exclude)
	if err != nil {
		return Printer{}, err
	}

	printer, err := r.adopt(dev, role)
	if err != nil {
		dev.Close()
		return Printer{}, err
	}

	r.logger.Info("printer connected",
		zap.String("id", printer.ID),
		zap.String("name", printer.Name),
		zap.String("role", string(printer.Role)),
		zap.String("dialect", string(printer.Dialect)))

	r.notify(printer)
	return printer, nil
}

// adopt opens the device, detects its endpoint and registers it under the
// role. The caller closes the device if adopt fails.
func (r *Registry) adopt(dev transport.Device, role Role) (Printer, error) {
	if err := dev.Open(); err != nil {
		return Printer{}, fmt.Errorf("failed to open device: %w", err)
	}

	endpoint, err := dev.DetectOutputEndpoint()
	if err != nil {
		return Printer{}, err
	}

	id := dev.Identity()
	dialect := DetectDialect(id.VendorID)

	p := &Printer{
		ID:       printerID(id),
		Name:     printerName(id),
		Role:     role,
		Status:   StatusConnected,
		Dialect:  dialect,
		Codepage: DefaultCodepage(dialect),
		Endpoint: endpoint,
		Serial:   id.SerialNumber,
		identity: id,
		device:   dev,
	}

	r.register(p)

	r.store.SavePrinter(PersistedPrinter{
		ID:            p.ID,
		Name:          p.Name,
		Role:          p.Role,
		Dialect:       p.Dialect,
		Codepage:      p.Codepage,
		Endpoint:      p.Endpoint,
		Serial:        p.Serial,
		VendorID:      id.VendorID,
		ProductID:     id.ProductID,
		AutoReconnect: r.store.Config(role).AutoReconnect,
	})

	return *p, nil
}

// register adds a printer, displacing any earlier entry for the same id or
// physical identity. Re-pairing a device whose unplugged entry is still
// listed must not leave a stale duplicate; id lookups resolve first match.
func (r *Registry) register(p *Printer) {
	r.mu.Lock()
	for i, existing := range r.printers {
		if existing.ID == p.ID || existing.identity.Key() == p.identity.Key() {
			if existing.device != nil && existing.device != p.device {
				existing.device.Close()
			}
			r.printers = append(r.printers[:i], r.printers[i+1:]...)
			break
		}
	}
	r.printers = append(r.printers, p)
	r.mu.Unlock()
}

// Disconnect closes the handle if open, removes the live entry and stops the
// device from being reconnected on the next startup.
func (r *Registry) Disconnect(printerID string) error {
	r.mu.Lock()
	var removed *Printer
	for i, p := range r.printers {
		if p.ID == printerID {
			removed = p
			r.printers = append(r.printers[:i], r.printers[i+1:]...)
			break
		}
	}
	r.mu.Unlock()

	if removed == nil {
		return fmt.Errorf("printer not found: %s", printerID)
	}

	if removed.device != nil {
		removed.device.Close()
		removed.device = nil
	}

	r.store.RemovePrinter(printerID)

	removed.Status = StatusDisconnected
	r.logger.Info("printer disconnected", zap.String("id", printerID))
	r.notify(*removed)
	return nil
}

// HandleDisconnect applies an unplug notification: the matching printer goes
// to disconnected and its handle is dropped, but the entry stays visible so
// the UI can show "was connected, now lost".
func (r *Registry) HandleDisconnect(id transport.Identity) {
	r.mu.Lock()
	var hit *Printer
	for _, p := range r.printers {
		if p.identity.Key() == id.Key() && p.Status == StatusConnected {
			p.Status = StatusDisconnected
			if p.device != nil {
				p.device.Close()
				p.device = nil
			}
			hit = p
			break
		}
	}
	r.mu.Unlock()

	if hit != nil {
		r.logger.Warn("printer unplugged",
			zap.String("id", hit.ID),
			zap.String("name", hit.Name))
		r.notify(*hit)
	}
}

// ReconnectAll attempts a silent reconnect of every persisted printer whose
// captured autoReconnect was true. It runs unattended at startup: failures
// are logged and the entry is simply left absent.
func (r *Registry) ReconnectAll() {
	persisted := r.store.Printers()
	if len(persisted) == 0 {
		return
	}

	candidates, err := r.transport.ListCandidates()
	if err != nil {
		r.logger.Warn("reconnect sweep: enumeration failed", zap.Error(err))
		return
	}

	used := make(map[string]bool)
	for _, entry := range persisted {
		if !entry.AutoReconnect {
			continue
		}

		dev := matchCandidate(candidates, entry, used)
		if dev == nil {
			r.logger.Info("reconnect sweep: device not present",
				zap.String("id", entry.ID), zap.String("name", entry.Name))
			continue
		}
		used[dev.Identity().Key()] = true

		if err := r.reattach(dev, entry); err != nil {
			r.logger.Warn("reconnect sweep: reattach failed",
				zap.String("id", entry.ID), zap.Error(err))
			dev.Close()
		}
	}

	// Release candidates that matched nothing.
	for _, dev := range candidates {
		if !used[dev.Identity().Key()] {
			dev.Close()
		}
	}
}

// reattach opens a previously paired device under its persisted identity.
// The endpoint is always re-detected; it is never assumed stable across
// sessions.
func (r *Registry) reattach(dev transport.Device, entry PersistedPrinter) error {
	if err := dev.Open(); err != nil {
		return err
	}

	endpoint, err := dev.DetectOutputEndpoint()
	if err != nil {
		return err
	}

	p := &Printer{
		ID:       entry.ID,
		Name:     entry.Name,
		Role:     entry.Role,
		Status:   StatusConnected,
		Dialect:  entry.Dialect,
		Codepage: entry.Codepage,
		Endpoint: endpoint,
		Serial:   entry.Serial,
		identity: dev.Identity(),
		device:   dev,
	}

	r.register(p)

	if endpoint != entry.Endpoint {
		entry.Endpoint = endpoint
		r.store.SavePrinter(entry)
	}

	r.logger.Info("printer reconnected",
		zap.String("id", p.ID), zap.String("name", p.Name),
		zap.String("role", string(p.Role)))
	r.notify(*p)
	return nil
}

// matchCandidate finds the attached device for a persisted entry, preferring
// serial number and falling back to vendor/product when the device reports
// no serial.
func matchCandidate(candidates []transport.Device, entry PersistedPrinter, used map[string]bool) transport.Device {
	for _, dev := range candidates {
		id := dev.Identity()
		if used[id.Key()] {
			continue
		}
		if entry.Serial != "" && id.SerialNumber == entry.Serial {
			return dev
		}
	}
	if entry.Serial != "" {
		return nil
	}
	for _, dev := range candidates {
		id := dev.Identity()
		if used[id.Key()] {
			continue
		}
		if id.VendorID == entry.VendorID && id.ProductID == entry.ProductID {
			return dev
		}
	}
	return nil
}

// Lookup returns the first connected printer for the role. With several
// connected for one role the pick is connect order, matching the source
// system's behavior.
func (r *Registry) Lookup(role Role) (Printer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.printers {
		if p.Role == role && p.Status == StatusConnected {
			return *p, true
		}
	}
	return Printer{}, false
}

// Get returns a printer by id.
func (r *Registry) Get(printerID string) (Printer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.printers {
		if p.ID == printerID {
			return *p, true
		}
	}
	return Printer{}, false
}

// List returns snapshots of every known printer in connect order.
func (r *Registry) List() []Printer {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Printer, 0, len(r.printers))
	for _, p := range r.printers {
		out = append(out, *p)
	}
	return out
}

// EnsureOpen hands the dispatcher a usable handle for the printer. A handle
// the OS silently closed is reopened and its endpoint re-detected once.
func (r *Registry) EnsureOpen(printerID string) (transport.Device, uint8, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p *Printer
	for _, candidate := range r.printers {
		if candidate.ID == printerID {
			p = candidate
			break
		}
	}
	if p == nil || p.Status != StatusConnected || p.device == nil {
		return nil, 0, fmt.Errorf("printer not connected: %s", printerID)
	}

	if !p.device.IsOpen() {
		if err := p.device.Open(); err != nil {
			return nil, 0, fmt.Errorf("failed to reopen %s: %w", p.Name, err)
		}
		endpoint, err := p.device.DetectOutputEndpoint()
		if err != nil {
			return nil, 0, err
		}
		p.Endpoint = endpoint
	}

	return p.device, p.Endpoint, nil
}

func (r *Registry) notify(snapshot Printer) {
	r.mu.Lock()
	hooks := append([]func(Printer){}, r.onChange...)
	r.mu.Unlock()

	for _, fn := range hooks {
		fn(snapshot)
	}
}

// DetectDialect maps a vendor id to the opcode dialect: Star hardware speaks
// Star PRNT, everything else defaults to ESC/POS.
func DetectDialect(vendorID uint16) Dialect {
	if vendorID == transport.VendorStar {
		return DialectStarPRNT
	}
	return DialectESCPOS
}

// DefaultCodepage is the vendor-typical text encoding table per dialect.
func DefaultCodepage(dialect Dialect) string {
	if dialect == DialectStarPRNT {
		return "star-ascii"
	}
	return "cp437"
}

func printerID(id transport.Identity) string {
	if id.SerialNumber != "" {
		return id.SerialNumber
	}
	return uuid.New().String()
}

func printerName(id transport.Identity) string {
	if id.Product != "" {
		return id.Product
	}
	if vendor, ok := transport.KnownVendor(id.VendorID); ok {
		return fmt.Sprintf("%s printer", vendor)
	}
	return id.String()
}
