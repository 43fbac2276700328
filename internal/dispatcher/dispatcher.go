// Package dispatcher is the orchestration entry point: it resolves the
// printer for a role, encodes the document, pushes the bytes out and records
// the outcome. Printing is a best-effort side effect; nothing here is ever
// fatal to the business action that triggered it.
package dispatcher

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/encoder"
	"github.com/thereceipt/pos-print-engine/internal/history"
	"github.com/thereceipt/pos-print-engine/internal/registry"
	"github.com/thereceipt/pos-print-engine/pkg/document"
)

var (
	// ErrNoPrinterConnected means no connected printer serves the role.
	ErrNoPrinterConnected = errors.New("no printer connected for role")

	// ErrDeviceUnavailable means the device could not be opened or reopened.
	ErrDeviceUnavailable = errors.New("printer device unavailable")
)

// Outcome reports one print() call. CopiesPrinted < CopiesRequested with a
// non-nil Err is a partial failure: some paper came out before the device
// rejected a transfer.
type Outcome struct {
	DocumentType    document.Type `json:"document_type"`
	Role            registry.Role `json:"role"`
	PrinterName     string        `json:"printer_name"`
	CopiesRequested int           `json:"copies_requested"`
	CopiesPrinted   int           `json:"copies_printed"`
	Err             error         `json:"-"`
}

// Success reports whether every requested copy was confirmed.
func (o Outcome) Success() bool { return o.Err == nil }

// Notifier plays the post-print notification cue. Implementations must be
// best-effort: they get a send function and may fail silently.
type Notifier interface {
	Notify(dialect registry.Dialect, send func([]byte) error)
}

// BuzzerNotifier drives the printer's own buzzer through the open transport
// handle, the device-native stand-in for the front-of-house chime.
type BuzzerNotifier struct{}

func (BuzzerNotifier) Notify(dialect registry.Dialect, send func([]byte) error) {
	// Failure is ignored; the cue never affects the reported outcome.
	_ = send(encoder.Buzzer(dialect))
}

// Options are the encoding collaborators shared by all prints.
type Options struct {
	TrackingBaseURL string
	Logos           encoder.LogoFetcher
	Notifier        Notifier
}

// Dispatcher serializes prints per role and fans work out to the registry,
// encoder and ledger.
type Dispatcher struct {
	registry *registry.Registry
	store    *registry.Store
	ledger   *history.Ledger
	opts     Options
	logger   *zap.Logger

	mu        sync.Mutex
	roleLocks map[registry.Role]*sync.Mutex
}

// New builds a dispatcher. A nil Notifier defaults to the printer buzzer.
func New(reg *registry.Registry, store *registry.Store, ledger *history.Ledger, opts Options, logger *zap.Logger) *Dispatcher {
	if opts.Notifier == nil {
		opts.Notifier = BuzzerNotifier{}
	}
	return &Dispatcher{
		registry:  reg,
		store:     store,
		ledger:    ledger,
		opts:      opts,
		logger:    logger,
		roleLocks: make(map[registry.Role]*sync.Mutex),
	}
}

// roleLock returns the mutex serializing transfers for one role. Different
// roles address different devices and may print concurrently; two prints to
// the same role must never interleave bulk writes.
func (d *Dispatcher) roleLock(role registry.Role) *sync.Mutex {
	d.mu.Lock()
	defer d.mu.Unlock()

	lock, ok := d.roleLocks[role]
	if !ok {
		lock = &sync.Mutex{}
		d.roleLocks[role] = lock
	}
	return lock
}

// Print renders the document for the role's connected printer and sends the
// configured number of copies. Exactly one history entry is recorded per
// call, whatever happens.
func (d *Dispatcher) Print(role registry.Role, doc document.Document) Outcome {
	lock := d.roleLock(role)
	lock.Lock()
	defer lock.Unlock()

	outcome := Outcome{
		DocumentType: doc.DocumentType(),
		Role:         role,
		PrinterName:  string(role),
	}

	if !role.Valid() {
		outcome.Err = fmt.Errorf("unknown role: %s", role)
		d.record(outcome, doc.Reference())
		return outcome
	}

	if err := document.Validate(doc); err != nil {
		outcome.Err = err
		d.record(outcome, doc.Reference())
		return outcome
	}

	printer, ok := d.registry.Lookup(role)
	if !ok {
		outcome.Err = fmt.Errorf("%w: %s", ErrNoPrinterConnected, role)
		d.record(outcome, doc.Reference())
		return outcome
	}
	outcome.PrinterName = printer.Name

	dev, endpoint, err := d.registry.EnsureOpen(printer.ID)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		d.record(outcome, doc.Reference())
		return outcome
	}

	cfg := d.store.Config(role)
	outcome.CopiesRequested = cfg.Copies

	payload, err := encoder.Encode(doc, encoder.Options{
		Dialect:         printer.Dialect,
		Codepage:        printer.Codepage,
		PaperWidthMm:    cfg.PaperWidthMm,
		TrackingBaseURL: d.opts.TrackingBaseURL,
		Logos:           d.opts.Logos,
		Logger:          d.logger,
	})
	if err != nil {
		outcome.Err = fmt.Errorf("failed to encode %s: %w", doc.DocumentType(), err)
		d.record(outcome, doc.Reference())
		return outcome
	}

	// Sequential transfers of the identical buffer; the first failure
	// aborts the remaining copies so a wedged device is not hammered.
	for i := 0; i < cfg.Copies; i++ {
		if err := dev.Transfer(endpoint, payload); err != nil {
			outcome.Err = fmt.Errorf("copy %d of %d: %w", i+1, cfg.Copies, err)
			break
		}
		outcome.CopiesPrinted++
	}

	d.record(outcome, doc.Reference())

	if outcome.Success() && cfg.NotifyOnPrint {
		d.opts.Notifier.Notify(printer.Dialect, func(data []byte) error {
			return dev.Transfer(endpoint, data)
		})
	}

	return outcome
}

// TestPrint sends the fixed self-test document to a specific device,
// bypassing role lookup but not role serialization.
func (d *Dispatcher) TestPrint(printerID string) Outcome {
	printer, ok := d.registry.Get(printerID)
	if !ok {
		outcome := Outcome{DocumentType: document.TypeSelfTest, PrinterName: printerID}
		outcome.Err = fmt.Errorf("printer not found: %s", printerID)
		d.record(outcome, "")
		return outcome
	}

	lock := d.roleLock(printer.Role)
	lock.Lock()
	defer lock.Unlock()

	outcome := Outcome{
		DocumentType:    document.TypeSelfTest,
		Role:            printer.Role,
		PrinterName:     printer.Name,
		CopiesRequested: 1,
	}

	dev, endpoint, err := d.registry.EnsureOpen(printer.ID)
	if err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		d.record(outcome, "")
		return outcome
	}

	cfg := d.store.Config(printer.Role)
	payload, err := encoder.EncodeSelfTest(printer.Name, encoder.Options{
		Dialect:      printer.Dialect,
		Codepage:     printer.Codepage,
		PaperWidthMm: cfg.PaperWidthMm,
		Logger:       d.logger,
	})
	if err != nil {
		outcome.Err = err
		d.record(outcome, "")
		return outcome
	}

	if err := dev.Transfer(endpoint, payload); err != nil {
		outcome.Err = fmt.Errorf("copy 1 of 1: %w", err)
	} else {
		outcome.CopiesPrinted = 1
	}

	d.record(outcome, "")
	return outcome
}

// record writes the single history entry for a print call. A ledger failure
// is logged and swallowed: bookkeeping never turns a good print into an
// error.
func (d *Dispatcher) record(outcome Outcome, reference string) {
	entry := history.Entry{
		Role:         string(outcome.Role),
		PrinterName:  outcome.PrinterName,
		DocumentType: outcome.DocumentType,
		Reference:    reference,
		Success:      outcome.Success(),
	}
	if outcome.Err != nil {
		entry.Error = outcome.Err.Error()
		d.logger.Error("print failed",
			zap.String("document", string(outcome.DocumentType)),
			zap.String("printer", outcome.PrinterName),
			zap.Int("copies_printed", outcome.CopiesPrinted),
			zap.Error(outcome.Err))
	} else {
		d.logger.Info("print completed",
			zap.String("document", string(outcome.DocumentType)),
			zap.String("printer", outcome.PrinterName),
			zap.Int("copies", outcome.CopiesPrinted))
	}

	if err := d.ledger.Record(entry); err != nil {
		d.logger.Warn("failed to record history entry", zap.Error(err))
	}
}
