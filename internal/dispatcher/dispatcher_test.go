package dispatcher

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/history"
	"github.com/thereceipt/pos-print-engine/internal/registry"
	"github.com/thereceipt/pos-print-engine/internal/transport"
	"github.com/thereceipt/pos-print-engine/pkg/document"
)

type fakeDevice struct {
	identity transport.Identity
	open     bool

	mu        sync.Mutex
	transfers int
	failAt    int // fail the Nth transfer (1-based), 0 never fails
	delay     time.Duration
	inflight  int32
	overlap   bool
}

func (d *fakeDevice) Identity() transport.Identity { return d.identity }
func (d *fakeDevice) Open() error                  { d.open = true; return nil }
func (d *fakeDevice) IsOpen() bool                 { return d.open }

func (d *fakeDevice) DetectOutputEndpoint() (uint8, error) { return 0x01, nil }

func (d *fakeDevice) Transfer(endpoint uint8, data []byte) error {
	if !atomic.CompareAndSwapInt32(&d.inflight, 0, 1) {
		d.overlap = true
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	atomic.StoreInt32(&d.inflight, 0)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.transfers++
	if d.failAt > 0 && d.transfers == d.failAt {
		return errors.New("transfer failed")
	}
	return nil
}

func (d *fakeDevice) Close() error { d.open = false; return nil }

func (d *fakeDevice) transferCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.transfers
}

type fakeTransport struct {
	devices []*fakeDevice
}

func (f *fakeTransport) ListCandidates() ([]transport.Device, error) {
	out := make([]transport.Device, 0, len(f.devices))
	for _, d := range f.devices {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeTransport) RequestNewDevice(exclude map[string]bool) (transport.Device, error) {
	for _, d := range f.devices {
		if !exclude[d.identity.Key()] {
			return d, nil
		}
	}
	return nil, transport.ErrUserCancelled
}

func (f *fakeTransport) OnDisconnect(fn func(transport.Identity)) {}
func (f *fakeTransport) Close() error                             { return nil }

type recordingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *recordingNotifier) Notify(dialect registry.Dialect, send func([]byte) error) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
	send([]byte{0x07})
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fixture struct {
	dispatcher *Dispatcher
	registry   *registry.Registry
	store      *registry.Store
	ledger     *history.Ledger
	device     *fakeDevice
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	device := &fakeDevice{
		identity: transport.Identity{
			VendorID: 0x04B8, ProductID: 0x0E15,
			SerialNumber: "SN1", Product: "TM-T20III",
			Bus: 1, Address: 4,
		},
	}

	store, err := registry.NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ledger, err := history.Open("", 100, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	t.Cleanup(func() { ledger.Close() })

	reg := registry.New(&fakeTransport{devices: []*fakeDevice{device}}, store, zap.NewNop())
	notifier := &recordingNotifier{}

	disp := New(reg, store, ledger, Options{Notifier: notifier}, zap.NewNop())

	return &fixture{
		dispatcher: disp,
		registry:   reg,
		store:      store,
		ledger:     ledger,
		device:     device,
		notifier:   notifier,
	}
}

func (f *fixture) connect(t *testing.T, role registry.Role) registry.Printer {
	t.Helper()
	printer, err := f.registry.Connect(role)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	return printer
}

func testReceipt() *document.Receipt {
	return &document.Receipt{
		Header:      document.Header{RestaurantName: "Testaurant"},
		OrderNumber: "A-104",
		PlacedAt:    time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Items: []document.LineItem{
			{Name: "Margherita", Quantity: 1, UnitPrice: "9.50", Total: "9.50"},
		},
		Total: "9.50",
	}
}

func TestPrintSuccess(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if !outcome.Success() {
		t.Fatalf("print failed: %v", outcome.Err)
	}
	if outcome.CopiesRequested != 1 || outcome.CopiesPrinted != 1 {
		t.Errorf("copies = %d/%d, want 1/1", outcome.CopiesPrinted, outcome.CopiesRequested)
	}
	if got := f.device.transferCount(); got != 1 {
		t.Errorf("device saw %d transfers, want 1", got)
	}

	entries, err := f.ledger.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want exactly 1", len(entries))
	}
	if !entries[0].Success || entries[0].Reference != "A-104" {
		t.Errorf("unexpected ledger entry: %+v", entries[0])
	}
	if entries[0].DocumentType != document.TypeReceipt {
		t.Errorf("document type = %q", entries[0].DocumentType)
	}
}

func TestPrintNoPrinterConnected(t *testing.T) {
	f := newFixture(t)

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if !errors.Is(outcome.Err, ErrNoPrinterConnected) {
		t.Fatalf("expected ErrNoPrinterConnected, got %v", outcome.Err)
	}

	entries, err := f.ledger.Recent(10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want 1", len(entries))
	}
	if entries[0].Success {
		t.Error("ledger entry should be a failure")
	}
	// No device name is known; the role stands in.
	if entries[0].PrinterName != "receipt" {
		t.Errorf("printer name = %q, want the role label", entries[0].PrinterName)
	}
}

func TestPrintCopiesAbortOnFirstFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	cfg := registry.DefaultConfig(registry.RoleReceipt)
	cfg.Copies = 3
	if err := f.store.SetConfig(registry.RoleReceipt, cfg); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}
	f.device.failAt = 2

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if outcome.Success() {
		t.Fatal("expected a failed outcome")
	}
	if outcome.CopiesRequested != 3 {
		t.Errorf("CopiesRequested = %d, want 3", outcome.CopiesRequested)
	}
	if outcome.CopiesPrinted != 1 {
		t.Errorf("CopiesPrinted = %d, want 1", outcome.CopiesPrinted)
	}
	if !strings.Contains(outcome.Err.Error(), "copy 2 of 3") {
		t.Errorf("error should name the failing copy: %v", outcome.Err)
	}

	// The third copy is never attempted after the second fails.
	if got := f.device.transferCount(); got != 2 {
		t.Errorf("device saw %d transfers, want 2", got)
	}

	entries, _ := f.ledger.Recent(10)
	if len(entries) != 1 {
		t.Fatalf("got %d ledger entries, want exactly 1 for the whole call", len(entries))
	}
}

func TestPrintRejectsInvalidDocument(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	bad := testReceipt()
	bad.Total = ""

	outcome := f.dispatcher.Print(registry.RoleReceipt, bad)
	if outcome.Success() {
		t.Fatal("expected validation failure")
	}
	if got := f.device.transferCount(); got != 0 {
		t.Errorf("invalid document reached the device: %d transfers", got)
	}

	entries, _ := f.ledger.Recent(10)
	if len(entries) != 1 || entries[0].Success {
		t.Error("validation failure should record one failed entry")
	}
}

func TestNotifierFiresOnKitchenPrints(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleKitchen)

	order := &document.KitchenOrder{
		OrderNumber: "A-104",
		PlacedAt:    time.Now(),
		Items:       []document.LineItem{{Name: "Margherita", Quantity: 1}},
	}

	outcome := f.dispatcher.Print(registry.RoleKitchen, order)
	if !outcome.Success() {
		t.Fatalf("print failed: %v", outcome.Err)
	}
	// Kitchen notifies by default: document transfer plus the cue.
	if f.notifier.count() != 1 {
		t.Errorf("notifier fired %d times, want 1", f.notifier.count())
	}
	if got := f.device.transferCount(); got != 2 {
		t.Errorf("device saw %d transfers, want document + cue", got)
	}
}

func TestNotifierSilentForReceiptRole(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if !outcome.Success() {
		t.Fatalf("print failed: %v", outcome.Err)
	}
	if f.notifier.count() != 0 {
		t.Error("receipt role should not notify by default")
	}
}

func TestNotifierSkippedOnFailure(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleKitchen)
	f.device.failAt = 1

	order := &document.KitchenOrder{
		OrderNumber: "A-104",
		PlacedAt:    time.Now(),
		Items:       []document.LineItem{{Name: "Margherita", Quantity: 1}},
	}

	outcome := f.dispatcher.Print(registry.RoleKitchen, order)
	if outcome.Success() {
		t.Fatal("expected a failed outcome")
	}
	if f.notifier.count() != 0 {
		t.Error("notifier must not fire after a failed print")
	}
}

func TestPrintsToOneRoleNeverInterleave(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)
	f.device.delay = 5 * time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
			if !outcome.Success() {
				t.Errorf("concurrent print failed: %v", outcome.Err)
			}
		}()
	}
	wg.Wait()

	if f.device.overlap {
		t.Error("two transfers for the same role overlapped")
	}
	if got := f.device.transferCount(); got != 4 {
		t.Errorf("device saw %d transfers, want 4", got)
	}
}

func TestTestPrint(t *testing.T) {
	f := newFixture(t)
	printer := f.connect(t, registry.RoleReceipt)

	outcome := f.dispatcher.TestPrint(printer.ID)
	if !outcome.Success() {
		t.Fatalf("test print failed: %v", outcome.Err)
	}
	if outcome.DocumentType != document.TypeSelfTest {
		t.Errorf("document type = %q, want self_test", outcome.DocumentType)
	}
	if got := f.device.transferCount(); got != 1 {
		t.Errorf("device saw %d transfers, want 1", got)
	}

	entries, _ := f.ledger.Recent(10)
	if len(entries) != 1 || entries[0].DocumentType != document.TypeSelfTest {
		t.Error("test print should record one self_test entry")
	}
}

func TestTestPrintUnknownPrinter(t *testing.T) {
	f := newFixture(t)

	outcome := f.dispatcher.TestPrint("nope")
	if outcome.Success() {
		t.Fatal("expected failure for unknown printer")
	}

	entries, _ := f.ledger.Recent(10)
	if len(entries) != 1 || entries[0].Success {
		t.Error("unknown printer should record one failed entry")
	}
}

func TestPrintAfterUnplugAndRepair(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	f.registry.HandleDisconnect(f.device.identity)
	f.connect(t, registry.RoleReceipt)

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if !outcome.Success() {
		t.Fatalf("print after re-pairing failed: %v", outcome.Err)
	}
	if got := f.device.transferCount(); got != 1 {
		t.Errorf("device saw %d transfers, want 1", got)
	}
}

func TestPrintAfterUnplugIsNoPrinterConnected(t *testing.T) {
	f := newFixture(t)
	f.connect(t, registry.RoleReceipt)

	f.registry.HandleDisconnect(f.device.identity)

	outcome := f.dispatcher.Print(registry.RoleReceipt, testReceipt())
	if !errors.Is(outcome.Err, ErrNoPrinterConnected) {
		t.Errorf("expected ErrNoPrinterConnected after unplug, got %v", outcome.Err)
	}
}
