package registry

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestDefaultConfigPerRole(t *testing.T) {
	receipt := DefaultConfig(RoleReceipt)
	if !receipt.AutoReconnect || receipt.PaperWidthMm != 80 || receipt.Copies != 1 {
		t.Errorf("unexpected receipt defaults: %+v", receipt)
	}
	if receipt.NotifyOnPrint {
		t.Error("receipt role should not notify by default")
	}

	kitchen := DefaultConfig(RoleKitchen)
	if !kitchen.NotifyOnPrint {
		t.Error("kitchen role should notify by default")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig(RoleReceipt)
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.PaperWidthMm = 76
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unsupported paper width")
	}

	cfg = DefaultConfig(RoleReceipt)
	cfg.Copies = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero copies")
	}
}

func TestStorePersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.SavePrinter(PersistedPrinter{
		ID: "SN1", Name: "Front", Role: RoleReceipt,
		Dialect: DialectESCPOS, Codepage: "cp437", Endpoint: 0x01,
		Serial: "SN1", VendorID: 0x04B8, ProductID: 0x0E15,
		AutoReconnect: true,
	})

	cfg := DefaultConfig(RoleKitchen)
	cfg.Copies = 2
	cfg.PaperWidthMm = 58
	if err := store.SetConfig(RoleKitchen, cfg); err != nil {
		t.Fatalf("SetConfig failed: %v", err)
	}

	reloaded, err := NewStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}

	printers := reloaded.Printers()
	if len(printers) != 1 {
		t.Fatalf("reloaded %d printers, want 1", len(printers))
	}
	if printers[0].ID != "SN1" || printers[0].Dialect != DialectESCPOS {
		t.Errorf("reloaded printer mismatch: %+v", printers[0])
	}

	got := reloaded.Config(RoleKitchen)
	if got.Copies != 2 || got.PaperWidthMm != 58 {
		t.Errorf("reloaded config mismatch: %+v", got)
	}
}

func TestStoreUpsertsByID(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	entry := PersistedPrinter{ID: "SN1", Name: "Front", Role: RoleReceipt, AutoReconnect: true}
	store.SavePrinter(entry)
	entry.Name = "Renamed"
	store.SavePrinter(entry)

	printers := store.Printers()
	if len(printers) != 1 {
		t.Fatalf("got %d entries, want 1", len(printers))
	}
	if printers[0].Name != "Renamed" {
		t.Errorf("name = %q, want Renamed", printers[0].Name)
	}
}

func TestStoreDiscardsUnknownSchemaVersion(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`{"version": 99, "printers": [{"id": "SN1"}]}`)
	if err := os.WriteFile(filepath.Join(dir, "printers.json"), data, 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	store, err := NewStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if len(store.Printers()) != 0 {
		t.Error("entries from an unknown schema version must be discarded")
	}
}

func TestStoreRejectsInvalidConfig(t *testing.T) {
	store, err := NewStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	bad := Config{AutoReconnect: true, PaperWidthMm: 40, Copies: 1}
	if err := store.SetConfig(RoleReceipt, bad); err == nil {
		t.Error("expected validation error")
	}
	if err := store.SetConfig(Role("bar"), DefaultConfig(RoleReceipt)); err == nil {
		t.Error("expected error for unknown role")
	}
}
