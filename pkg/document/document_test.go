package document

import (
	"encoding/json"
	"testing"
	"time"
)

func sampleReceipt() *Receipt {
	return &Receipt{
		Header:      Header{RestaurantName: "Testaurant"},
		OrderNumber: "A-104",
		PlacedAt:    time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Items: []LineItem{
			{Name: "Margherita", Quantity: 1, UnitPrice: "9.50", Total: "9.50"},
			{Name: "Cola", Quantity: 2, UnitPrice: "2.00", Total: "4.00"},
		},
		Total: "13.50",
	}
}

func TestValidateReceipt(t *testing.T) {
	r := sampleReceipt()
	if err := Validate(r); err != nil {
		t.Fatalf("valid receipt rejected: %v", err)
	}

	r.Total = ""
	if err := Validate(r); err == nil {
		t.Error("expected error for missing total")
	}

	r = sampleReceipt()
	r.Header.RestaurantName = ""
	if err := Validate(r); err == nil {
		t.Error("expected error for missing restaurant name")
	}

	r = sampleReceipt()
	r.Items[0].Quantity = 0
	if err := Validate(r); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestValidateEmptyItemsIsValid(t *testing.T) {
	r := sampleReceipt()
	r.Items = nil
	if err := Validate(r); err != nil {
		t.Errorf("empty item list should be valid: %v", err)
	}

	k := &KitchenOrder{OrderNumber: "A-104"}
	if err := Validate(k); err != nil {
		t.Errorf("kitchen order without items should be valid: %v", err)
	}
}

func TestValidateFinancialReportPeriod(t *testing.T) {
	f := &FinancialReport{
		Title:       "Daily summary",
		PeriodStart: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
	}
	if err := Validate(f); err == nil {
		t.Error("expected error for period_end before period_start")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	original := sampleReceipt()

	envelope, err := Wrap(original)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	parsed, ok := doc.(*Receipt)
	if !ok {
		t.Fatalf("expected *Receipt, got %T", doc)
	}
	if parsed.OrderNumber != original.OrderNumber {
		t.Errorf("order number mismatch: got %q, want %q", parsed.OrderNumber, original.OrderNumber)
	}
	if len(parsed.Items) != len(original.Items) {
		t.Errorf("item count mismatch: got %d, want %d", len(parsed.Items), len(original.Items))
	}
	if parsed.Reference() != "A-104" {
		t.Errorf("Reference() = %q, want A-104", parsed.Reference())
	}
}

func TestEnvelopeRejectsMismatchedTag(t *testing.T) {
	e := &Envelope{Type: TypeKitchenOrder, Receipt: sampleReceipt()}
	if _, err := e.Document(); err == nil {
		t.Error("expected error for tag/payload mismatch")
	}
}

func TestEnvelopeRejectsMultiplePayloads(t *testing.T) {
	e := &Envelope{
		Type:         TypeReceipt,
		Receipt:      sampleReceipt(),
		KitchenOrder: &KitchenOrder{OrderNumber: "A-104"},
	}
	if _, err := e.Document(); err == nil {
		t.Error("expected error for multiple payloads")
	}
}

func TestEnvelopeRejectsEmptyPayload(t *testing.T) {
	e := &Envelope{Type: TypeReceipt}
	if _, err := e.Document(); err == nil {
		t.Error("expected error for empty envelope")
	}
}

func TestParseRejectsInvalidDocument(t *testing.T) {
	r := sampleReceipt()
	r.OrderNumber = ""
	envelope, err := Wrap(r)
	if err != nil {
		t.Fatalf("Wrap failed: %v", err)
	}
	data, _ := json.Marshal(envelope)

	if _, err := Parse(data); err == nil {
		t.Error("expected validation error from Parse")
	}
}
