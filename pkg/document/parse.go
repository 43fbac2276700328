package document

import (
	"encoding/json"
	"fmt"
)

// Envelope is the JSON wire form of a document: a type tag plus exactly one
// populated variant field.
type Envelope struct {
	Type            Type             `json:"type"`
	Receipt         *Receipt         `json:"receipt,omitempty"`
	KitchenOrder    *KitchenOrder    `json:"kitchen_order,omitempty"`
	Invoice         *Invoice         `json:"invoice,omitempty"`
	GuestBill       *GuestBill       `json:"guest_bill,omitempty"`
	FinancialReport *FinancialReport `json:"financial_report,omitempty"`
}

// Document unwraps the envelope into its variant. The variant named by the
// type tag must be present; extra variants are rejected.
func (e *Envelope) Document() (Document, error) {
	populated := 0
	var doc Document
	if e.Receipt != nil {
		populated++
		doc = e.Receipt
	}
	if e.KitchenOrder != nil {
		populated++
		doc = e.KitchenOrder
	}
	if e.Invoice != nil {
		populated++
		doc = e.Invoice
	}
	if e.GuestBill != nil {
		populated++
		doc = e.GuestBill
	}
	if e.FinancialReport != nil {
		populated++
		doc = e.FinancialReport
	}

	if populated == 0 {
		return nil, fmt.Errorf("envelope has no document payload")
	}
	if populated > 1 {
		return nil, fmt.Errorf("envelope has multiple document payloads")
	}
	if doc.DocumentType() != e.Type {
		return nil, fmt.Errorf("envelope type %q does not match payload %q", e.Type, doc.DocumentType())
	}

	return doc, nil
}

// Wrap builds the envelope for a document.
func Wrap(doc Document) (*Envelope, error) {
	e := &Envelope{Type: doc.DocumentType()}

	switch d := doc.(type) {
	case *Receipt:
		e.Receipt = d
	case *KitchenOrder:
		e.KitchenOrder = d
	case *Invoice:
		e.Invoice = d
	case *GuestBill:
		e.GuestBill = d
	case *FinancialReport:
		e.FinancialReport = d
	default:
		return nil, fmt.Errorf("unsupported document type %q", doc.DocumentType())
	}

	return e, nil
}

// Parse decodes and validates a document envelope from JSON.
func Parse(data []byte) (Document, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	doc, err := e.Document()
	if err != nil {
		return nil, err
	}

	if err := Validate(doc); err != nil {
		return nil, err
	}

	return doc, nil
}
