package document

import "fmt"

// Validate checks a document for the fields the encoder requires. An empty
// item list is valid everywhere: totals and footers still print.
func Validate(doc Document) error {
	switch d := doc.(type) {
	case *Receipt:
		return validateReceipt(d)
	case *KitchenOrder:
		return validateKitchenOrder(d)
	case *Invoice:
		return validateInvoice(d)
	case *GuestBill:
		return validateGuestBill(d)
	case *FinancialReport:
		return validateFinancialReport(d)
	default:
		return fmt.Errorf("unknown document type: %s", doc.DocumentType())
	}
}

func validateReceipt(r *Receipt) error {
	if r.Header.RestaurantName == "" {
		return fmt.Errorf("receipt: restaurant_name is required")
	}
	if r.OrderNumber == "" {
		return fmt.Errorf("receipt: order_number is required")
	}
	if r.Total == "" {
		return fmt.Errorf("receipt: total is required")
	}
	return validateItems("receipt", r.Items)
}

func validateKitchenOrder(k *KitchenOrder) error {
	if k.OrderNumber == "" {
		return fmt.Errorf("kitchen_order: order_number is required")
	}
	return validateItems("kitchen_order", k.Items)
}

func validateInvoice(i *Invoice) error {
	if i.Header.RestaurantName == "" {
		return fmt.Errorf("invoice: restaurant_name is required")
	}
	if i.InvoiceNumber == "" {
		return fmt.Errorf("invoice: invoice_number is required")
	}
	if i.CustomerName == "" {
		return fmt.Errorf("invoice: customer_name is required")
	}
	if i.Total == "" {
		return fmt.Errorf("invoice: total is required")
	}
	return validateItems("invoice", i.Items)
}

func validateGuestBill(g *GuestBill) error {
	if g.BillID == "" {
		return fmt.Errorf("guest_bill: bill_id is required")
	}
	if g.Total == "" {
		return fmt.Errorf("guest_bill: total is required")
	}
	return validateItems("guest_bill", g.Items)
}

func validateFinancialReport(f *FinancialReport) error {
	if f.Title == "" {
		return fmt.Errorf("financial_report: title is required")
	}
	if f.PeriodEnd.Before(f.PeriodStart) {
		return fmt.Errorf("financial_report: period_end precedes period_start")
	}
	if f.OrderCount < 0 {
		return fmt.Errorf("financial_report: order_count must not be negative")
	}
	for i, line := range f.ByPaymentMethod {
		if line.Label == "" {
			return fmt.Errorf("financial_report: by_payment_method[%d]: label is required", i)
		}
	}
	for i, line := range f.TopItems {
		if line.Label == "" {
			return fmt.Errorf("financial_report: top_items[%d]: label is required", i)
		}
	}
	return nil
}

func validateItems(kind string, items []LineItem) error {
	for i, item := range items {
		if item.Name == "" {
			return fmt.Errorf("%s: items[%d]: name is required", kind, i)
		}
		if item.Quantity <= 0 {
			return fmt.Errorf("%s: items[%d]: quantity must be positive", kind, i)
		}
	}
	return nil
}
