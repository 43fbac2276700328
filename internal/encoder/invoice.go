package encoder

import "github.com/thereceipt/pos-print-engine/pkg/document"

// invoice renders the formal tax document. Partial cut, standard register
// behavior for customer-facing paper.
func (b *builder) invoice(inv *document.Invoice) {
	b.header(inv.Header)

	b.centered("INVOICE")
	b.boldLine(twoColumn("Invoice #"+inv.InvoiceNumber, inv.IssuedAt.Format(timeFormat), b.cols))
	b.divider()

	b.line(truncate("Billed to: "+inv.CustomerName, b.cols))
	if inv.CustomerTaxID != "" {
		b.line("Tax ID: " + inv.CustomerTaxID)
	}
	if inv.CustomerAddress != "" {
		b.line(truncate(inv.CustomerAddress, b.cols))
	}
	b.divider()

	b.items(inv.Items)
	b.divider()

	if inv.Subtotal != "" {
		b.twoCol("Subtotal", inv.Subtotal)
	}
	if inv.Tax != "" {
		b.twoCol("Tax", inv.Tax)
	}

	b.bold(true)
	b.size(1, 2)
	b.twoCol("TOTAL", inv.Total)
	b.size(1, 1)
	b.bold(false)

	if inv.PaymentMethod != "" {
		b.twoCol("Paid by", inv.PaymentMethod)
	}

	if inv.LegalFooter != "" {
		b.feed(1)
		b.centered(truncate(inv.LegalFooter, b.cols))
	}

	b.feed(3)
	b.cut(true)
}
