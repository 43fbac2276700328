package encoder

import (
	"fmt"

	"github.com/thereceipt/pos-print-engine/pkg/document"
)

const timeFormat = "02 Jan 2006 15:04"

// receipt renders the customer till receipt. Works with an empty item list:
// totals and footer still print.
func (b *builder) receipt(r *document.Receipt) {
	b.header(r.Header)

	b.line(twoColumn("Order #"+r.OrderNumber, r.PlacedAt.Format(timeFormat), b.cols))
	if r.TableName != "" {
		b.line("Table: " + r.TableName)
	}
	b.divider()

	b.items(r.Items)
	b.divider()

	if r.Subtotal != "" {
		b.twoCol("Subtotal", r.Subtotal)
	}
	if r.Discount != "" {
		label := "Discount"
		if r.CouponCode != "" {
			label = fmt.Sprintf("Discount (%s)", r.CouponCode)
		}
		b.twoCol(label, "-"+r.Discount)
	}
	if r.Tax != "" {
		b.twoCol("Tax", r.Tax)
	}

	b.bold(true)
	b.size(1, 2)
	b.twoCol("TOTAL", r.Total)
	b.size(1, 1)
	b.bold(false)

	if r.PaymentMethod != "" {
		b.twoCol("Paid by", r.PaymentMethod)
	}

	if r.TrackingID != "" {
		b.feed(1)
		b.trackingQR(r.TrackingID)
	}

	if r.FooterMessage != "" {
		b.feed(1)
		b.centered(r.FooterMessage)
	}

	b.feed(3)
	b.cut(true)
}

// header prints the restaurant identity block shared by customer-facing
// documents.
func (b *builder) header(h document.Header) {
	b.logo(h.LogoURL)

	b.align(alignCenter)
	b.bold(true)
	b.size(2, 2)
	b.line(truncate(h.RestaurantName, b.cols/2))
	b.size(1, 1)
	b.bold(false)

	if h.AddressLine != "" {
		b.line(truncate(h.AddressLine, b.cols))
	}
	if h.Phone != "" {
		b.line(h.Phone)
	}
	if h.TaxID != "" {
		b.line("Tax ID: " + h.TaxID)
	}
	b.align(alignLeft)
	b.divider()
}

// items prints each order line as a name line followed by a quantity/price
// line with the line total right-aligned.
func (b *builder) items(items []document.LineItem) {
	for _, item := range items {
		b.line(truncate(item.Name, b.cols))

		left := fmt.Sprintf("  %d", item.Quantity)
		if item.UnitPrice != "" {
			left = fmt.Sprintf("  %d x %s", item.Quantity, item.UnitPrice)
		}
		if item.Total != "" {
			b.line(twoColumn(left, item.Total, b.cols))
		} else {
			b.line(left)
		}

		if item.Notes != "" {
			b.line(truncate("  "+item.Notes, b.cols))
		}
	}
}
