package encoder

import "github.com/thereceipt/pos-print-engine/pkg/document"

// guestBill renders the pre-payment bill. It always carries the "not a
// fiscal receipt" note and, when tracked, a QR the guest can scan at the
// table.
func (b *builder) guestBill(g *document.GuestBill) {
	b.header(g.Header)

	b.centered("GUEST BILL")
	b.line(twoColumn("Bill #"+g.BillID, g.OpenedAt.Format(timeFormat), b.cols))
	if g.TableName != "" {
		b.line("Table: " + g.TableName)
	}
	if g.GuestName != "" {
		b.line(truncate("Guest: "+g.GuestName, b.cols))
	}
	b.divider()

	b.items(g.Items)
	b.divider()

	b.bold(true)
	b.size(1, 2)
	b.twoCol("TOTAL", g.Total)
	b.size(1, 1)
	b.bold(false)

	if g.TrackingID != "" {
		b.feed(1)
		b.trackingQR(g.TrackingID)
	}

	b.feed(1)
	b.centered("This is not a fiscal receipt")
	b.feed(3)
	b.cut(true)
}
