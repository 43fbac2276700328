package encoder

import (
	"fmt"

	"github.com/thereceipt/pos-print-engine/pkg/document"
)

// kitchenOrder renders the kitchen ticket: big item lines, notes, no prices.
// Kitchen tickets are fully severed so they can be clipped to the rail.
func (b *builder) kitchenOrder(k *document.KitchenOrder) {
	b.align(alignCenter)
	b.bold(true)
	b.size(2, 2)
	b.line("KITCHEN")
	b.size(1, 1)
	b.bold(false)
	b.align(alignLeft)
	b.divider()

	b.boldLine(twoColumn("Order #"+k.OrderNumber, k.PlacedAt.Format("15:04"), b.cols))
	if k.TableName != "" {
		b.line("Table: " + k.TableName)
	}
	b.divider()

	b.size(2, 2)
	for _, item := range k.Items {
		b.line(truncate(fmt.Sprintf("%dx %s", item.Quantity, item.Name), b.cols/2))
		if item.Notes != "" {
			b.size(1, 1)
			b.line(truncate("   > "+item.Notes, b.cols))
			b.size(2, 2)
		}
	}
	b.size(1, 1)

	if k.Note != "" {
		b.divider()
		b.boldLine(truncate("NOTE: "+k.Note, b.cols))
	}

	b.feed(1)
	b.orderBarcode(k.OrderNumber)
	b.feed(3)
	b.cut(false)
}
