package encoder

import (
	"fmt"
	"strings"

	"github.com/thereceipt/pos-print-engine/pkg/document"
)

// financialReport renders an end-of-day or period summary as aligned
// label/value rows.
func (b *builder) financialReport(f *document.FinancialReport) {
	b.align(alignCenter)
	b.bold(true)
	b.line(truncate(strings.ToUpper(f.Title), b.cols))
	b.bold(false)
	b.line(f.PeriodStart.Format(timeFormat) + " -")
	b.line(f.PeriodEnd.Format(timeFormat))
	b.align(alignLeft)
	b.divider()

	b.twoCol("Orders", fmt.Sprintf("%d", f.OrderCount))
	if f.Gross != "" {
		b.twoCol("Gross", f.Gross)
	}
	if f.Tax != "" {
		b.twoCol("Tax", f.Tax)
	}
	if f.Net != "" {
		b.boldLine(twoColumn("Net", f.Net, b.cols))
	}

	if len(f.ByPaymentMethod) > 0 {
		b.divider()
		b.boldLine("BY PAYMENT METHOD")
		for _, line := range f.ByPaymentMethod {
			b.twoCol(line.Label, line.Value)
		}
	}

	if len(f.TopItems) > 0 {
		b.divider()
		b.boldLine("TOP ITEMS")
		for _, line := range f.TopItems {
			b.twoCol(line.Label, line.Value)
		}
	}

	b.feed(3)
	b.cut(true)
}

// selfTest renders the fixed document printed by "test print": enough to
// verify dialect, width and emphasis on real paper.
func (b *builder) selfTest(printerName string, opts Options) {
	b.align(alignCenter)
	b.bold(true)
	b.size(2, 2)
	b.line("TEST PRINT")
	b.size(1, 1)
	b.bold(false)
	b.align(alignLeft)
	b.divider()

	b.twoCol("Printer", truncate(printerName, b.cols-10))
	b.twoCol("Dialect", string(opts.Dialect))
	b.twoCol("Codepage", opts.Codepage)
	b.twoCol("Paper", fmt.Sprintf("%dmm / %d cols", opts.PaperWidthMm, b.cols))
	b.divider()

	// A full-width ruler makes width misconfiguration obvious on paper.
	b.line(strings.Repeat("W", b.cols))
	b.boldLine("Bold on, then off")
	b.centered("centered")

	b.feed(1)
	b.centered("PRINT OK")
	b.feed(3)
	b.cut(true)
}
