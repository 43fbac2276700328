// Package encoder turns typed document descriptions into dialect-specific
// printer byte streams. Encoding is pure: the same document and options
// always produce byte-identical output, so tests can diff buffers directly.
package encoder

import (
	"fmt"
	"image"

	"go.uber.org/zap"

	"github.com/thereceipt/pos-print-engine/internal/registry"
	"github.com/thereceipt/pos-print-engine/pkg/document"
)

// LogoFetcher retrieves the restaurant logo image for embedding. Fetching is
// the only impure step in the encoder and is strictly best-effort.
type LogoFetcher interface {
	Fetch(url string) (image.Image, error)
}

// Options carries the per-printer and per-role parameters of one encoding.
type Options struct {
	Dialect      registry.Dialect
	Codepage     string
	PaperWidthMm int

	// TrackingBaseURL is the origin the tracking QR points at; the document
	// id is appended as the path. Empty means the QR encodes the raw id.
	TrackingBaseURL string

	// Logos is nil when logo embedding is disabled.
	Logos LogoFetcher

	// Logger records swallowed fallbacks (QR, logo). Nil is allowed.
	Logger *zap.Logger
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// Encode renders a document into the byte stream for the configured dialect.
func Encode(doc document.Document, opts Options) ([]byte, error) {
	b := newBuilder(opts)

	switch d := doc.(type) {
	case *document.Receipt:
		b.receipt(d)
	case *document.KitchenOrder:
		b.kitchenOrder(d)
	case *document.Invoice:
		b.invoice(d)
	case *document.GuestBill:
		b.guestBill(d)
	case *document.FinancialReport:
		b.financialReport(d)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", doc.DocumentType())
	}

	return lower(b.ops, opts)
}

// EncodeSelfTest renders the fixed self-test document used by test prints.
func EncodeSelfTest(printerName string, opts Options) ([]byte, error) {
	b := newBuilder(opts)
	b.selfTest(printerName, opts)
	return lower(b.ops, opts)
}

// Buzzer returns the dialect's standalone notification-sound opcode.
func Buzzer(dialect registry.Dialect) []byte {
	if dialect == registry.DialectStarPRNT {
		return starBuzzer()
	}
	return escposBuzzer()
}

func lower(ops []op, opts Options) ([]byte, error) {
	if opts.Dialect == registry.DialectStarPRNT {
		return lowerStarPRNT(ops)
	}
	return lowerESCPOS(ops)
}

// builder accumulates the primitive stream for one document.
type builder struct {
	ops  []op
	cols int
	opts Options
}

func newBuilder(opts Options) *builder {
	b := &builder{cols: Columns(opts.PaperWidthMm), opts: opts}
	b.push(opInit{})
	b.push(opCodepage{name: opts.Codepage})
	return b
}

func (b *builder) push(o op) { b.ops = append(b.ops, o) }

func (b *builder) line(text string)  { b.push(opLine{text: text}) }
func (b *builder) feed(lines int)    { b.push(opFeed{lines: lines}) }
func (b *builder) align(a align)     { b.push(opAlign{align: a}) }
func (b *builder) bold(on bool)      { b.push(opBold{on: on}) }
func (b *builder) size(w, h int)     { b.push(opSize{width: w, height: h}) }
func (b *builder) raster(img image.Image) {
	b.push(opRaster{img: img})
}
func (b *builder) cut(partial bool) { b.push(opCut{partial: partial}) }

func (b *builder) divider() { b.line(divider(b.cols)) }

func (b *builder) twoCol(label, value string) {
	b.line(twoColumn(label, value, b.cols))
}

// boldLine wraps a single line in a bold toggle pair so emphasis never leaks
// into the following section.
func (b *builder) boldLine(text string) {
	b.bold(true)
	b.line(text)
	b.bold(false)
}

// centered emits one centered line and restores left alignment.
func (b *builder) centered(text string) {
	b.align(alignCenter)
	b.line(text)
	b.align(alignLeft)
}
