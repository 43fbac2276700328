package encoder

import (
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// trackingURL builds the customer-facing tracking link for a document id.
func trackingURL(base, id string) string {
	if base == "" {
		return id
	}
	return strings.TrimSuffix(base, "/") + "/" + id
}

// trackingQR embeds a QR code pointing at the tracking URL. When QR
// generation fails the raw identifier is printed as text instead; the rest
// of the document is never aborted over a QR.
func (b *builder) trackingQR(id string) {
	content := trackingURL(b.opts.TrackingBaseURL, id)

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		b.opts.logger().Warn("qr generation failed, falling back to text",
			zap.String("id", id), zap.Error(err))
		b.centered(id)
		return
	}

	size := DotWidth(b.opts.PaperWidthMm) / 2
	if size > 240 {
		size = 240
	}

	b.align(alignCenter)
	b.raster(qr.Image(size))
	b.align(alignLeft)
}

// orderBarcode embeds a CODE128 barcode of the order number so kitchen staff
// can scan tickets back into the system. Failures are skipped silently.
func (b *builder) orderBarcode(orderNumber string) {
	code, err := code128.Encode(orderNumber)
	if err != nil {
		b.opts.logger().Warn("barcode generation failed, skipping",
			zap.String("order", orderNumber), zap.Error(err))
		return
	}

	width := DotWidth(b.opts.PaperWidthMm) - 80
	scaled, err := barcode.Scale(code, width, 80)
	if err != nil {
		b.opts.logger().Warn("barcode scaling failed, skipping",
			zap.String("order", orderNumber), zap.Error(err))
		return
	}

	b.align(alignCenter)
	b.raster(scaled)
	b.align(alignLeft)
}
