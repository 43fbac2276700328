package encoder

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const monoThreshold = 128

// imageToBitmap packs an image into the 1-bit row-major bitmap both raster
// commands consume. Pixels darker than the threshold become set bits.
func imageToBitmap(img image.Image) (bitmap []byte, bytesPerLine, height int) {
	bounds := img.Bounds()
	width := bounds.Dx()
	height = bounds.Dy()

	bytesPerLine = (width + 7) / 8
	bitmap = make([]byte, bytesPerLine*height)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			gray := (r + g + b) / 3 / 256

			if gray < monoThreshold {
				byteIndex := y*bytesPerLine + x/8
				bitmap[byteIndex] |= 1 << (7 - x%8)
			}
		}
	}

	return bitmap, bytesPerLine, height
}

// logo fetches, scales and embeds the restaurant logo. Any failure is
// swallowed: the logo is presentational, the document prints without it.
func (b *builder) logo(url string) {
	if b.opts.Logos == nil || url == "" {
		return
	}

	img, err := b.opts.Logos.Fetch(url)
	if err != nil {
		b.opts.logger().Warn("logo fetch failed, printing without it",
			zap.String("url", url), zap.Error(err))
		return
	}

	target := DotWidth(b.opts.PaperWidthMm)
	if img.Bounds().Dx() > target {
		img = imaging.Resize(img, target, 0, imaging.Lanczos)
	}

	b.align(alignCenter)
	b.raster(img)
	b.align(alignLeft)
	b.feed(1)
}

// HTTPLogoFetcher fetches logos over HTTP with a short timeout so a slow CDN
// cannot stall a print.
type HTTPLogoFetcher struct {
	client *resty.Client
}

// NewHTTPLogoFetcher builds the default logo fetcher.
func NewHTTPLogoFetcher() *HTTPLogoFetcher {
	return &HTTPLogoFetcher{
		client: resty.New().SetTimeout(3 * time.Second),
	}
}

// Fetch downloads and decodes the image at url.
func (f *HTTPLogoFetcher) Fetch(url string) (image.Image, error) {
	resp, err := f.client.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch logo: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch logo: HTTP %d", resp.StatusCode())
	}

	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo: %w", err)
	}
	return img, nil
}
