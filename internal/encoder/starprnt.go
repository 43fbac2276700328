package encoder

import (
	"bytes"
	"fmt"
)

// Star PRNT shares the document structure with ESC/POS and differs only in
// opcodes. Nothing structural happens here.

const starBEL byte = 0x07

// starCodepages maps codepage mapping names to the ESC GS t argument.
var starCodepages = map[string]byte{
	"star-ascii": 0,
	"cp437":      1,
	"cp850":      4,
	"cp860":      6,
	"cp1252":     32,
}

func lowerStarPRNT(ops []op) ([]byte, error) {
	buf := new(bytes.Buffer)

	for _, o := range ops {
		switch v := o.(type) {
		case opInit:
			buf.Write([]byte{escESC, '@'})
		case opCodepage:
			table, ok := starCodepages[v.name]
			if !ok {
				table = starCodepages["star-ascii"]
			}
			buf.Write([]byte{escESC, escGS, 't', table})
		case opLine:
			buf.WriteString(v.text)
			buf.WriteByte(escLF)
		case opFeed:
			for i := 0; i < v.lines; i++ {
				buf.WriteByte(escLF)
			}
		case opAlign:
			buf.Write([]byte{escESC, escGS, 'a', byte(v.align)})
		case opBold:
			// Star toggles emphasis with distinct opcodes.
			if v.on {
				buf.Write([]byte{escESC, 'E'})
			} else {
				buf.Write([]byte{escESC, 'F'})
			}
		case opSize:
			buf.Write([]byte{escESC, 'i', byte(clampSize(v.height) - 1), byte(clampSize(v.width) - 1)})
		case opRaster:
			if err := starRaster(buf, v); err != nil {
				return nil, err
			}
		case opCut:
			// ESC d: 2 feeds and severs, 3 feeds and perforates.
			n := byte(2)
			if v.partial {
				n = 3
			}
			buf.Write([]byte{escESC, 'd', n})
		case opBuzzer:
			buf.Write(starBuzzer())
		default:
			return nil, fmt.Errorf("star-prnt: unsupported primitive %T", o)
		}
	}

	return buf.Bytes(), nil
}

// starRaster emits ESC GS S, Star's raster graphics command.
func starRaster(buf *bytes.Buffer, v opRaster) error {
	bitmap, bytesPerLine, height := imageToBitmap(v.img)
	if height == 0 || bytesPerLine == 0 {
		return nil
	}
	if bytesPerLine > 0xFFFF || height > 0xFFFF {
		return fmt.Errorf("star-prnt: raster image too large: %dx%d", bytesPerLine*8, height)
	}

	buf.Write([]byte{
		escESC, escGS, 'S', 1,
		byte(bytesPerLine & 0xFF), byte(bytesPerLine >> 8),
		byte(height & 0xFF), byte(height >> 8),
		0,
	})
	buf.Write(bitmap)
	return nil
}

// starBuzzer drives the external buzzer line most Star registers wire up.
func starBuzzer() []byte {
	return []byte{starBEL}
}
