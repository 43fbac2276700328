package encoder

import (
	"bytes"
	"fmt"
)

// ESC/POS control bytes.
const (
	escESC byte = 0x1B
	escGS  byte = 0x1D
	escLF  byte = 0x0A
)

// escposCodepages maps codepage mapping names to the ESC t table argument.
var escposCodepages = map[string]byte{
	"cp437":  0,
	"cp850":  2,
	"cp860":  3,
	"cp865":  5,
	"cp1252": 16,
}

func lowerESCPOS(ops []op) ([]byte, error) {
	buf := new(bytes.Buffer)

	for _, o := range ops {
		switch v := o.(type) {
		case opInit:
			buf.Write([]byte{escESC, '@'})
		case opCodepage:
			table, ok := escposCodepages[v.name]
			if !ok {
				table = escposCodepages["cp437"]
			}
			buf.Write([]byte{escESC, 't', table})
		case opLine:
			buf.WriteString(v.text)
			buf.WriteByte(escLF)
		case opFeed:
			for i := 0; i < v.lines; i++ {
				buf.WriteByte(escLF)
			}
		case opAlign:
			buf.Write([]byte{escESC, 'a', byte(v.align)})
		case opBold:
			n := byte(0)
			if v.on {
				n = 1
			}
			buf.Write([]byte{escESC, 'E', n})
		case opSize:
			size := byte(((clampSize(v.width) - 1) << 4) | (clampSize(v.height) - 1))
			buf.Write([]byte{escGS, '!', size})
		case opRaster:
			if err := escposRaster(buf, v); err != nil {
				return nil, err
			}
		case opCut:
			// GS V: 0 severs the paper, 1 perforates for tear-off.
			n := byte(0)
			if v.partial {
				n = 1
			}
			buf.Write([]byte{escGS, 'V', n})
		case opBuzzer:
			buf.Write(escposBuzzer())
		default:
			return nil, fmt.Errorf("esc-pos: unsupported primitive %T", o)
		}
	}

	return buf.Bytes(), nil
}

// escposRaster emits GS v 0, the raster bit image command.
func escposRaster(buf *bytes.Buffer, v opRaster) error {
	bitmap, bytesPerLine, height := imageToBitmap(v.img)
	if height == 0 || bytesPerLine == 0 {
		return nil
	}
	if bytesPerLine > 0xFFFF || height > 0xFFFF {
		return fmt.Errorf("esc-pos: raster image too large: %dx%d", bytesPerLine*8, height)
	}

	buf.Write([]byte{
		escGS, 'v', '0', 0,
		byte(bytesPerLine & 0xFF), byte(bytesPerLine >> 8),
		byte(height & 0xFF), byte(height >> 8),
	})
	buf.Write(bitmap)
	return nil
}

// escposBuzzer is the Epson beep command: two short pulses.
func escposBuzzer() []byte {
	return []byte{escESC, 'B', 2, 1}
}

func clampSize(n int) int {
	if n < 1 {
		return 1
	}
	if n > 8 {
		return 8
	}
	return n
}
