package encoder

import "image"

// The encoder works in two stages. Builders walk a document and emit this
// dialect-independent primitive stream; the dialect layer lowers primitives
// to opcodes. Structural logic (what lines, what order, what alignment)
// lives only in the builders.

type align int

const (
	alignLeft align = iota
	alignCenter
	alignRight
)

type op interface{ isOp() }

type opInit struct{}

type opCodepage struct{ name string }

// opLine is one full text line including the trailing line feed.
type opLine struct{ text string }

type opFeed struct{ lines int }

type opAlign struct{ align align }

type opBold struct{ on bool }

// opSize sets character magnification; width and height are 1 or 2.
type opSize struct{ width, height int }

type opRaster struct{ img image.Image }

type opCut struct{ partial bool }

type opBuzzer struct{}

func (opInit) isOp()     {}
func (opCodepage) isOp() {}
func (opLine) isOp()     {}
func (opFeed) isOp()     {}
func (opAlign) isOp()    {}
func (opBold) isOp()     {}
func (opSize) isOp()     {}
func (opRaster) isOp()   {}
func (opCut) isOp()      {}
func (opBuzzer) isOp()   {}
