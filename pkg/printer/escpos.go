package printer

import (
	"bytes"
	"fmt"
	"strings"
)

// ESC/POS command constants
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Font size (GS ! n: high nibble width multiplier, low nibble height multiplier)
const (
	FontNormal = 0x00
	FontDouble = 0x11
	FontWide   = 0x10
	FontTall   = 0x01
)

// DefaultWidth is the character width of 58mm paper
const DefaultWidth = 32

var (
	// ResetSequence initializes the printer (ESC @)
	ResetSequence = []byte{ESC, '@'}
	// CutSequence performs a full paper cut (GS V 0)
	CutSequence = []byte{GS, 'V', 0x00}
)

// Line is one printed line with the style it was printed in. Host fallbacks render
// these instead of the byte stream.
type Line struct {
	Text  string
	Align int
	Bold  bool
	Size  byte
}

// Document builds an ESC/POS byte stream for thermal printers and records the
// logical lines alongside the bytes.
type Document struct {
	buf   bytes.Buffer
	width int

	align int
	bold  bool
	size  byte
	lines []Line
	cut   bool
}

// NewDocument creates a new ESC/POS document with the given character width.
// Common widths: 32 for 58mm paper, 48 for 80mm paper.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = DefaultWidth
	}
	d := &Document{width: charWidth}
	d.Init()
	return d
}

// Init sends ESC @ and resets the tracked style.
func (d *Document) Init() *Document {
	d.buf.Write(ResetSequence)
	d.align, d.bold, d.size = AlignLeft, false, FontNormal
	return d
}

// Width returns the character width of the document.
func (d *Document) Width() int {
	return d.width
}

// LineFeed sends a line feed.
func (d *Document) LineFeed() *Document {
	return d.FeedLines(1)
}

// FeedLines sends n line feeds.
func (d *Document) FeedLines(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
		d.lines = append(d.lines, Line{Align: d.align, Size: d.size})
	}
	return d
}

// SetAlign sets text alignment: AlignLeft, AlignCenter, AlignRight.
func (d *Document) SetAlign(align int) *Document {
	d.buf.Write([]byte{ESC, 'a', byte(align)})
	d.align = align
	return d
}

// SetBold enables or disables bold text.
func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.buf.Write([]byte{ESC, 'E', b})
	d.bold = on
	return d
}

// SetFontSize sets the character size. Use FontNormal, FontDouble, FontWide, or FontTall.
func (d *Document) SetFontSize(size byte) *Document {
	d.buf.Write([]byte{GS, '!', size})
	d.size = size
	return d
}

// Text writes a line of text followed by a line feed.
func (d *Document) Text(s string) *Document {
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)
	d.lines = append(d.lines, Line{Text: s, Align: d.align, Bold: d.bold, Size: d.size})
	return d
}

// TextF writes a formatted line of text followed by a line feed.
func (d *Document) TextF(format string, args ...interface{}) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Separator prints a full-width separator line.
func (d *Document) Separator(char byte) *Document {
	return d.Text(strings.Repeat(string(char), d.width))
}

// KeyValue prints a left-aligned key and right-aligned value on the same line.
// At least one space separates them; a line that cannot fit grows past the width.
func (d *Document) KeyValue(key, value string) *Document {
	return d.Text(PadBetween(key, value, d.width))
}

// Cut sends the paper cut command (full cut).
func (d *Document) Cut() *Document {
	d.buf.Write(CutSequence)
	d.cut = true
	return d
}

// Bytes returns the accumulated ESC/POS byte stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// Lines returns the logical lines printed so far.
func (d *Document) Lines() []Line {
	out := make([]Line, len(d.lines))
	copy(out, d.lines)
	return out
}

// HasCut reports whether the document ends with a cut.
func (d *Document) HasCut() bool {
	return d.cut && bytes.HasSuffix(d.buf.Bytes(), CutSequence)
}

// Reset clears the buffer and reinitializes the document.
func (d *Document) Reset() *Document {
	d.buf.Reset()
	d.lines = nil
	d.cut = false
	d.Init()
	return d
}

// PadBetween joins left and right with spaces so the result is width characters long.
func PadBetween(left, right string, width int) string {
	spaces := width - len(left) - len(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

// Truncate shortens s to at most max characters, ending it with "..." when cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
