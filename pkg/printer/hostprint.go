package printer

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/phpdave11/gofpdf"
	"github.com/rs/zerolog"
)

// DefaultPaperWidthMM is the width of 58mm receipt paper
const DefaultPaperWidthMM = 58.0

// HostPrinter hands a document's logical content to the host's print facility.
type HostPrinter interface {
	Print(ctx context.Context, doc *Document) error
}

const (
	pdfMarginMM    = 2.0
	pdfLineMM      = 4.2
	pdfBaseFontPt  = 8.0
	pdfFontFamily  = "Courier"
	fontWideFactor = 2.0
)

// RenderPDF lays the document lines out on a page exactly paperWidthMM wide, with a
// monospace font sized so Width() characters fill the printable area.
func RenderPDF(w io.Writer, doc *Document, paperWidthMM float64) error {
	if paperWidthMM <= 0 {
		paperWidthMM = DefaultPaperWidthMM
	}
	lines := doc.Lines()
	height := pdfMarginMM*2 + pdfLineMM*float64(len(lines)+1)
	for _, l := range lines {
		if l.Size&0x0F > 0 {
			height += pdfLineMM
		}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           gofpdf.SizeType{Wd: paperWidthMM, Ht: height},
	})
	pdf.SetMargins(pdfMarginMM, pdfMarginMM, pdfMarginMM)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	printable := paperWidthMM - 2*pdfMarginMM
	// Courier glyphs are 0.6 em wide.
	basePt := printable / (0.6 * float64(doc.Width())) * 72 / 25.4
	if basePt > pdfBaseFontPt*1.5 {
		basePt = pdfBaseFontPt * 1.5
	}

	for _, l := range lines {
		style := ""
		if l.Bold {
			style = "B"
		}
		size := basePt
		lineH := pdfLineMM
		if l.Size&0xF0 > 0 {
			size *= fontWideFactor
		}
		if l.Size&0x0F > 0 {
			lineH *= 2
		}
		pdf.SetFont(pdfFontFamily, style, size)
		pdf.CellFormat(printable, lineH, l.Text, "", 1, pdfAlign(l.Align), false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func pdfAlign(a int) string {
	switch a {
	case AlignCenter:
		return "C"
	case AlignRight:
		return "R"
	default:
		return "L"
	}
}

var receiptHTML = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
@page { size: {{.WidthMM}}mm auto; margin: 0; }
body { width: {{.WidthMM}}mm; margin: 0; font-family: "Courier New", monospace; font-size: 12px; }
p { margin: 0; white-space: pre; min-height: 1em; }
.l { text-align: left; } .c { text-align: center; } .r { text-align: right; }
.b { font-weight: bold; } .w { font-size: 200%; }
</style>
</head>
<body>
{{range .Lines}}<p class="{{.Class}}">{{.Text}}</p>
{{end}}<script>
window.onload = function () { window.print(); setTimeout(function () { window.close(); }, {{.CloseDelayMS}}); };
</script>
</body>
</html>
`))

type htmlLine struct {
	Text  string
	Class string
}

// RenderHTML writes a print-ready page for browser printing. The page opens the
// print dialog on load and closes itself after closeDelay.
func RenderHTML(w io.Writer, title string, doc *Document, paperWidthMM float64, closeDelay time.Duration) error {
	if paperWidthMM <= 0 {
		paperWidthMM = DefaultPaperWidthMM
	}
	lines := doc.Lines()
	out := make([]htmlLine, 0, len(lines))
	for _, l := range lines {
		class := [...]string{"l", "c", "r"}[clampAlign(l.Align)]
		if l.Bold {
			class += " b"
		}
		if l.Size != FontNormal {
			class += " w"
		}
		out = append(out, htmlLine{Text: l.Text, Class: class})
	}
	return receiptHTML.Execute(w, map[string]any{
		"Title":        title,
		"WidthMM":      paperWidthMM,
		"Lines":        out,
		"CloseDelayMS": closeDelay.Milliseconds(),
	})
}

func clampAlign(a int) int {
	if a < AlignLeft || a > AlignRight {
		return AlignLeft
	}
	return a
}

// CommandHostPrinter renders a PDF and submits it with a spooler command such as lp.
// The temporary file is removed CloseDelay after submission.
type CommandHostPrinter struct {
	Command      string
	Queue        string
	PaperWidthMM float64
	CloseDelay   time.Duration
	Log          zerolog.Logger
}

// Print implements HostPrinter.
func (p *CommandHostPrinter) Print(ctx context.Context, doc *Document) error {
	if p.Command == "" {
		return fmt.Errorf("%w: no host print command configured", ErrHostPrint)
	}

	f, err := os.CreateTemp("", "receipt-*.pdf")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHostPrint, err)
	}
	path := f.Name()
	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			p.Log.Warn().Err(err).Str("file", path).Msg("remove print file")
		}
	}

	if err := RenderPDF(f, doc, p.PaperWidthMM); err != nil {
		f.Close()
		cleanup()
		return fmt.Errorf("%w: %w", ErrHostPrint, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %w", ErrHostPrint, err)
	}

	var args []string
	if p.Queue != "" {
		args = append(args, "-d", p.Queue)
	}
	args = append(args, path)

	out, err := exec.CommandContext(ctx, p.Command, args...).CombinedOutput()
	if err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w: %s", ErrHostPrint, p.Command, err, out)
	}

	p.Log.Info().Str("queue", p.Queue).Msg("receipt submitted to host spooler")
	time.AfterFunc(p.CloseDelay, cleanup)
	return nil
}
