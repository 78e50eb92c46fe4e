package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/pkg/printer"
	"github.com/sangkips/tillpoint/pkg/utils"
)

// ErrEmptyReceipt is returned for an invoice without lines. Nothing is printed for it:
// such an invoice usually means its lines failed to save.
var ErrEmptyReceipt = errors.New("receipt has no lines")

const (
	receiptWidth   = printer.DefaultWidth
	receiptNameMax = 20
)

// ReceiptFromInvoice composes the printable receipt of an invoice. The date is the
// invoice's day; the time is when the order was stored, in loc.
func ReceiptFromInvoice(inv entity.Invoice, header entity.ReceiptHeader, loc *time.Location) *entity.Receipt {
	r := &entity.Receipt{
		Header:  header,
		Ordinal: inv.Ordinal,
		Date:    inv.Day,
		Time:    inv.CreatedAt.In(loc).Format("15:04"),
		Lines:   make([]entity.ReceiptLine, 0, len(inv.Items)),
		Total:   decimal.Zero,
	}
	for _, item := range inv.Items {
		r.Lines = append(r.Lines, entity.ReceiptLine{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Amount(),
		})
		r.Total = r.Total.Add(item.Amount())
	}
	return r
}

// BuildReceipt lays a receipt out on 58mm paper. Column math is done on string
// lengths after folding to ASCII.
func BuildReceipt(r *entity.Receipt) (*printer.Document, error) {
	if r == nil || len(r.Lines) == 0 {
		return nil, ErrEmptyReceipt
	}

	doc := printer.NewDocument(receiptWidth)

	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(utils.FoldASCII(r.Header.ShopName)).
		SetFontSize(printer.FontNormal).
		SetBold(false)
	if r.Header.Address != "" {
		doc.Text(utils.FoldASCII(r.Header.Address))
	}
	if r.Header.Phone != "" {
		doc.Text(utils.FoldASCII(r.Header.Phone))
	}

	doc.SetBold(true).
		TextF("Invoice #%d", r.Ordinal).
		SetBold(false).
		SetAlign(printer.AlignLeft).
		KeyValue(r.Date, r.Time).
		Separator('-')

	doc.SetBold(true)
	for _, l := range r.Lines {
		doc.Text(ItemLine(l.Name, l.Quantity, l.Price))
	}
	doc.SetBold(false).Separator('-')

	doc.SetBold(true).
		KeyValue("TOTAL", formatMoney(r.Total)).
		SetBold(false)

	if r.Header.Footer != "" {
		doc.SetAlign(printer.AlignCenter).
			LineFeed().
			Text(utils.FoldASCII(r.Header.Footer)).
			SetAlign(printer.AlignLeft)
	}

	doc.FeedLines(3).Cut()
	return doc, nil
}

// EncodeReceipt returns the ESC/POS bytes of a receipt. The stream starts with a
// printer reset and ends with a full cut.
func EncodeReceipt(r *entity.Receipt) ([]byte, error) {
	doc, err := BuildReceipt(r)
	if err != nil {
		return nil, err
	}
	return doc.Bytes(), nil
}

// ItemLine renders "<name> x<qty>" with the price right-aligned at the last column.
// The name gets at most receiptNameMax columns and less when a long quantity or
// price needs them, so the line always fits the paper.
func ItemLine(name string, qty int, price decimal.Decimal) string {
	qtyText := fmt.Sprintf(" x%d", qty)
	priceText := formatMoney(price)
	room := min(receiptNameMax, receiptWidth-len(qtyText)-len(priceText)-1)
	left := printer.Truncate(utils.FoldASCII(name), max(room, 0)) + qtyText
	return printer.PadBetween(left, priceText, receiptWidth)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}
