package handlers

import (
	"backend/services"
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GenerateQuotePDF renders a quote's grouped row breakdown as a PDF with a
// QR code linking back to the quote.
// @Summary Generate quote PDF
// @Tags Export
// @Produce application/pdf
// @Param id path int true "Quote ID"
// @Success 200 {file} file "PDF document"
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/export/pdf [get]
func GenerateQuotePDF(quotes *services.QuoteService, groups *services.GroupDescriptionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		quoteID, ok := quoteIDParam(c)
		if !ok {
			return
		}

		quote, err := quotes.GetQuote(quoteID)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		views, err := groups.RetrieveRowsGroups(quoteID)
		if err != nil {
			respondGroupError(c, err)
			return
		}

		titleCaser := cases.Title(language.Und)

		pdf := gofpdf.New("P", "mm", "A4", "")
		pdf.SetMargins(15, 15, 15)
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 18)
		pdf.CellFormat(0, 10, fmt.Sprintf("Quote %s", quote.QuoteNumber), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 7, fmt.Sprintf("Customer: %s", titleCaser.String(quote.CustomerName)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 7, fmt.Sprintf("Currency: %s", quote.Currency), "", 1, "L", false, 0, "")
		pdf.Ln(4)

		// QR code in the top right corner
		qrPayload := fmt.Sprintf(`{"quote_id":%d,"quote_number":"%s"}`, quote.ID, quote.QuoteNumber)
		qrPNG, err := qrcode.Encode(qrPayload, qrcode.Medium, 256)
		if err == nil {
			opts := gofpdf.ImageOptions{ImageType: "PNG"}
			pdf.RegisterImageOptionsReader("quote-qr", opts, bytes.NewReader(qrPNG))
			pdf.ImageOptions("quote-qr", 165, 12, 30, 30, false, opts, 0, "")
		}

		var grandTotal float64
		for _, view := range views {
			pdf.SetFont("Arial", "B", 12)
			pdf.SetFillColor(217, 225, 242)
			pdf.CellFormat(0, 8, titleCaser.String(view.Name), "1", 1, "L", true, 0, "")

			pdf.SetFont("Arial", "B", 9)
			pdf.SetFillColor(240, 240, 240)
			pdf.CellFormat(35, 7, "Product No", "1", 0, "L", true, 0, "")
			pdf.CellFormat(85, 7, "Description", "1", 0, "L", true, 0, "")
			pdf.CellFormat(35, 7, "Serial No", "1", 0, "L", true, 0, "")
			pdf.CellFormat(10, 7, "Qty", "1", 0, "R", true, 0, "")
			pdf.CellFormat(0, 7, "Price", "1", 1, "R", true, 0, "")

			pdf.SetFont("Arial", "", 9)
			for _, row := range view.Rows {
				pdf.CellFormat(35, 6, row.ProductNo, "1", 0, "L", false, 0, "")
				pdf.CellFormat(85, 6, row.Description, "1", 0, "L", false, 0, "")
				pdf.CellFormat(35, 6, row.SerialNo, "1", 0, "L", false, 0, "")
				pdf.CellFormat(10, 6, fmt.Sprintf("%d", row.Qty), "1", 0, "R", false, 0, "")
				pdf.CellFormat(0, 6, fmt.Sprintf("%.2f", row.Price), "1", 1, "R", false, 0, "")
			}

			pdf.SetFont("Arial", "B", 9)
			pdf.CellFormat(165, 6, fmt.Sprintf("Group total (%d rows)", view.TotalCount), "1", 0, "R", false, 0, "")
			pdf.CellFormat(0, 6, fmt.Sprintf("%.2f", view.TotalPrice), "1", 1, "R", false, 0, "")
			pdf.Ln(4)

			grandTotal += view.TotalPrice
		}

		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(0, 10, fmt.Sprintf("Grand total: %.2f %s", grandTotal, quote.Currency), "", 1, "R", false, 0, "")

		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render PDF", "details": err.Error()})
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.pdf", quote.QuoteNumber))
		c.Data(http.StatusOK, "application/pdf", buf.Bytes())
	}
}
