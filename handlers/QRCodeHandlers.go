package handlers

import (
	"backend/services"
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"golang.org/x/image/font"
	"golang.org/x/image/font/inconsolata"
	"golang.org/x/image/math/fixed"
)

func addLabel(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{0, 0, 0, 255}
	face := inconsolata.Regular8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

func addLabelBold(img *image.RGBA, x, y int, label string) {
	col := color.RGBA{30, 30, 30, 255}
	face := inconsolata.Bold8x16

	point := fixed.Point26_6{
		X: fixed.Int26_6(x * 64),
		Y: fixed.Int26_6(y * 64),
	}

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: face,
		Dot:  point,
	}
	d.DrawString(label)
}

// GenerateQuoteQRCodeJPEG godoc
// @Summary      Generate quote QR code as JPEG
// @Tags         qr
// @Param        id   path      int  true  "Quote ID"
// @Success      200  {file}    file  "JPEG image"
// @Failure      404  {object}  object
// @Router       /api/quotes/{id}/qr [get]
func GenerateQuoteQRCodeJPEG(quotes *services.QuoteService) gin.HandlerFunc {
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

		qrData := struct {
			ID          uint   `json:"id"`
			QuoteNumber string `json:"quote_number"`
			Submitted   bool   `json:"submitted"`
		}{
			ID:          quote.ID,
			QuoteNumber: quote.QuoteNumber,
			Submitted:   quote.SubmittedAt != nil,
		}

		jsonData, err := json.Marshal(qrData)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to marshal quote data"})
			return
		}

		qr, err := qrcode.New(string(jsonData), qrcode.Medium)
		if err != nil {
			c.String(http.StatusInternalServerError, "QR code generation failed")
			return
		}

		qrImg := qr.Image(512)

		qrSize := qrImg.Bounds().Dy()
		padding := 30
		lineHeight := 28
		textAreaHeight := 3*lineHeight + padding
		totalHeight := qrSize + padding + textAreaHeight

		combinedImg := image.NewRGBA(image.Rect(0, 0, qrSize, totalHeight))
		draw.Draw(combinedImg, combinedImg.Bounds(), &image.Uniform{color.White}, image.Point{}, draw.Src)

		qrRect := image.Rect(0, 0, qrSize, qrSize)
		draw.Draw(combinedImg, qrRect, qrImg, image.Point{}, draw.Src)

		separatorY := qrSize + padding/2
		for x := 0; x < qrSize; x++ {
			combinedImg.Set(x, separatorY, color.RGBA{200, 200, 200, 255})
		}

		startY := qrSize + padding + lineHeight
		xPos := 20

		status := "Draft"
		if quote.SubmittedAt != nil {
			status = "Submitted"
		}

		addLabelBold(combinedImg, xPos, startY, "Quote No:")
		addLabel(combinedImg, xPos+120, startY, quote.QuoteNumber)

		addLabelBold(combinedImg, xPos, startY+lineHeight, "Customer:")
		customerDisplay := quote.CustomerName
		if len(customerDisplay) > 30 {
			customerDisplay = customerDisplay[:27] + "..."
		}
		addLabel(combinedImg, xPos+120, startY+lineHeight, customerDisplay)

		addLabelBold(combinedImg, xPos, startY+2*lineHeight, "Status:")
		addLabel(combinedImg, xPos+120, startY+2*lineHeight, status+" / "+strconv.Itoa(int(quote.ID)))

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, combinedImg, nil); err != nil {
			c.String(http.StatusInternalServerError, "JPEG encoding failed")
			return
		}

		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
	}
}
