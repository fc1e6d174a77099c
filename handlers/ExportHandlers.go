package handlers

import (
	"backend/services"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportGroupsExcelHandler exports the grouped row breakdown of a quote as
// an Excel workbook: one header band, a block per group with its rows and a
// totals line.
// @Summary Export grouped rows as Excel
// @Tags Export
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path int true "Quote ID"
// @Success 200 {file} file "Excel file"
// @Failure 404 {object} utils.Response
// @Router /api/quotes/{id}/export/excel [get]
func ExportGroupsExcelHandler(quotes *services.QuoteService, groups *services.GroupDescriptionService) gin.HandlerFunc {
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

		f := excelize.NewFile()
		sheet := "Groups"
		f.SetSheetName("Sheet1", sheet)

		titleStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Size: 14},
			Alignment: &excelize.Alignment{
				Horizontal: "left",
				Vertical:   "center",
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build styles"})
			return
		}
		headerStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"4472C4"},
				Pattern: 1,
			},
			Alignment: &excelize.Alignment{
				Horizontal: "center",
				Vertical:   "center",
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build styles"})
			return
		}
		groupStyle, err := f.NewStyle(&excelize.Style{
			Font: &excelize.Font{Bold: true},
			Fill: excelize.Fill{
				Type:    "pattern",
				Color:   []string{"D9E1F2"},
				Pattern: 1,
			},
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build styles"})
			return
		}

		f.SetCellValue(sheet, "A1", fmt.Sprintf("Quote %s - %s (%s)", quote.QuoteNumber, quote.CustomerName, quote.Currency))
		f.MergeCell(sheet, "A1", "E1")
		f.SetCellStyle(sheet, "A1", "E1", titleStyle)

		headers := []string{"Product No", "Description", "Serial No", "Qty", "Price"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 3)
			f.SetCellValue(sheet, cell, h)
		}
		f.SetCellStyle(sheet, "A3", "E3", headerStyle)

		rowIdx := 4
		for _, view := range views {
			groupCell, _ := excelize.CoordinatesToCellName(1, rowIdx)
			endCell, _ := excelize.CoordinatesToCellName(5, rowIdx)
			f.SetCellValue(sheet, groupCell, view.Name)
			f.MergeCell(sheet, groupCell, endCell)
			f.SetCellStyle(sheet, groupCell, endCell, groupStyle)
			rowIdx++

			for _, row := range view.Rows {
				f.SetCellValue(sheet, fmt.Sprintf("A%d", rowIdx), row.ProductNo)
				f.SetCellValue(sheet, fmt.Sprintf("B%d", rowIdx), row.Description)
				f.SetCellValue(sheet, fmt.Sprintf("C%d", rowIdx), row.SerialNo)
				f.SetCellValue(sheet, fmt.Sprintf("D%d", rowIdx), row.Qty)
				f.SetCellValue(sheet, fmt.Sprintf("E%d", rowIdx), row.Price)
				rowIdx++
			}

			f.SetCellValue(sheet, fmt.Sprintf("A%d", rowIdx), fmt.Sprintf("Total (%d rows)", view.TotalCount))
			f.SetCellValue(sheet, fmt.Sprintf("E%d", rowIdx), view.TotalPrice)
			rowIdx += 2
		}

		f.SetColWidth(sheet, "A", "A", 18)
		f.SetColWidth(sheet, "B", "B", 45)
		f.SetColWidth(sheet, "C", "C", 18)
		f.SetColWidth(sheet, "D", "E", 12)

		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s-groups.xlsx", quote.QuoteNumber))
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		if err := f.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
