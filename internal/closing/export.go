package closing

import (
	"fmt"

	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

var methodLabels = map[models.PaymentMethod]string{
	models.PaymentMethodCash:        "Nakit",
	models.PaymentMethodPOS:         "POS",
	models.PaymentMethodYemekSepeti: "Yemeksepeti",
}

// GET /api/day-closures/export?date=2025-12-09[&branch_id=1]
// Mühürlenmiş gün sonunu xlsx olarak indirir.
func ExportDayClosureHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dateStr := c.Query("date")
		if dateStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date zorunlu")
		}
		date, err := models.ParseBusinessDay(dateStr)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
		}

		branchID, err := resolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		closure, err := Query(branchID, date)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		if closure == nil {
			return fiber.NewError(fiber.StatusNotFound, "Gün henüz kapanmamış")
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := "Gün Sonu"
		f.SetSheetName("Sheet1", sheet)

		f.SetCellValue(sheet, "A1", "Gün Sonu Raporu")
		f.SetCellValue(sheet, "A2", "Tarih")
		f.SetCellValue(sheet, "B2", closure.Date.Format("2006-01-02"))
		f.SetCellValue(sheet, "A3", "Kapatan")
		f.SetCellValue(sheet, "B3", closure.SealedByName)
		if closure.SealedAt != nil {
			f.SetCellValue(sheet, "A4", "Mühür Zamanı")
			f.SetCellValue(sheet, "B4", closure.SealedAt.Format("2006-01-02 15:04:05"))
		}

		f.SetCellValue(sheet, "A6", "Yöntem")
		f.SetCellValue(sheet, "B6", "Beyan (TL)")
		f.SetCellValue(sheet, "C6", "Beklenen (TL)")
		f.SetCellValue(sheet, "D6", "Fark (TL)")

		declared := DecodeAmounts(closure.Declared)
		expected := DecodeAmounts(closure.Expected)
		variance := DecodeAmounts(closure.Variance)

		row := 7
		for _, m := range models.AllPaymentMethods() {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), methodLabels[m])
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), float64(declared[m])/100)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), float64(expected[m])/100)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), float64(variance[m])/100)
			row++
		}

		var totalDeclared, totalExpected, totalVariance int64
		for _, m := range models.AllPaymentMethods() {
			totalDeclared += declared[m]
			totalExpected += expected[m]
			totalVariance += variance[m]
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Toplam")
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), float64(totalDeclared)/100)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), float64(totalExpected)/100)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), float64(totalVariance)/100)

		if closure.Notes != "" {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row+2), "Notlar")
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row+2), closure.Notes)
		}

		f.SetColWidth(sheet, "A", "D", 18)

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı: "+err.Error())
		}

		filename := fmt.Sprintf("gun-sonu-%d-%s.xlsx", closure.BranchID, closure.Date.Format("2006-01-02"))
		c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
		return c.Send(buf.Bytes())
	}
}
