package reporting

import (
	"fmt"
	"time"

	"pos-backend/internal/auth"
	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type MethodRevenue struct {
	Method models.PaymentMethod `json:"method"`
	Total  int64                `json:"total"`
}

type ExpenseByCategory struct {
	CategoryID   uint   `json:"category_id"`
	CategoryName string `json:"category_name"`
	Total        int64  `json:"total"`
}

type RevenueBlock struct {
	Items []MethodRevenue `json:"items"`
	Total int64           `json:"total"`
}

type ExpenseBlock struct {
	Items []ExpenseByCategory `json:"items"`
	Total int64               `json:"total"`
}

type MonthlyFinancialSummaryResponse struct {
	BranchID      uint         `json:"branch_id"`
	Year          int          `json:"year"`
	Month         int          `json:"month"`
	Revenue       RevenueBlock `json:"revenue"`
	Expenses      ExpenseBlock `json:"expenses"`
	TotalExpenses int64        `json:"total_expenses"`
	NetProfit     int64        `json:"net_profit"`
}

// -----------------------------------
// Yardımcı: branch_id'yi çöz
// -----------------------------------

func resolveBranchIDFromQueryOrRole(c *fiber.Ctx) (uint, error) {
	roleVal := c.Locals(auth.CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if !ok {
		return 0, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}

	if role.BranchScoped() {
		bVal := c.Locals(auth.CtxBranchIDKey)
		bPtr, ok := bVal.(*uint)
		if !ok || bPtr == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
		}
		return *bPtr, nil
	}

	// super_admin
	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id geçersiz")
	}
	return bid, nil
}

// -----------------------------------
// GET /api/financial-summary/monthly
// ?year=2025&month=12[&branch_id=1]
//
// Ciro = ödenen adisyonlar (iş günü bazında) + o ay yapılan veresiye
// tahsilatları. Veresiye yazıldığı ay değil, tahsil edildiği ay ciroya girer.
// -----------------------------------
func MonthlyFinancialSummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := resolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		yearStr := c.Query("year")
		monthStr := c.Query("month")
		if yearStr == "" || monthStr == "" {
			return fiber.NewError(fiber.StatusBadRequest, "year ve month zorunlu")
		}

		var year, month int
		if _, err := fmt.Sscan(yearStr, &year); err != nil || year < 2000 {
			return fiber.NewError(fiber.StatusBadRequest, "year geçersiz")
		}
		if _, err := fmt.Sscan(monthStr, &month); err != nil || month < 1 || month > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "month geçersiz")
		}

		loc := time.Now().Location()
		firstDay := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		nextMonth := firstDay.AddDate(0, 1, 0)
		lastDay := nextMonth.AddDate(0, 0, -1)

		// ---------------------------
		// 1) Ciro: ödenen adisyonlar
		// ---------------------------

		type revRow struct {
			Method string `gorm:"column:method"`
			Total  int64  `gorm:"column:total"`
		}
		var paidRows []revRow

		if err := database.DB.
			Model(&models.Order{}).
			Select("method, SUM(total) as total").
			Where("branch_id = ? AND status = ? AND date >= ? AND date <= ?", branchID, models.OrderPaid, firstDay, lastDay).
			Group("method").
			Scan(&paidRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ciro hesaplanamadı")
		}

		// ---------------------------
		// 2) Ciro: veresiye tahsilatları
		// ---------------------------

		var settleRows []revRow

		if err := database.DB.
			Model(&models.Order{}).
			Select("settle_method as method, SUM(total) as total").
			Where("branch_id = ? AND settled_at >= ? AND settled_at < ?", branchID, firstDay, nextMonth).
			Group("settle_method").
			Scan(&settleRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Tahsilatlar hesaplanamadı")
		}

		byMethod := make(map[models.PaymentMethod]int64)
		for _, r := range paidRows {
			byMethod[models.PaymentMethod(r.Method)] += r.Total
		}
		for _, r := range settleRows {
			byMethod[models.PaymentMethod(r.Method)] += r.Total
		}

		revenueBlock := RevenueBlock{Items: make([]MethodRevenue, 0, len(byMethod))}
		for _, m := range models.AllPaymentMethods() {
			total, ok := byMethod[m]
			if !ok {
				continue
			}
			revenueBlock.Items = append(revenueBlock.Items, MethodRevenue{Method: m, Total: total})
			revenueBlock.Total += total
		}

		// ---------------------------
		// 3) Giderler (kategori bazlı)
		// ---------------------------

		type expRow struct {
			CategoryID uint  `gorm:"column:category_id"`
			Total      int64 `gorm:"column:total"`
		}
		var expRows []expRow

		if err := database.DB.
			Model(&models.Expense{}).
			Select("category_id, SUM(amount) as total").
			Where("branch_id = ? AND date >= ? AND date <= ?", branchID, firstDay, lastDay).
			Group("category_id").
			Scan(&expRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Giderler hesaplanamadı")
		}

		// Kategori adlarını getir
		catIDs := make([]uint, 0, len(expRows))
		for _, r := range expRows {
			catIDs = append(catIDs, r.CategoryID)
		}

		catMap := make(map[uint]string)
		if len(catIDs) > 0 {
			var cats []models.ExpenseCategory
			if err := database.DB.Where("id IN ?", catIDs).Find(&cats).Error; err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Kategori bilgileri alınamadı")
			}
			for _, ccat := range cats {
				catMap[ccat.ID] = ccat.Name
			}
		}

		expenseBlock := ExpenseBlock{Items: make([]ExpenseByCategory, 0, len(expRows))}
		for _, r := range expRows {
			expenseBlock.Items = append(expenseBlock.Items, ExpenseByCategory{
				CategoryID:   r.CategoryID,
				CategoryName: catMap[r.CategoryID],
				Total:        r.Total,
			})
			expenseBlock.Total += r.Total
		}

		resp := MonthlyFinancialSummaryResponse{
			BranchID:      branchID,
			Year:          year,
			Month:         month,
			Revenue:       revenueBlock,
			Expenses:      expenseBlock,
			TotalExpenses: expenseBlock.Total,
			NetProfit:     revenueBlock.Total - expenseBlock.Total,
		}

		return c.JSON(resp)
	}
}
