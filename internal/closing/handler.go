package closing

import (
	"fmt"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CloseDayRequest struct {
	Date     string           `json:"date"` // "2025-12-09"
	Declared map[string]int64 `json:"declared"` // yöntem → kuruş
	Notes    string           `json:"notes"`
	// super_admin için opsiyonel:
	BranchID *uint `json:"branch_id"`
}

type DayClosureResponse struct {
	ID           uint             `json:"id"`
	BranchID     uint             `json:"branch_id"`
	Date         string           `json:"date"`
	Declared     map[string]int64 `json:"declared"`
	Expected     map[string]int64 `json:"expected"`
	Variance     map[string]int64 `json:"variance"`
	Notes        string           `json:"notes"`
	Sealed       bool             `json:"sealed"`
	SealedAt     *string          `json:"sealed_at"`
	SealedByID   uint             `json:"sealed_by_id"`
	SealedByName string           `json:"sealed_by_name"`
}

func toResponse(dc *models.DayClosure) DayClosureResponse {
	res := DayClosureResponse{
		ID:           dc.ID,
		BranchID:     dc.BranchID,
		Date:         dc.Date.Format("2006-01-02"),
		Declared:     amountsToJSON(DecodeAmounts(dc.Declared)),
		Expected:     amountsToJSON(DecodeAmounts(dc.Expected)),
		Variance:     amountsToJSON(DecodeAmounts(dc.Variance)),
		Notes:        dc.Notes,
		Sealed:       dc.Sealed,
		SealedByID:   dc.SealedByID,
		SealedByName: dc.SealedByName,
	}
	if dc.SealedAt != nil {
		s := dc.SealedAt.Format("2006-01-02 15:04:05")
		res.SealedAt = &s
	}
	return res
}

func amountsToJSON(a Amounts) map[string]int64 {
	out := make(map[string]int64, len(a))
	for m, v := range a {
		out[string(m)] = v
	}
	return out
}

// Yardımcı: body'den gelen branch_id + rol
func resolveBranchIDFromBodyOrRole(c *fiber.Ctx, bodyBranchID *uint) (uint, error) {
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

	if bodyBranchID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

// POST /api/day-closures (manager, super_admin)
func CloseDayHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CloseDayRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		if body.Date == "" {
			return fiber.NewError(fiber.StatusBadRequest, "date zorunlu")
		}
		date, err := models.ParseBusinessDay(body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
		}

		// Bilinmeyen yöntem etiketleri sınırda reddedilir
		declared := Amounts{}
		for name, v := range body.Declared {
			m := models.PaymentMethod(name)
			if !m.Valid() {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Geçersiz ödeme yöntemi: %s", name))
			}
			if v < 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Beyan tutarı negatif olamaz")
			}
			declared[m] = v
		}

		branchID, err := resolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		closure, err := Close(CloseParams{
			BranchID: branchID,
			Date:     date,
			Declared: declared,
			Notes:    body.Notes,
		}, actor)
		if err != nil {
			return err
		}

		return c.Status(fiber.StatusCreated).JSON(toResponse(closure))
	}
}

// GET /api/day-closures?date=2025-12-09[&branch_id=1]
func GetDayClosureHandler() fiber.Handler {
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
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Gün henüz kapanmamış",
				"kind":  "not_closed",
			})
		}
		return c.JSON(toResponse(closure))
	}
}

// Yardımcı: query'den gelen branch_id + rol
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
