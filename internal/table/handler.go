package table

import (
	"fmt"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/database"
	"pos-backend/internal/models"
	"pos-backend/internal/order"

	"github.com/gofiber/fiber/v2"
)

type CreateTableRequest struct {
	Number int `json:"number"`
	// super_admin için opsiyonel:
	BranchID *uint `json:"branch_id"`
}

type AttachOrderRequest struct {
	OrderID uint `json:"order_id"`
}

type TableResponse struct {
	ID             uint                 `json:"id"`
	BranchID       uint                 `json:"branch_id"`
	Number         int                  `json:"number"`
	Status         models.TableStatus   `json:"status"`
	ServerID       *uint                `json:"server_id"`
	CurrentOrderID *uint                `json:"current_order_id"`
	RunningTotal   int64                `json:"running_total"` // açık adisyonun toplamı
	CurrentOrder   *order.OrderResponse `json:"current_order,omitempty"`
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

	// super_admin
	if bodyBranchID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

func parseTableID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Masa ID geçersiz")
	}
	return id, nil
}

// POST /api/tables (manager)
// Masa fiziksel demirbaştır, açılmadan önce tanımlanır.
func CreateTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateTableRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.Number <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Masa numarası 0'dan büyük olmalı")
		}

		branchID, err := resolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		t := models.DiningTable{
			BranchID: branchID,
			Number:   body.Number,
			Status:   models.TableAvailable,
		}
		if err := database.DB.Create(&t).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masa oluşturulamadı (numara bu şubede kullanımda olabilir)")
		}

		return c.Status(fiber.StatusCreated).JSON(TableResponse{
			ID:       t.ID,
			BranchID: t.BranchID,
			Number:   t.Number,
			Status:   t.Status,
		})
	}
}

// GET /api/tables[?branch_id=1] (salon görünümü: tüm masalar ve açık toplamları)
func ListTablesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := resolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		var tables []models.DiningTable
		if err := database.DB.Where("branch_id = ?", branchID).Order("number asc").Find(&tables).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Masalar listelenemedi")
		}

		res := make([]TableResponse, 0, len(tables))
		for _, t := range tables {
			item := TableResponse{
				ID:             t.ID,
				BranchID:       t.BranchID,
				Number:         t.Number,
				Status:         t.Status,
				ServerID:       t.ServerID,
				CurrentOrderID: t.CurrentOrderID,
			}
			if t.CurrentOrderID != nil {
				var total int64
				database.DB.Model(&models.Order{}).
					Where("id = ?", *t.CurrentOrderID).
					Select("total").Scan(&total)
				item.RunningTotal = total
			}
			res = append(res, item)
		}
		return c.JSON(res)
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

// GET /api/tables/:id (masa anlık görünümü, yan etkisiz)
func GetTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := parseTableID(c)
		if err != nil {
			return err
		}

		snap, err := Query(tableID)
		if err != nil {
			return err
		}

		res := TableResponse{
			ID:             snap.Table.ID,
			BranchID:       snap.Table.BranchID,
			Number:         snap.Table.Number,
			Status:         snap.Table.Status,
			ServerID:       snap.Table.ServerID,
			CurrentOrderID: snap.Table.CurrentOrderID,
		}
		if snap.CurrentOrder != nil {
			ordRes := order.ToResponse(snap.CurrentOrder)
			res.CurrentOrder = &ordRes
			res.RunningTotal = snap.CurrentOrder.Total
		}
		return c.JSON(res)
	}
}

// POST /api/tables/:id/open (masayı açar, yeni adisyon döner)
func OpenTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := parseTableID(c)
		if err != nil {
			return err
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := Open(tableID, actor.UserID, actor)
		if err != nil {
			return err
		}

		full, err := order.Get(ord.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(order.ToResponse(full))
	}
}

// POST /api/tables/:id/attach (masasız açık adisyonu masaya bağlar)
func AttachOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := parseTableID(c)
		if err != nil {
			return err
		}

		var body AttachOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.OrderID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "order_id zorunlu")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if err := Attach(tableID, body.OrderID, actor); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Adisyon masaya bağlandı"})
	}
}

// POST /api/tables/:id/release (masayı elle boşaltır)
func ReleaseTableHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tableID, err := parseTableID(c)
		if err != nil {
			return err
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if err := Release(tableID, actor); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"message": "Masa boşaltıldı"})
	}
}
