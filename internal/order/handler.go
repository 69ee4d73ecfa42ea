package order

import (
	"fmt"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type CreateOrderRequest struct {
	TableID *uint `json:"table_id"` // boşsa paket servis
	// super_admin için opsiyonel (paket serviste):
	BranchID *uint `json:"branch_id"`
}

type AddItemRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type PayOrderRequest struct {
	Method models.PaymentMethod `json:"method"` // "cash" | "pos" | "yemeksepeti"
	Amount int64                `json:"amount"` // kuruş, toplamla birebir eşleşmeli
}

type OrderItemResponse struct {
	ID          uint   `json:"id"`
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total"`
}

type OrderResponse struct {
	ID          uint                  `json:"id"`
	Number      string                `json:"number"`
	BranchID    uint                  `json:"branch_id"`
	TableID     *uint                 `json:"table_id"`
	AttendantID uint                  `json:"attendant_id"`
	CustomerID  *uint                 `json:"customer_id"`
	Status      models.OrderStatus    `json:"status"`
	Total       int64                 `json:"total"`
	Method      *models.PaymentMethod `json:"method"`
	Date        *string               `json:"date"`
	Items       []OrderItemResponse   `json:"items"`
	CreatedAt   string                `json:"created_at"`
	SettledAt   *string               `json:"settled_at"`
}

func ToResponse(ord *models.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(ord.Items))
	for _, it := range ord.Items {
		items = append(items, OrderItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			Total:       it.Total,
		})
	}

	var dateStr *string
	if ord.Date != nil {
		s := ord.Date.Format("2006-01-02")
		dateStr = &s
	}
	var settledStr *string
	if ord.SettledAt != nil {
		s := ord.SettledAt.Format("2006-01-02 15:04:05")
		settledStr = &s
	}

	return OrderResponse{
		ID:          ord.ID,
		Number:      ord.Number,
		BranchID:    ord.BranchID,
		TableID:     ord.TableID,
		AttendantID: ord.AttendantID,
		CustomerID:  ord.CustomerID,
		Status:      ord.Status,
		Total:       ord.Total,
		Method:      ord.Method,
		Date:        dateStr,
		Items:       items,
		CreatedAt:   ord.CreatedAt.Format("2006-01-02 15:04:05"),
		SettledAt:   settledStr,
	}
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

func parseIDParam(c *fiber.Ctx, name string) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params(name), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s geçersiz", name))
	}
	return id, nil
}

// POST /api/orders
func CreateOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		params := CreateParams{TableID: body.TableID, AttendantID: actor.UserID}
		if body.TableID == nil {
			branchID, err := resolveBranchIDFromBodyOrRole(c, body.BranchID)
			if err != nil {
				return err
			}
			params.BranchID = branchID
		}

		ord, err := Create(params, actor)
		if err != nil {
			return err
		}

		full, err := Get(ord.ID)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(full))
	}
}

// GET /api/orders/:id
func GetOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		ord, err := Get(orderID)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(ord))
	}
}

// GET /api/orders?status=open&date=2025-12-09[&branch_id=1]
func ListOrdersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := resolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Preload("Items").Preload("Items.Product").
			Where("branch_id = ?", branchID)

		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}
		if dateStr := c.Query("date"); dateStr != "" {
			d, err := models.ParseBusinessDay(dateStr)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Tarih formatı geçersiz, 'YYYY-MM-DD' olmalı")
			}
			dbq = dbq.Where("date = ?", d)
		}

		var orders []models.Order
		if err := dbq.Order("created_at DESC").Find(&orders).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Adisyonlar listelenemedi")
		}

		res := make([]OrderResponse, 0, len(orders))
		for i := range orders {
			res = append(res, ToResponse(&orders[i]))
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

// POST /api/orders/:id/items
func AddItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var body AddItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.ProductID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "product_id zorunlu")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := AddItem(orderID, body.ProductID, body.Quantity, actor)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(ord))
	}
}

// PUT /api/orders/:id/items/:itemId
func UpdateItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}
		itemID, err := parseIDParam(c, "itemId")
		if err != nil {
			return err
		}

		var body UpdateItemRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := UpdateItem(orderID, itemID, body.Quantity, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(ord))
	}
}

// DELETE /api/orders/:id/items/:itemId
func RemoveItemHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}
		itemID, err := parseIDParam(c, "itemId")
		if err != nil {
			return err
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := RemoveItem(orderID, itemID, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(ord))
	}
}

// POST /api/orders/:id/cancel
func CancelOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := Cancel(orderID, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(ord))
	}
}

// POST /api/orders/:id/pay
func PayOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		orderID, err := parseIDParam(c, "id")
		if err != nil {
			return err
		}

		var body PayOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := MarkPaid(orderID, body.Method, body.Amount, actor)
		if err != nil {
			return err
		}
		return c.JSON(ToResponse(ord))
	}
}
