package ledger

import (
	"fmt"
	"strings"

	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/database"
	"pos-backend/internal/models"
	"pos-backend/internal/order"

	"github.com/gofiber/fiber/v2"
)

type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	// super_admin için opsiyonel:
	BranchID *uint `json:"branch_id"`
}

type CustomerResponse struct {
	ID       uint   `json:"id"`
	BranchID uint   `json:"branch_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Balance  int64  `json:"balance"` // kuruş
}

type CustomerDetailResponse struct {
	CustomerResponse
	Outstanding []order.OrderResponse `json:"outstanding"`
}

type SignOrderRequest struct {
	CustomerID uint `json:"customer_id"`
}

type SettleRequest struct {
	OrderIDs []uint               `json:"order_ids"`
	Method   models.PaymentMethod `json:"method"`
	Amount   int64                `json:"amount"` // kuruş, seçilen adisyonların toplamı
}

func toCustomerResponse(c models.Customer) CustomerResponse {
	return CustomerResponse{
		ID:       c.ID,
		BranchID: c.BranchID,
		Name:     c.Name,
		Phone:    c.Phone,
		Balance:  c.Balance,
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

	if bodyBranchID == nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id zorunlu")
	}
	return *bodyBranchID, nil
}

func parseCustomerID(c *fiber.Ctx) (uint, error) {
	var id uint
	if _, err := fmt.Sscan(c.Params("id"), &id); err != nil || id == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Müşteri ID geçersiz")
	}
	return id, nil
}

// POST /api/customers
func CreateCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCustomerRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri adı zorunlu")
		}

		branchID, err := resolveBranchIDFromBodyOrRole(c, body.BranchID)
		if err != nil {
			return err
		}

		cust := models.Customer{
			BranchID: branchID,
			Name:     body.Name,
			Phone:    strings.TrimSpace(body.Phone),
		}
		if err := database.DB.Create(&cust).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toCustomerResponse(cust))
	}
}

// GET /api/customers[?branch_id=1]
func ListCustomersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleVal := c.Locals(auth.CtxUserRoleKey)
		role, ok := roleVal.(models.UserRole)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
		}

		dbq := database.DB.Model(&models.Customer{})

		if role.BranchScoped() {
			bPtr, ok := c.Locals(auth.CtxBranchIDKey).(*uint)
			if !ok || bPtr == nil {
				return fiber.NewError(fiber.StatusForbidden, "Şube bilgisi bulunamadı")
			}
			dbq = dbq.Where("branch_id = ?", *bPtr)
		} else if bidStr := c.Query("branch_id"); bidStr != "" {
			var bid uint
			if _, err := fmt.Sscan(bidStr, &bid); err == nil && bid > 0 {
				dbq = dbq.Where("branch_id = ?", bid)
			}
		}

		var customers []models.Customer
		if err := dbq.Order("name asc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}

		res := make([]CustomerResponse, 0, len(customers))
		for _, cust := range customers {
			res = append(res, toCustomerResponse(cust))
		}
		return c.JSON(res)
	}
}

// GET /api/customers/:id (bakiye + bekleyen adisyonlar)
func GetCustomerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		customerID, err := parseCustomerID(c)
		if err != nil {
			return err
		}

		cust, err := loadCustomer(database.DB, customerID)
		if err != nil {
			return err
		}

		outstanding, err := Outstanding(customerID)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		res := CustomerDetailResponse{
			CustomerResponse: toCustomerResponse(*cust),
			Outstanding:      make([]order.OrderResponse, 0, len(outstanding)),
		}
		for i := range outstanding {
			res.Outstanding = append(res.Outstanding, order.ToResponse(&outstanding[i]))
		}
		return c.JSON(res)
	}
}

// POST /api/orders/:id/sign (adisyonu müşteriye yazar)
func SignOrderHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var orderID uint
		if _, err := fmt.Sscan(c.Params("id"), &orderID); err != nil || orderID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Adisyon ID geçersiz")
		}

		var body SignOrderRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if body.CustomerID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "customer_id zorunlu")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		ord, err := SignOrder(orderID, body.CustomerID, actor)
		if err != nil {
			return err
		}
		return c.JSON(order.ToResponse(ord))
	}
}

// POST /api/customers/:id/settle (seçilen veresiyeleri tahsil eder)
func SettleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		customerID, err := parseCustomerID(c)
		if err != nil {
			return err
		}

		var body SettleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
		}
		if !body.Method.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz ödeme yöntemi (cash|pos|yemeksepeti)")
		}

		actor, err := audit.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if err := Settle(customerID, body.OrderIDs, body.Method, body.Amount, actor); err != nil {
			return err
		}

		cust, err := loadCustomer(database.DB, customerID)
		if err != nil {
			return err
		}
		return c.JSON(toCustomerResponse(*cust))
	}
}
