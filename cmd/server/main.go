package main

import (
	"errors"
	"log"
	"strings"

	"pos-backend/internal/admin"
	"pos-backend/internal/audit"
	"pos-backend/internal/auth"
	"pos-backend/internal/catalog"
	"pos-backend/internal/closing"
	"pos-backend/internal/config"
	"pos-backend/internal/database"
	"pos-backend/internal/expense"
	"pos-backend/internal/ledger"
	"pos-backend/internal/models"
	"pos-backend/internal/order"
	"pos-backend/internal/poserr"
	"pos-backend/internal/reporting"
	"pos-backend/internal/table"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Çekirdek işlemlerin türlenmiş hataları
			var pe *poserr.Error
			if errors.As(err, &pe) {
				return c.Status(poserr.HTTPStatus(pe.Kind)).JSON(fiber.Map{
					"error": pe.Message,
					"kind":  string(pe.Kind),
				})
			}
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Beklenmeyen sunucu hatası",
			})
		},
	})

	// CORS origins'i virgülle ayrılmış string'den array'e çevir
	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Şube yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/staff", admin.CreateBranchStaffHandler())
	adminRoutes.Get("/branches/:id/staff", admin.ListBranchStaffHandler())

	// Menü yönetimi
	adminRoutes.Post("/products", catalog.CreateProductHandler())
	adminRoutes.Put("/products/:id", catalog.UpdateProductHandler())
	adminRoutes.Delete("/products/:id", catalog.DeleteProductHandler())

	// Gider kategorileri
	adminRoutes.Post("/expense-categories", expense.CreateExpenseCategoryHandler())
	adminRoutes.Put("/expense-categories/:id", expense.UpdateExpenseCategoryHandler())
	adminRoutes.Delete("/expense-categories/:id", expense.DeleteExpenseCategoryHandler())

	// Ortak (auth gerektiren) route'lar

	// Menü
	protected.Get("/products", catalog.ListProductsHandler())

	// Masalar
	protected.Post("/tables", table.CreateTableHandler())
	protected.Get("/tables", table.ListTablesHandler())
	protected.Get("/tables/:id", table.GetTableHandler())
	protected.Post("/tables/:id/open", table.OpenTableHandler())
	protected.Post("/tables/:id/attach", table.AttachOrderHandler())
	protected.Post("/tables/:id/release", table.ReleaseTableHandler())

	// Adisyonlar
	protected.Post("/orders", order.CreateOrderHandler())
	protected.Get("/orders", order.ListOrdersHandler())
	protected.Get("/orders/:id", order.GetOrderHandler())
	protected.Post("/orders/:id/items", order.AddItemHandler())
	protected.Put("/orders/:id/items/:itemId", order.UpdateItemHandler())
	protected.Delete("/orders/:id/items/:itemId", order.RemoveItemHandler())
	protected.Post("/orders/:id/cancel", order.CancelOrderHandler())
	protected.Post("/orders/:id/pay", order.PayOrderHandler())
	protected.Post("/orders/:id/sign", ledger.SignOrderHandler())

	// Veresiye müşterileri
	protected.Post("/customers", ledger.CreateCustomerHandler())
	protected.Get("/customers", ledger.ListCustomersHandler())
	protected.Get("/customers/:id", ledger.GetCustomerHandler())
	protected.Post("/customers/:id/settle", ledger.SettleHandler())

	// Giderler
	protected.Get("/expense-categories", expense.ListExpenseCategoriesHandler())
	protected.Post("/expenses", expense.CreateExpenseHandler())
	protected.Get("/expenses", expense.ListExpensesHandler())
	protected.Get("/expenses/summary/monthly", expense.MonthlyExpenseSummaryHandler())
	protected.Put("/expenses/:id", auth.RequireRole(models.RoleManager, models.RoleSuperAdmin), expense.CorrectExpenseHandler())

	// Gün sonu
	protected.Post("/day-closures", auth.RequireRole(models.RoleManager, models.RoleSuperAdmin), closing.CloseDayHandler())
	protected.Get("/day-closures", closing.GetDayClosureHandler())
	protected.Get("/day-closures/export", closing.ExportDayClosureHandler())

	// Raporlama
	protected.Get("/financial-summary/monthly", reporting.MonthlyFinancialSummaryHandler())
	protected.Get("/dashboard/revenue-chart", reporting.RevenueChartHandler())

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	log.Println("Server çalışıyor port:", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
