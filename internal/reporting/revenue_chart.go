package reporting

import (
	"fmt"
	"sort"
	"time"

	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type RevenueChartPoint struct {
	Label       string `json:"label"` // tarih / hafta başlangıcı / ay başlangıcı
	Cash        int64  `json:"cash"`
	POS         int64  `json:"pos"`
	YemekSepeti int64  `json:"yemeksepeti"`
	Total       int64  `json:"total"`
}

type RevenueChartGrandTotals struct {
	Cash        int64 `json:"cash"`
	POS         int64 `json:"pos"`
	YemekSepeti int64 `json:"yemeksepeti"`
	Total       int64 `json:"total"`
}

type RevenueChartResponse struct {
	BranchID    uint                    `json:"branch_id"`
	Period      string                  `json:"period"` // daily | weekly | monthly
	From        string                  `json:"from"`
	To          string                  `json:"to"`
	Points      []RevenueChartPoint     `json:"points"`
	GrandTotals RevenueChartGrandTotals `json:"grand_totals"`
}

// GET /api/dashboard/revenue-chart?period=daily&count=7[&branch_id=1]
// Ödenen adisyonlar iş gününe, veresiye tahsilatları tahsil gününe yazılır.
func RevenueChartHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID, err := resolveBranchIDFromQueryOrRole(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily") // daily | weekly | monthly
		countStr := c.Query("count", "")

		var count int
		if countStr == "" {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 12
			default:
				period = "daily"
				count = 7
			}
		} else {
			if _, err := fmt.Sscan(countStr, &count); err != nil || count <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
			}
		}

		now := time.Now()
		loc := now.Location()
		// bugünün 00:00'ı
		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		var start time.Time

		var trunc string
		switch period {
		case "weekly":
			days := 7 * (count - 1)
			start = end.AddDate(0, 0, -days)
			trunc = "week"
		case "monthly":
			end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
			start = end.AddDate(0, -(count - 1), 0)
			end = start.AddDate(0, count, 0).AddDate(0, 0, -1)
			trunc = "month"
		default:
			period = "daily"
			start = end.AddDate(0, 0, -(count - 1))
			trunc = ""
		}

		// Ödemeler ve tahsilatlar tek sorguda birleşir, sonra bucket'a indirgenir
		type row struct {
			Bucket time.Time `gorm:"column:bucket"`
			Method string    `gorm:"column:method"`
			Total  int64     `gorm:"column:total"`
		}
		var rows []row

		bucketExpr := "day::date"
		if trunc != "" {
			bucketExpr = fmt.Sprintf("date_trunc('%s', day)::date", trunc)
		}

		sql := fmt.Sprintf(`
			SELECT %s AS bucket, method, SUM(total) AS total
			FROM (
				SELECT date AS day, method, total
				FROM orders
				WHERE branch_id = ? AND status = 'paid' AND date >= ? AND date <= ?
				UNION ALL
				SELECT settled_at AS day, settle_method AS method, total
				FROM orders
				WHERE branch_id = ? AND settled_at >= ? AND settled_at <= ?
			) revenue
			GROUP BY bucket, method
			ORDER BY bucket ASC;
		`, bucketExpr)

		endOfRange := end.AddDate(0, 0, 1)
		if err := database.DB.Raw(sql, branchID, start, end, branchID, start, endOfRange).Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}

		type bucketAgg struct {
			Bucket      time.Time
			Cash        int64
			POS         int64
			YemekSepeti int64
			Total       int64
		}

		buckets := make(map[time.Time]*bucketAgg)

		for _, r := range rows {
			agg, ok := buckets[r.Bucket]
			if !ok {
				agg = &bucketAgg{Bucket: r.Bucket}
				buckets[r.Bucket] = agg
			}

			switch r.Method {
			case string(models.PaymentMethodCash):
				agg.Cash += r.Total
			case string(models.PaymentMethodPOS):
				agg.POS += r.Total
			case string(models.PaymentMethodYemekSepeti):
				agg.YemekSepeti += r.Total
			}
		}

		ordered := make([]bucketAgg, 0, len(buckets))
		for _, v := range buckets {
			v.Total = v.Cash + v.POS + v.YemekSepeti
			ordered = append(ordered, *v)
		}

		sort.Slice(ordered, func(i, j int) bool {
			return ordered[i].Bucket.Before(ordered[j].Bucket)
		})

		points := make([]RevenueChartPoint, 0, len(ordered))
		grand := RevenueChartGrandTotals{}

		for _, b := range ordered {
			points = append(points, RevenueChartPoint{
				Label:       b.Bucket.Format("2006-01-02"),
				Cash:        b.Cash,
				POS:         b.POS,
				YemekSepeti: b.YemekSepeti,
				Total:       b.Total,
			})

			grand.Cash += b.Cash
			grand.POS += b.POS
			grand.YemekSepeti += b.YemekSepeti
			grand.Total += b.Total
		}

		resp := RevenueChartResponse{
			BranchID:    branchID,
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.Format("2006-01-02"),
			Points:      points,
			GrandTotals: grand,
		}

		return c.JSON(resp)
	}
}
