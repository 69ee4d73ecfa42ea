package closing

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/database"
	"pos-backend/internal/locks"
	"pos-backend/internal/models"
	"pos-backend/internal/poserr"

	"gorm.io/gorm"
)

// Amounts: yöntem → tutar (kuruş). Kapanış kayıtlarında üç yöntem de
// her zaman anahtar olarak bulunur; hareketi olmayan yöntem 0'dır.
type Amounts map[models.PaymentMethod]int64

func NewAmounts() Amounts {
	a := make(Amounts, len(models.AllPaymentMethods()))
	for _, m := range models.AllPaymentMethods() {
		a[m] = 0
	}
	return a
}

func encodeAmounts(a Amounts) string {
	b, err := json.Marshal(a)
	if err != nil {
		return "null"
	}
	return string(b)
}

// DecodeAmounts: jsonb kolonundan yöntem→tutar eşlemesini geri okur.
func DecodeAmounts(s string) Amounts {
	a := NewAmounts()
	if s == "" || s == "null" {
		return a
	}
	var raw map[models.PaymentMethod]int64
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return a
	}
	for m, v := range raw {
		a[m] = v
	}
	return a
}

// EnsureOpen: (şube, gün) mühürlüyse SealedPeriod döner. Mühürlenmiş güne
// nakit yazan her işlem (ödeme, tahsilat, gider) kendi transaction'ı içinde
// bu kontrolü çağırır.
func EnsureOpen(tx *gorm.DB, branchID uint, day time.Time) error {
	var count int64
	if err := tx.Model(&models.DayClosure{}).
		Where("branch_id = ? AND date = ? AND sealed = ?", branchID, day, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("kapanış kontrolü yapılamadı: %w", err)
	}
	if count > 0 {
		return poserr.New(poserr.SealedPeriod, "%s günü bu şube için mühürlenmiş, kayıt yapılamaz", day.Format("2006-01-02"))
	}
	return nil
}

type CloseParams struct {
	BranchID uint
	Date     time.Time
	Declared Amounts
	Notes    string
}

// Close: günün beklenen tutarlarını hesaplar, beyanla karşılaştırır ve
// (şube, gün) kaydını mühürler. Period kilidi toplama okuması ile mühür
// yazması boyunca tutulur; aynı güne geç kalmış bir ödeme ya kapanıştan
// önce toplanır ya da mühürden sonra SealedPeriod ile reddedilir.
func Close(params CloseParams, actor audit.Actor) (*models.DayClosure, error) {
	day := models.BusinessDay(params.Date)

	locks.Lock(locks.Period(params.BranchID, day))
	defer locks.Unlock(locks.Period(params.BranchID, day))

	var closure *models.DayClosure
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.DayClosure{}).
			Where("branch_id = ? AND date = ? AND sealed = ?", params.BranchID, day, true).
			Count(&count).Error; err != nil {
			return fmt.Errorf("kapanış sorgulanamadı: %w", err)
		}
		if count > 0 {
			return poserr.New(poserr.AlreadyClosed, "%s günü bu şube için zaten kapatılmış", day.Format("2006-01-02"))
		}

		expected, err := expectedAmounts(tx, params.BranchID, day)
		if err != nil {
			return err
		}

		declared := NewAmounts()
		for m, v := range params.Declared {
			declared[m] = v
		}

		// fark = beyan − beklenen
		variance := NewAmounts()
		for _, m := range models.AllPaymentMethods() {
			variance[m] = declared[m] - expected[m]
		}

		now := time.Now()
		closure = &models.DayClosure{
			BranchID:     params.BranchID,
			Date:         day,
			Declared:     encodeAmounts(declared),
			Expected:     encodeAmounts(expected),
			Variance:     encodeAmounts(variance),
			Notes:        params.Notes,
			Sealed:       true,
			SealedAt:     &now,
			SealedByID:   actor.UserID,
			SealedByName: actor.UserName,
		}
		if err := tx.Create(closure).Error; err != nil {
			return fmt.Errorf("kapanış kaydedilemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &params.BranchID,
			Actor:       actor,
			EntityType:  "day_closure",
			EntityID:    closure.ID,
			Action:      models.AuditActionSeal,
			Description: fmt.Sprintf("Gün sonu mühürlendi: %s", day.Format("2006-01-02")),
			After:       closureSnapshot(closure),
		})
	})
	if err != nil {
		return nil, err
	}
	return closure, nil
}

// closureSnapshot: audit için Branch ilişkisiz düz görünüm
func closureSnapshot(dc *models.DayClosure) map[string]any {
	return map[string]any{
		"id":        dc.ID,
		"branch_id": dc.BranchID,
		"date":      dc.Date.Format("2006-01-02"),
		"declared":  json.RawMessage(dc.Declared),
		"expected":  json.RawMessage(dc.Expected),
		"variance":  json.RawMessage(dc.Variance),
		"notes":     dc.Notes,
	}
}

// expectedAmounts: günün kasada olması gereken tutarları yöntem bazında toplar.
// Ödenen adisyonlar + o gün alınan veresiye tahsilatları − giderler.
// Açık ya da tahsil edilmemiş veresiye adisyonlar henüz nakit değildir,
// toplamaya girmez ve kapanışı da engellemez.
func expectedAmounts(tx *gorm.DB, branchID uint, day time.Time) (Amounts, error) {
	expected := NewAmounts()
	nextDay := day.AddDate(0, 0, 1)

	type row struct {
		Method *string `gorm:"column:method"`
		Total  int64   `gorm:"column:total"`
	}

	// 1) O iş gününde ödenen adisyonlar
	var paidRows []row
	if err := tx.Model(&models.Order{}).
		Select("method, SUM(total) as total").
		Where("branch_id = ? AND status = ? AND date = ?", branchID, models.OrderPaid, day).
		Group("method").
		Scan(&paidRows).Error; err != nil {
		return nil, fmt.Errorf("adisyon toplamları okunamadı: %w", err)
	}
	for _, r := range paidRows {
		if r.Method == nil {
			continue
		}
		expected[models.PaymentMethod(*r.Method)] += r.Total
	}

	// 2) O gün tahsil edilen veresiyeler (tahsilat gününe sayılır)
	var settleRows []row
	if err := tx.Model(&models.Order{}).
		Select("settle_method as method, SUM(total) as total").
		Where("branch_id = ? AND settled_at >= ? AND settled_at < ?", branchID, day, nextDay).
		Group("settle_method").
		Scan(&settleRows).Error; err != nil {
		return nil, fmt.Errorf("tahsilat toplamları okunamadı: %w", err)
	}
	for _, r := range settleRows {
		if r.Method == nil {
			continue
		}
		expected[models.PaymentMethod(*r.Method)] += r.Total
	}

	// 3) Günün giderleri düşülür; yöntemi boş olan gider nakit sayılır
	var expenseRows []row
	if err := tx.Model(&models.Expense{}).
		Select("method, SUM(amount) as total").
		Where("branch_id = ? AND date = ?", branchID, day).
		Group("method").
		Scan(&expenseRows).Error; err != nil {
		return nil, fmt.Errorf("gider toplamları okunamadı: %w", err)
	}
	for _, r := range expenseRows {
		method := models.PaymentMethodCash
		if r.Method != nil && *r.Method != "" {
			method = models.PaymentMethod(*r.Method)
		}
		expected[method] -= r.Total
	}

	return expected, nil
}

// Query: (şube, gün) mühürlüyse kapanışı döner, değilse nil.
// Salt okumadır, yan etkisi yoktur.
func Query(branchID uint, date time.Time) (*models.DayClosure, error) {
	day := models.BusinessDay(date)

	var closure models.DayClosure
	err := database.DB.
		Where("branch_id = ? AND date = ? AND sealed = ?", branchID, day, true).
		First(&closure).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("kapanış okunamadı: %w", err)
	}
	return &closure, nil
}
