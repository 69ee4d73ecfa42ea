package ledger

import (
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/closing"
	"pos-backend/internal/database"
	"pos-backend/internal/locks"
	"pos-backend/internal/models"
	"pos-backend/internal/order"
	"pos-backend/internal/poserr"

	"gorm.io/gorm"
)

// Veresiye defteri. Müşteri bakiyesi, o müşteriye yazılmış ve tahsil
// edilmemiş adisyonların toplamına eşit tutulur; bakiyeye dokunan her işlem
// müşteri kilidi altında tek transaction'da yapılır.

func loadCustomer(tx *gorm.DB, customerID uint) (*models.Customer, error) {
	var cust models.Customer
	if err := tx.First(&cust, "id = ?", customerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, poserr.New(poserr.UnknownCustomer, "Müşteri bulunamadı: %d", customerID)
		}
		return nil, err
	}
	return &cust, nil
}

// SignOrder: açık adisyonu müşteriye yazar (veresiye). Adisyon signed olur,
// müşteri bakiyesi toplam kadar artar, masa boşalır; üçü tek transaction'dır.
// Kilit sırası: masa → adisyon → müşteri.
func SignOrder(orderID, customerID uint, actor audit.Actor) (*models.Order, error) {
	peek, release, err := order.LockForTransition(orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	locks.Lock(locks.Customer(customerID))
	defer locks.Unlock(locks.Customer(customerID))

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var ord models.Order
		if err := tx.First(&ord, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
			}
			return err
		}
		if ord.Status != models.OrderOpen {
			return poserr.New(poserr.InvalidState, "Adisyon %s durumunda, veresiye yazılamaz", ord.Status)
		}

		cust, err := loadCustomer(tx, customerID)
		if err != nil {
			return err
		}
		if cust.BranchID != ord.BranchID {
			return poserr.New(poserr.InvalidState, "Müşteri başka şubenin carisi")
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Updates(map[string]interface{}{
			"status":      models.OrderSigned,
			"customer_id": cust.ID,
			"signed_at":   now,
		}).Error; err != nil {
			return fmt.Errorf("adisyon yazılamadı: %w", err)
		}

		if err := tx.Model(&models.Customer{}).Where("id = ?", cust.ID).
			Update("balance", gorm.Expr("balance + ?", ord.Total)).Error; err != nil {
			return fmt.Errorf("müşteri bakiyesi güncellenemedi: %w", err)
		}

		if peek.TableID != nil {
			if err := order.ReleaseTableTx(tx, *peek.TableID); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionSign,
			Description: fmt.Sprintf("Adisyon %s müşteri %s'e yazıldı: %d kuruş", ord.Number, cust.Name, ord.Total),
		})
	})
	if err != nil {
		return nil, err
	}
	return order.Get(orderID)
}

// Settle: seçilen veresiye adisyonlarını tahsil eder. Tutar, seçilen
// adisyonların toplamına birebir eşit olmalı. Adisyon başına idempotent:
// tahsil edilmiş adisyon ikinci kez AlreadySettled'la reddedilir, bakiye
// değişmez. Tahsilat, alındığı iş gününün kasasına sayılır.
func Settle(customerID uint, orderIDs []uint, method models.PaymentMethod, amount int64, actor audit.Actor) error {
	if len(orderIDs) == 0 {
		return poserr.New(poserr.UnknownOrder, "Tahsil edilecek adisyon seçilmedi")
	}
	if !method.Valid() {
		return poserr.New(poserr.InvalidState, "Geçersiz ödeme yöntemi: %s", method)
	}

	locks.Lock(locks.Customer(customerID))
	defer locks.Unlock(locks.Customer(customerID))

	peek, err := loadCustomer(database.DB, customerID)
	if err != nil {
		return err
	}

	day := models.BusinessDay(time.Now())
	locks.Lock(locks.Period(peek.BranchID, day))
	defer locks.Unlock(locks.Period(peek.BranchID, day))

	return database.DB.Transaction(func(tx *gorm.DB) error {
		cust, err := loadCustomer(tx, customerID)
		if err != nil {
			return err
		}

		var orders []models.Order
		if err := tx.Where("id IN ? AND customer_id = ?", orderIDs, cust.ID).Find(&orders).Error; err != nil {
			return fmt.Errorf("adisyonlar okunamadı: %w", err)
		}
		if len(orders) != len(orderIDs) {
			return poserr.New(poserr.UnknownOrder, "Seçilen adisyonlardan bazıları bu müşteriye ait değil")
		}

		var sum int64
		for _, ord := range orders {
			if ord.Status != models.OrderSigned {
				return poserr.New(poserr.InvalidState, "Adisyon %s veresiye durumunda değil", ord.Number)
			}
			if ord.SettledAt != nil {
				return poserr.New(poserr.AlreadySettled, "Adisyon %s zaten tahsil edilmiş", ord.Number)
			}
			sum += ord.Total
		}
		if sum != amount {
			return poserr.New(poserr.AmountMismatch, "Tahsil edilen tutar (%d) seçilen adisyonların toplamına (%d) eşit değil", amount, sum)
		}

		if err := closing.EnsureOpen(tx, cust.BranchID, day); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).Where("id IN ?", orderIDs).Updates(map[string]interface{}{
			"settled_at":    now,
			"settle_method": method,
		}).Error; err != nil {
			return fmt.Errorf("tahsilat kaydedilemedi: %w", err)
		}

		if err := tx.Model(&models.Customer{}).Where("id = ?", cust.ID).
			Update("balance", gorm.Expr("balance - ?", sum)).Error; err != nil {
			return fmt.Errorf("müşteri bakiyesi güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &cust.BranchID,
			Actor:       actor,
			EntityType:  "customer",
			EntityID:    cust.ID,
			Action:      models.AuditActionSettle,
			Description: fmt.Sprintf("%d adisyon tahsil edildi: %d kuruş (%s)", len(orders), sum, method),
		})
	})
}

// Outstanding: müşterinin bekleyen (yazılmış, tahsil edilmemiş) adisyonları.
func Outstanding(customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := database.DB.
		Where("customer_id = ? AND status = ? AND settled_at IS NULL", customerID, models.OrderSigned).
		Order("signed_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("bekleyen adisyonlar okunamadı: %w", err)
	}
	return orders, nil
}
