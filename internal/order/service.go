package order

import (
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/catalog"
	"pos-backend/internal/closing"
	"pos-backend/internal/database"
	"pos-backend/internal/locks"
	"pos-backend/internal/models"
	"pos-backend/internal/poserr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Adisyon motoru. Durum geçişleri adisyon kilidi altında, tek transaction
// içinde yapılır; masalı adisyonlarda kilit sırası masa → adisyon'dur.

type CreateParams struct {
	// TableID doluysa masa adisyonu, boşsa paket servis
	TableID  *uint
	BranchID uint // paket serviste zorunlu; masa adisyonunda masadan alınır
	// Adisyonu açan garson
	AttendantID uint
}

// Create: open durumunda, kalemsiz yeni adisyon. Masa verilmişse masayı
// doldurur; masada zaten açık adisyon varsa AlreadyOccupied döner.
func Create(params CreateParams, actor audit.Actor) (*models.Order, error) {
	if params.TableID == nil {
		return createTakeaway(params, actor)
	}

	tableID := *params.TableID
	locks.Lock(locks.Table(tableID))
	defer locks.Unlock(locks.Table(tableID))

	var ord *models.Order
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var table models.DiningTable
		if err := tx.First(&table, "id = ?", tableID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return poserr.New(poserr.UnknownTable, "Masa bulunamadı: %d", tableID)
			}
			return err
		}
		if table.CurrentOrderID != nil {
			return poserr.New(poserr.AlreadyOccupied, "Masa %d zaten açık", table.Number)
		}

		var err error
		ord, err = createTx(tx, table.BranchID, &table.ID, params.AttendantID)
		if err != nil {
			return err
		}

		if err := tx.Model(&models.DiningTable{}).Where("id = ?", table.ID).Updates(map[string]interface{}{
			"status":           models.TableOccupied,
			"server_id":        params.AttendantID,
			"current_order_id": ord.ID,
		}).Error; err != nil {
			return fmt.Errorf("masa güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &table.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Masa %d açıldı, adisyon %s", table.Number, ord.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

func createTakeaway(params CreateParams, actor audit.Actor) (*models.Order, error) {
	var ord *models.Order
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		ord, err = createTx(tx, params.BranchID, nil, params.AttendantID)
		if err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &params.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Paket servis adisyonu açıldı: %s", ord.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return ord, nil
}

func createTx(tx *gorm.DB, branchID uint, tableID *uint, attendantID uint) (*models.Order, error) {
	ord := models.Order{
		Number:      uuid.NewString(),
		BranchID:    branchID,
		TableID:     tableID,
		AttendantID: attendantID,
		Status:      models.OrderOpen,
		Total:       0,
	}
	if err := tx.Create(&ord).Error; err != nil {
		return nil, fmt.Errorf("adisyon oluşturulamadı: %w", err)
	}
	return &ord, nil
}

// Get: adisyonu kalemleri ve ürünleriyle okur. Salt okuma.
func Get(orderID uint) (*models.Order, error) {
	var ord models.Order
	err := database.DB.Preload("Items").Preload("Items.Product").First(&ord, "id = ?", orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

// LockForTransition: durum değiştirecek işlemler için kilitleri sabit sırayla
// (masa → adisyon) alır. Kilitler alındıktan sonra adisyonun masası değişmişse
// baştan dener; adisyon kilidi alındıktan sonra masa ataması artık değişemez.
// Dönen release, alınan tüm kilitleri bırakır.
func LockForTransition(orderID uint) (*models.Order, func(), error) {
	for {
		var peek models.Order
		if err := database.DB.Select("id", "table_id", "branch_id").First(&peek, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
			}
			return nil, nil, err
		}

		tableID := peek.TableID
		if tableID != nil {
			locks.Lock(locks.Table(*tableID))
		}
		locks.Lock(locks.Order(orderID))

		release := func() {
			locks.Unlock(locks.Order(orderID))
			if tableID != nil {
				locks.Unlock(locks.Table(*tableID))
			}
		}

		var cur models.Order
		if err := database.DB.Select("id", "table_id", "branch_id").First(&cur, "id = ?", orderID).Error; err != nil {
			release()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
			}
			return nil, nil, err
		}

		same := (cur.TableID == nil && tableID == nil) ||
			(cur.TableID != nil && tableID != nil && *cur.TableID == *tableID)
		if same {
			return &cur, release, nil
		}
		release()
	}
}

// ReleaseTableTx: masayı boşa çeker. Çağıran masa kilidini tutuyor olmalı.
func ReleaseTableTx(tx *gorm.DB, tableID uint) error {
	if err := tx.Model(&models.DiningTable{}).Where("id = ?", tableID).Updates(map[string]interface{}{
		"status":           models.TableAvailable,
		"server_id":        nil,
		"current_order_id": nil,
	}).Error; err != nil {
		return fmt.Errorf("masa boşaltılamadı: %w", err)
	}
	return nil
}

func loadOpen(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var ord models.Order
	if err := tx.Preload("Items").First(&ord, "id = ?", orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
		}
		return nil, err
	}
	if ord.Status != models.OrderOpen {
		return nil, poserr.New(poserr.InvalidState, "Adisyon %s durumunda, işlem yapılamaz", ord.Status)
	}
	return &ord, nil
}

func sumItems(items []models.OrderItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Total
	}
	return total
}

// AddItem: kaleme ürünün o anki fiyatını kopyalar ve adisyon toplamını aynı
// transaction içinde yeniden hesaplar.
func AddItem(orderID, productID uint, quantity int, actor audit.Actor) (*models.Order, error) {
	if quantity <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Adet 0'dan büyük olmalı")
	}

	locks.Lock(locks.Order(orderID))
	defer locks.Unlock(locks.Order(orderID))

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		ord, err := loadOpen(tx, orderID)
		if err != nil {
			return err
		}

		p, err := catalog.Lookup(tx, productID)
		if err != nil {
			return err
		}

		item := models.OrderItem{
			OrderID:   ord.ID,
			ProductID: p.ID,
			Quantity:  quantity,
			UnitPrice: p.Price,
			Total:     int64(quantity) * p.Price,
		}
		if err := tx.Create(&item).Error; err != nil {
			return fmt.Errorf("kalem eklenemedi: %w", err)
		}

		newTotal := sumItems(ord.Items) + item.Total
		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Update("total", newTotal).Error; err != nil {
			return fmt.Errorf("adisyon toplamı güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Kalem eklendi: %d × %s", quantity, p.Name),
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(orderID)
}

// UpdateItem: kalemin adedini değiştirir; birim fiyat anlık görüntü olarak kalır.
func UpdateItem(orderID, itemID uint, quantity int, actor audit.Actor) (*models.Order, error) {
	if quantity <= 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Adet 0'dan büyük olmalı")
	}

	locks.Lock(locks.Order(orderID))
	defer locks.Unlock(locks.Order(orderID))

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		ord, err := loadOpen(tx, orderID)
		if err != nil {
			return err
		}

		var target *models.OrderItem
		for i := range ord.Items {
			if ord.Items[i].ID == itemID {
				target = &ord.Items[i]
				break
			}
		}
		if target == nil {
			return fiber.NewError(fiber.StatusNotFound, "Kalem bulunamadı")
		}

		oldQuantity := target.Quantity
		target.Quantity = quantity
		target.Total = int64(quantity) * target.UnitPrice

		if err := tx.Model(&models.OrderItem{}).Where("id = ?", target.ID).Updates(map[string]interface{}{
			"quantity": target.Quantity,
			"total":    target.Total,
		}).Error; err != nil {
			return fmt.Errorf("kalem güncellenemedi: %w", err)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Update("total", sumItems(ord.Items)).Error; err != nil {
			return fmt.Errorf("adisyon toplamı güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Kalem adedi değişti: %d → %d (kalem %d)", oldQuantity, quantity, itemID),
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(orderID)
}

// RemoveItem: kalemi siler ve toplamı düşürür.
func RemoveItem(orderID, itemID uint, actor audit.Actor) (*models.Order, error) {
	locks.Lock(locks.Order(orderID))
	defer locks.Unlock(locks.Order(orderID))

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		ord, err := loadOpen(tx, orderID)
		if err != nil {
			return err
		}

		var remaining []models.OrderItem
		var removed *models.OrderItem
		for i := range ord.Items {
			if ord.Items[i].ID == itemID {
				removed = &ord.Items[i]
				continue
			}
			remaining = append(remaining, ord.Items[i])
		}
		if removed == nil {
			return fiber.NewError(fiber.StatusNotFound, "Kalem bulunamadı")
		}

		if err := tx.Delete(&models.OrderItem{}, "id = ?", itemID).Error; err != nil {
			return fmt.Errorf("kalem silinemedi: %w", err)
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Update("total", sumItems(remaining)).Error; err != nil {
			return fmt.Errorf("adisyon toplamı güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Kalem silindi: %d × ürün %d", removed.Quantity, removed.ProductID),
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(orderID)
}

// Cancel: open → cancelled. Masalı adisyonda masayı da boşaltır.
func Cancel(orderID uint, actor audit.Actor) (*models.Order, error) {
	peek, release, err := LockForTransition(orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		ord, err := loadOpen(tx, orderID)
		if err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Updates(map[string]interface{}{
			"status":       models.OrderCancelled,
			"cancelled_at": now,
		}).Error; err != nil {
			return fmt.Errorf("adisyon iptal edilemedi: %w", err)
		}

		if peek.TableID != nil {
			if err := ReleaseTableTx(tx, *peek.TableID); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionCancel,
			Description: fmt.Sprintf("Adisyon iptal edildi: %s", ord.Number),
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(orderID)
}

// MarkPaid: open → paid. Tutar, hesaplanan toplamla birebir eşleşmek zorunda;
// kısmi ödeme yok. İş günü ödeme anında damgalanır ve güne mühür kontrolü
// aynı transaction içinde yapılır.
func MarkPaid(orderID uint, method models.PaymentMethod, amount int64, actor audit.Actor) (*models.Order, error) {
	if !method.Valid() {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Geçersiz ödeme yöntemi (cash|pos|yemeksepeti)")
	}

	peek, release, err := LockForTransition(orderID)
	if err != nil {
		return nil, err
	}
	defer release()

	day := models.BusinessDay(time.Now())
	locks.Lock(locks.Period(peek.BranchID, day))
	defer locks.Unlock(locks.Period(peek.BranchID, day))

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		ord, err := loadOpen(tx, orderID)
		if err != nil {
			return err
		}

		if amount != ord.Total {
			return poserr.New(poserr.AmountMismatch, "Ödenen tutar (%d) adisyon toplamına (%d) eşit değil", amount, ord.Total)
		}

		if err := closing.EnsureOpen(tx, ord.BranchID, day); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Updates(map[string]interface{}{
			"status":  models.OrderPaid,
			"method":  method,
			"date":    day,
			"paid_at": now,
		}).Error; err != nil {
			return fmt.Errorf("ödeme kaydedilemedi: %w", err)
		}

		if peek.TableID != nil {
			if err := ReleaseTableTx(tx, *peek.TableID); err != nil {
				return err
			}
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &ord.BranchID,
			Actor:       actor,
			EntityType:  "order",
			EntityID:    ord.ID,
			Action:      models.AuditActionPay,
			Description: fmt.Sprintf("Adisyon ödendi: %s - %d kuruş (%s)", ord.Number, ord.Total, method),
		})
	})
	if err != nil {
		return nil, err
	}
	return Get(orderID)
}
