package table

import (
	"errors"
	"fmt"

	"pos-backend/internal/audit"
	"pos-backend/internal/database"
	"pos-backend/internal/locks"
	"pos-backend/internal/models"
	"pos-backend/internal/order"
	"pos-backend/internal/poserr"

	"gorm.io/gorm"
)

// Masa kaydı: doluluk durumu ve aktif adisyon eşlemesi. Aynı masadaki
// Open/Attach/Release çağrıları masa kilidiyle serileştirilir; kontrol-sonra-
// yaz dizisi kilit altında olduğu için iki terminal aynı anda açamaz.

func loadTable(tx *gorm.DB, tableID uint) (*models.DiningTable, error) {
	var t models.DiningTable
	if err := tx.First(&t, "id = ?", tableID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, poserr.New(poserr.UnknownTable, "Masa bulunamadı: %d", tableID)
		}
		return nil, err
	}
	return &t, nil
}

// Open: masayı açar; adisyonu motor oluşturur ve masaya bağlar.
// Masada açık adisyon varsa AlreadyOccupied.
func Open(tableID, attendantID uint, actor audit.Actor) (*models.Order, error) {
	return order.Create(order.CreateParams{
		TableID:     &tableID,
		AttendantID: attendantID,
	}, actor)
}

// Attach: var olan açık (masasız) bir adisyonu boş masaya bağlar.
func Attach(tableID, orderID uint, actor audit.Actor) error {
	locks.Lock(locks.Table(tableID))
	defer locks.Unlock(locks.Table(tableID))
	locks.Lock(locks.Order(orderID))
	defer locks.Unlock(locks.Order(orderID))

	return database.DB.Transaction(func(tx *gorm.DB) error {
		t, err := loadTable(tx, tableID)
		if err != nil {
			return err
		}
		if t.CurrentOrderID != nil {
			return poserr.New(poserr.AlreadyOccupied, "Masa %d zaten açık", t.Number)
		}

		var ord models.Order
		if err := tx.First(&ord, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return poserr.New(poserr.UnknownOrder, "Adisyon bulunamadı: %d", orderID)
			}
			return err
		}
		if ord.Status != models.OrderOpen {
			return poserr.New(poserr.InvalidState, "Adisyon %s durumunda, masaya bağlanamaz", ord.Status)
		}
		if ord.TableID != nil {
			return poserr.New(poserr.InvalidState, "Adisyon zaten bir masaya bağlı")
		}
		if ord.BranchID != t.BranchID {
			return poserr.New(poserr.InvalidState, "Adisyon başka şubeye ait")
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", ord.ID).Update("table_id", t.ID).Error; err != nil {
			return fmt.Errorf("adisyon masaya bağlanamadı: %w", err)
		}
		if err := tx.Model(&models.DiningTable{}).Where("id = ?", t.ID).Updates(map[string]interface{}{
			"status":           models.TableOccupied,
			"server_id":        ord.AttendantID,
			"current_order_id": ord.ID,
		}).Error; err != nil {
			return fmt.Errorf("masa güncellenemedi: %w", err)
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &t.BranchID,
			Actor:       actor,
			EntityType:  "dining_table",
			EntityID:    t.ID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Adisyon %s masa %d'e bağlandı", ord.Number, t.Number),
		})
	})
}

// Release: masayı elle boşaltır. Adisyonlar ödendiğinde/yazıldığında/iptalde
// masa zaten motor tarafından boşaltılır; buradaki yol, adisyonu hâlâ açık
// olan masayı korur (açık adisyonlu masa available görünemez).
func Release(tableID uint, actor audit.Actor) error {
	locks.Lock(locks.Table(tableID))
	defer locks.Unlock(locks.Table(tableID))

	return database.DB.Transaction(func(tx *gorm.DB) error {
		t, err := loadTable(tx, tableID)
		if err != nil {
			return err
		}
		if t.CurrentOrderID == nil {
			return poserr.New(poserr.InvalidState, "Masa %d zaten boş", t.Number)
		}

		var ord models.Order
		if err := tx.First(&ord, "id = ?", *t.CurrentOrderID).Error; err != nil {
			return fmt.Errorf("masadaki adisyon okunamadı: %w", err)
		}
		if ord.Status == models.OrderOpen {
			return poserr.New(poserr.InvalidState, "Masa %d'in açık adisyonu var, önce kapat veya iptal et", t.Number)
		}

		if err := order.ReleaseTableTx(tx, t.ID); err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &t.BranchID,
			Actor:       actor,
			EntityType:  "dining_table",
			EntityID:    t.ID,
			Action:      models.AuditActionRelease,
			Description: fmt.Sprintf("Masa %d boşaltıldı", t.Number),
		})
	})
}

// Snapshot: masanın anlık görünümü. Salt okuma; log yazmaz.
type Snapshot struct {
	Table        models.DiningTable
	CurrentOrder *models.Order // Items yüklü
}

func Query(tableID uint) (*Snapshot, error) {
	t, err := loadTable(database.DB, tableID)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Table: *t}
	if t.CurrentOrderID != nil {
		ord, err := order.Get(*t.CurrentOrderID)
		if err != nil {
			return nil, err
		}
		snap.CurrentOrder = ord
	}
	return snap, nil
}
