package expense

import (
	"errors"
	"fmt"
	"time"

	"pos-backend/internal/audit"
	"pos-backend/internal/closing"
	"pos-backend/internal/database"
	"pos-backend/internal/locks"
	"pos-backend/internal/models"
	"pos-backend/internal/poserr"

	"gorm.io/gorm"
)

type CreateParams struct {
	BranchID    uint
	CategoryID  uint
	Date        time.Time // iş günü
	Amount      int64     // kuruş
	Method      *models.PaymentMethod
	Description string
}

// Create: gideri kaydeder. Mühürlenmiş güne gider yazılamaz; kontrol gün
// kilidi altında, kayıtla aynı transaction içinde yapılır.
func Create(params CreateParams, actor audit.Actor) (*models.Expense, error) {
	day := models.BusinessDay(params.Date)

	var cat models.ExpenseCategory
	if err := database.DB.First(&cat, "id = ?", params.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, poserr.New(poserr.InvalidState, "gider kategorisi bulunamadı: %d", params.CategoryID)
		}
		return nil, err
	}

	periodKey := locks.Period(params.BranchID, day)
	locks.Lock(periodKey)
	defer locks.Unlock(periodKey)

	exp := models.Expense{
		BranchID:    params.BranchID,
		CategoryID:  params.CategoryID,
		Date:        day,
		Amount:      params.Amount,
		Method:      params.Method,
		Description: params.Description,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := closing.EnsureOpen(tx, params.BranchID, day); err != nil {
			return err
		}
		if err := tx.Create(&exp).Error; err != nil {
			return err
		}
		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &exp.BranchID,
			Actor:       actor,
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Gider eklendi: %s - %d kuruş", cat.Name, exp.Amount),
			After:       snapshot(&exp),
		})
	})
	if err != nil {
		return nil, err
	}

	exp.Category = cat
	return &exp, nil
}

type CorrectParams struct {
	CategoryID  *uint
	Date        *time.Time
	Amount      *int64
	Method      *models.PaymentMethod
	ClearMethod bool
	Description *string
}

// lockForCorrection: düzeltme için gün kilitlerini alır. Önce gideri okuyup
// eski günü belirler, kilitleri aldıktan sonra tekrar okur; gider bu arada
// başka bir düzeltmeyle gün değiştirdiyse baştan dener. Kilitler anahtar
// sırasına göre alınır, release hepsini ters sırayla bırakır.
func lockForCorrection(expenseID uint, paramDate *time.Time) (*models.Expense, time.Time, time.Time, func(), error) {
	for {
		var peek models.Expense
		if err := database.DB.First(&peek, "id = ?", expenseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, time.Time{}, time.Time{}, nil, poserr.New(poserr.InvalidState, "gider bulunamadı: %d", expenseID)
			}
			return nil, time.Time{}, time.Time{}, nil, err
		}

		oldDay := models.BusinessDay(peek.Date)
		newDay := oldDay
		if paramDate != nil {
			newDay = models.BusinessDay(*paramDate)
		}

		keys := []string{locks.Period(peek.BranchID, oldDay)}
		if !newDay.Equal(oldDay) {
			other := locks.Period(peek.BranchID, newDay)
			if other < keys[0] {
				keys = []string{other, keys[0]}
			} else {
				keys = append(keys, other)
			}
		}
		for _, k := range keys {
			locks.Lock(k)
		}
		release := func() {
			for i := len(keys) - 1; i >= 0; i-- {
				locks.Unlock(keys[i])
			}
		}

		var cur models.Expense
		if err := database.DB.First(&cur, "id = ?", expenseID).Error; err != nil {
			release()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, time.Time{}, time.Time{}, nil, poserr.New(poserr.InvalidState, "gider bulunamadı: %d", expenseID)
			}
			return nil, time.Time{}, time.Time{}, nil, err
		}

		if models.BusinessDay(cur.Date).Equal(oldDay) {
			return &cur, oldDay, newDay, release, nil
		}

		// Eşzamanlı düzeltme günü değiştirmiş, kilitler yanlış güne ait
		release()
	}
}

// Correct: müdür düzeltmesi. Hem eski hem yeni iş günü açık olmalıdır;
// gün kilitleri lockForCorrection ile alınır.
func Correct(expenseID uint, params CorrectParams, actor audit.Actor) (*models.Expense, error) {
	expPtr, oldDay, newDay, release, err := lockForCorrection(expenseID, params.Date)
	if err != nil {
		return nil, err
	}
	defer release()

	exp := *expPtr
	before := snapshot(&exp)

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		// Kilit altında son hali oku
		if err := tx.First(&exp, "id = ?", expenseID).Error; err != nil {
			return err
		}

		if err := closing.EnsureOpen(tx, exp.BranchID, oldDay); err != nil {
			return err
		}
		if !newDay.Equal(oldDay) {
			if err := closing.EnsureOpen(tx, exp.BranchID, newDay); err != nil {
				return err
			}
		}

		if params.CategoryID != nil {
			var cat models.ExpenseCategory
			if err := tx.First(&cat, "id = ?", *params.CategoryID).Error; err != nil {
				return poserr.New(poserr.InvalidState, "gider kategorisi bulunamadı: %d", *params.CategoryID)
			}
			exp.CategoryID = *params.CategoryID
		}
		if params.Date != nil {
			exp.Date = newDay
		}
		if params.Amount != nil {
			exp.Amount = *params.Amount
		}
		if params.ClearMethod {
			exp.Method = nil
		} else if params.Method != nil {
			exp.Method = params.Method
		}
		if params.Description != nil {
			exp.Description = *params.Description
		}

		if err := tx.Save(&exp).Error; err != nil {
			return err
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &exp.BranchID,
			Actor:       actor,
			EntityType:  "expense",
			EntityID:    exp.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Gider düzeltildi: #%d", exp.ID),
			Before:      before,
			After:       snapshot(&exp),
		})
	})
	if err != nil {
		return nil, err
	}

	if err := database.DB.Preload("Category").First(&exp, "id = ?", exp.ID).Error; err != nil {
		return nil, err
	}
	return &exp, nil
}

func snapshot(exp *models.Expense) map[string]any {
	m := map[string]any{
		"id":          exp.ID,
		"branch_id":   exp.BranchID,
		"category_id": exp.CategoryID,
		"date":        exp.Date.Format("2006-01-02"),
		"amount":      exp.Amount,
		"description": exp.Description,
	}
	if exp.Method != nil {
		m["method"] = string(*exp.Method)
	}
	return m
}
