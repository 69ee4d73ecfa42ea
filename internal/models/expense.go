package models

import "time"

type ExpenseCategory struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;uniqueIndex"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expense: gider kaydı. Kaydedildikten sonra değişmez; tek istisna müdürün
// açıkça yaptığı, audit'e işlenen düzeltmedir. Mühürlenmiş güne gider yazılamaz.
type Expense struct {
	ID          uint `gorm:"primaryKey"`
	BranchID    uint `gorm:"index;not null"`
	Branch      Branch
	CategoryID  uint `gorm:"index;not null"`
	Category    ExpenseCategory
	Date        time.Time `gorm:"index;not null"` // iş günü (gece yarısı)
	Amount      int64     `gorm:"not null"`       // kuruş
	// Kasadan hangi yöntemle çıktı; NULL ise gün sonunda nakit sayılır
	Method      *PaymentMethod `gorm:"size:20"`
	Description string         `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
