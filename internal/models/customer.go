package models

import "time"

// Customer: veresiye defterindeki cari. Balance her zaman bu müşteriye yazılmış
// ve henüz tahsil edilmemiş adisyonların toplamına eşit tutulur; iki yazma da
// aynı transaction içinde, müşteri kilidi altında yapılır.
type Customer struct {
	ID       uint `gorm:"primaryKey"`
	BranchID uint `gorm:"index;not null"`
	Branch   Branch

	Name  string `gorm:"size:100;not null"`
	Phone string `gorm:"size:50"` // opsiyonel

	Balance int64 `gorm:"not null;default:0"` // bekleyen veresiye toplamı (kuruş)

	CreatedAt time.Time
	UpdatedAt time.Time
}
