package models

import "time"

// Product: satış katalogundaki ürün. Price güncel liste fiyatıdır; adisyon
// kalemine eklenirken anlık görüntüsü alınır (OrderItem.UnitPrice).
type Product struct {
	ID       uint   `gorm:"primaryKey"`
	Name     string `gorm:"size:100;not null;unique"`
	Category string `gorm:"size:50;index"`      // içecek, ana yemek vs.
	Price    int64  `gorm:"not null"`           // kuruş
	IsActive bool   `gorm:"not null;default:true"` // pasif ürünler adisyona eklenemez

	CreatedAt time.Time
	UpdatedAt time.Time
}
