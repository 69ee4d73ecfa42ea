package models

import "time"

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"      // açık adisyon
	OrderSigned    OrderStatus = "signed"    // müşteriye yazıldı (veresiye)
	OrderPaid      OrderStatus = "paid"      // ödendi
	OrderCancelled OrderStatus = "cancelled" // iptal
)

// Order: adisyon. Durum makinesi tek yönlüdür:
// open → {signed, paid, cancelled}; geri dönüş yok.
// Total her zaman kalemlerin (quantity × unit_price) toplamına eşittir.
type Order struct {
	ID     uint   `gorm:"primaryKey"`
	Number string `gorm:"size:36;uniqueIndex;not null"` // fiş numarası (uuid)

	BranchID uint `gorm:"index;not null"`
	Branch   Branch

	// Masa adisyonu için dolu; paket servis için NULL
	TableID *uint `gorm:"index"`

	// Adisyonu açan garson
	AttendantID uint `gorm:"not null"`
	Attendant   User `gorm:"foreignKey:AttendantID"`

	// Sadece veresiye yazılınca dolar
	CustomerID *uint `gorm:"index"`

	Status OrderStatus `gorm:"size:20;not null;default:'open'"`
	Total  int64       `gorm:"not null;default:0"` // kuruş

	// Ödeme bilgisi (paid olunca dolar)
	Method *PaymentMethod `gorm:"size:20"`
	// İş günü; ödeme anında damgalanır, gün sonu bu kolonla kapanır
	Date *time.Time `gorm:"index"`

	SignedAt    *time.Time
	PaidAt      *time.Time
	CancelledAt *time.Time

	// Veresiye tahsilatı: adisyon signed kalır, tahsilat damgası ayrı tutulur.
	// SettledAt dolu olan adisyonlar müşteri bakiyesine sayılmaz.
	SettledAt    *time.Time
	SettleMethod *PaymentMethod `gorm:"size:20"`

	Items []OrderItem

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem: adisyon kalemi. UnitPrice, kalem eklendiği andaki fiyatın
// anlık görüntüsüdür; sonradan değişen ürün fiyatından etkilenmez.
type OrderItem struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint `gorm:"index;not null"`

	ProductID uint `gorm:"not null"`
	Product   Product

	Quantity  int   `gorm:"not null"`
	UnitPrice int64 `gorm:"not null"` // kuruş, ekleme anındaki fiyat
	Total     int64 `gorm:"not null"` // Quantity × UnitPrice

	CreatedAt time.Time
	UpdatedAt time.Time
}
