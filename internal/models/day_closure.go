package models

import "time"

// DayClosure: (şube, gün) için gün sonu kapanışı. Sealed olduktan sonra o güne
// ait adisyon/gider yazılamaz ve kayıt değiştirilemez; müdür müdahalesi ayrı
// bir genişleme noktasıdır.
type DayClosure struct {
	ID       uint `gorm:"primaryKey"`
	BranchID uint `gorm:"not null;uniqueIndex:idx_day_closures_branch_date,priority:1"`
	Branch   Branch
	Date     time.Time `gorm:"not null;uniqueIndex:idx_day_closures_branch_date,priority:2"` // iş günü (gece yarısı)

	// Yöntem → tutar (kuruş) eşlemeleri, JSON olarak
	Declared string `gorm:"type:jsonb"` // kasiyerin beyan ettiği
	Expected string `gorm:"type:jsonb"` // sistemin hesapladığı
	Variance string `gorm:"type:jsonb"` // beyan − beklenen

	Notes string `gorm:"size:255"`

	Sealed       bool `gorm:"not null;default:false"`
	SealedAt     *time.Time
	SealedByID   uint
	SealedByName string `gorm:"size:100"` // kapanışı yapan (denormalize)

	CreatedAt time.Time
	UpdatedAt time.Time
}
