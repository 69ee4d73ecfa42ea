package models

import "time"

type TableStatus string

const (
	TableAvailable TableStatus = "available" // boş
	TableOccupied  TableStatus = "occupied"  // dolu
)

// DiningTable: fiziksel masa. Değişmez: Status == occupied ⇔ CurrentOrderID dolu.
// Bir masada aynı anda en fazla bir açık adisyon olabilir.
type DiningTable struct {
	ID       uint `gorm:"primaryKey"`
	BranchID uint `gorm:"not null;uniqueIndex:idx_dining_tables_branch_number,priority:1"`
	Branch   Branch
	Number   int `gorm:"not null;uniqueIndex:idx_dining_tables_branch_number,priority:2"` // masa numarası

	Status TableStatus `gorm:"size:20;not null;default:'available'"`

	// Masayı açan garson (dolu değilken boş)
	ServerID *uint

	// Masanın aktif adisyonu (boşken NULL)
	CurrentOrderID *uint `gorm:"index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
