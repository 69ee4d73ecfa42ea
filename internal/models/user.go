package models

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin" // tüm şubeler
	RoleManager    UserRole = "manager"     // şube müdürü (gün sonu, gider düzeltme)
	RoleCashier    UserRole = "cashier"     // kasiyer
	RoleWaiter     UserRole = "waiter"      // garson
)

// BranchScoped: şubeye bağlı roller için true; bu rollerde branch_id JWT'den gelir.
func (r UserRole) BranchScoped() bool {
	return r != RoleSuperAdmin
}

type User struct {
	ID           uint `gorm:"primaryKey"`
	BranchID     *uint
	Branch       *Branch
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
