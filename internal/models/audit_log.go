package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionOpen    AuditAction = "open"    // masa açma
	AuditActionRelease AuditAction = "release" // masa kapama
	AuditActionCancel  AuditAction = "cancel"  // adisyon iptali
	AuditActionPay     AuditAction = "pay"     // ödeme
	AuditActionSign    AuditAction = "sign"    // veresiye yazma
	AuditActionSettle  AuditAction = "settle"  // veresiye tahsilatı
	AuditActionSeal    AuditAction = "seal"    // gün sonu mühürleme
)

// AuditLog: yalnızca eklenen işlem kaydı. Hiçbir zaman güncellenmez ya da
// silinmez; durum buradan geri oynatılmaz.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Hangi şube?
	BranchID *uint `json:"branch_id"`

	// Hangi kullanıcı?
	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // Kullanıcı adı (denormalize)

	// Hangi entity? (ör: "order", "dining_table", "customer", "expense", "day_closure")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action AuditAction `gorm:"size:20" json:"action"`

	// Opsiyonel açıklama (küçük bir özet)
	Description string `gorm:"size:255" json:"description"`

	// Önceki ve sonraki hal (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
