package audit

import (
	"encoding/json"
	"fmt"

	"pos-backend/internal/auth"
	"pos-backend/internal/database"
	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Actor: audit kayıtlarına işlenecek kullanıcı kimliği.
type Actor struct {
	UserID   uint
	UserName string
	BranchID *uint
}

// ActorFromCtx: JWT claim'lerinden actor'ü çözer, adı denormalize etmek için
// kullanıcıyı okur. Handler'lar servis çağrılarına bunu geçirir.
func ActorFromCtx(c *fiber.Ctx) (Actor, error) {
	userIDVal := c.Locals(auth.CtxUserIDKey)
	userID, ok := userIDVal.(uint)
	if !ok {
		return Actor{}, fiber.NewError(fiber.StatusForbidden, "Kullanıcı bilgisi alınamadı")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return Actor{}, fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı bulunamadı")
	}

	var branchID *uint
	if bPtr, ok := c.Locals(auth.CtxBranchIDKey).(*uint); ok && bPtr != nil {
		branchID = bPtr
	}

	return Actor{UserID: userID, UserName: user.Name, BranchID: branchID}, nil
}

type LogOptions struct {
	BranchID    *uint
	Actor       Actor
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// WriteLog: kaydı verilen transaction içinde yazar; böylece log, anlattığı
// mutasyonla birlikte commit olur ya da birlikte geri alınır.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	// PostgreSQL jsonb için boş string yerine "null" JSON string'i kullanmalıyız
	beforeStr := "null"
	afterStr := "null"

	if opts.Before != nil {
		if b, err := json.Marshal(opts.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	branchID := opts.BranchID
	if branchID == nil {
		branchID = opts.Actor.BranchID
	}

	entry := models.AuditLog{
		BranchID:    branchID,
		UserID:      opts.Actor.UserID,
		UserName:    opts.Actor.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  beforeStr,
		AfterData:   afterStr,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit log kaydedilemedi: %w", err)
	}

	return nil
}
