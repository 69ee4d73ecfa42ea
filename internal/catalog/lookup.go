package catalog

import (
	"errors"

	"pos-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// Lookup: adisyona kalem eklenirken ürün adı/fiyatı buradan okunur.
// Dönen fiyat o anın anlık görüntüsüdür; kaleme kopyalanır.
func Lookup(tx *gorm.DB, productID uint) (*models.Product, error) {
	var p models.Product
	if err := tx.First(&p, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
		}
		return nil, err
	}
	if !p.IsActive {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Pasif ürün adisyona eklenemez")
	}
	return &p, nil
}
