package database

import (
	"log"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitTest: servis testleri için bellek içi SQLite açar ve şemayı kurar.
// Tek bağlantıya indirilir; eşzamanlılık zaten entity kilitleriyle
// serileştirildiği için testlerde SQLITE_BUSY görülmez.
func InitTest() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("Test veritabanı açılamadı: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Test veritabanı havuzu alınamadı: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		log.Fatalf("Test migration hatası: %v", err)
	}

	DB = db
}
