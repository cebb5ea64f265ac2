package bank

import (
	"log"

	"github.com/faria/mony-api/internal/db"
	"gorm.io/gorm"
)

// Migrate creates or updates every bank table on d.
func Migrate(d *gorm.DB) error {
	return d.AutoMigrate(allModels...)
}

func Init() {
	if err := Migrate(db.DB); err != nil {
		log.Fatal("Failed to auto-migrate bank tables: ", err)
	}

	log.Println("Bank module initialized")
}
