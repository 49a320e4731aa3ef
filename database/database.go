package database

import (
	"log"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"planboard/models"
)

func Init(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto migrate the schema
	err = db.AutoMigrate(
		&models.TeamMember{},
		&models.Project{},
		&models.Phase{},
		&models.Task{},
		&models.Assignment{},
		&models.AuditLogEntry{},
	)
	if err != nil {
		return nil, err
	}

	if err := seedDefaultManager(db); err != nil {
		return nil, err
	}

	return db, nil
}

func seedDefaultManager(db *gorm.DB) error {
	var count int64
	db.Model(&models.TeamMember{}).Where("email = ?", "admin@planboard.local").Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	manager := models.TeamMember{
		Name:         "Administrator",
		Email:        "admin@planboard.local",
		PasswordHash: string(hashedPassword),
		Role:         models.RoleManager,
		Active:       true,
	}

	if err := db.Create(&manager).Error; err != nil {
		return err
	}

	log.Println("Default manager created (email: admin@planboard.local, password: admin)")
	return nil
}
