package db

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/Roquverse/flow-invoice-nexus/internal/models"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

// Seed inserts a demo user with one client. It is idempotent.
func Seed(gdb *gorm.DB, log *zap.Logger) error {
	var user models.User
	err := gdb.Where("email = ?", demoEmail).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		hash, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user = models.User{Email: demoEmail, Name: "Demo", Password: string(hash)}
		if err := gdb.Create(&user).Error; err != nil {
			return fmt.Errorf("seed user: %w", err)
		}
		log.Info("seeded demo user", zap.String("email", demoEmail))
	case err != nil:
		return err
	}

	var count int64
	if err := gdb.Model(&models.Client{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	client := models.Client{
		UserID:       user.ID,
		BusinessName: "Acme Inc",
		ContactName:  "Jane Roe",
		Email:        "billing@acme.test",
		City:         "Paris",
		Country:      "France",
		Status:       models.ClientStatusActive,
	}
	if err := gdb.Create(&client).Error; err != nil {
		return fmt.Errorf("seed client: %w", err)
	}
	return nil
}
