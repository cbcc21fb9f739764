// Command seedadmin creates the initial back-office administrator account.
// Override the defaults with ADMIN_EMAIL and ADMIN_PASSWORD.
package main

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/carbridge/carbridge-api/config"
	"github.com/carbridge/carbridge-api/models"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := config.ConnectDatabase(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer config.CloseDatabase()

	if err := db.AutoMigrate(&models.User{}); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	email := strings.ToLower(envOr("ADMIN_EMAIL", "admin@carbridge.com"))
	password := envOr("ADMIN_PASSWORD", "admin123")

	var existing models.User
	if err := db.First(&existing, "email = ?", email).Error; err == nil {
		logger.Info("admin user already exists", zap.String("email", email))
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("failed to hash password", zap.Error(err))
	}

	admin := models.User{
		Email:     email,
		Password:  string(hashed),
		FirstName: "Admin",
		LastName:  "User",
		Phone:     "1234567890",
		Country:   "Japan",
		IsAdmin:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		logger.Fatal("failed to create admin user", zap.Error(err))
	}

	logger.Info("admin user created", zap.String("email", email))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
