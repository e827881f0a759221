package main

import (
	"log"
	"os"
	"time"

	"postlens-be/internal/model"
	"postlens-be/pkg/database"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		color.Red("Error: DB_CONNECTION_STRING is not set")
		os.Exit(1)
	}

	db, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		color.Red("Error: Failed to connect to database: %v", err)
		os.Exit(1)
	}

	color.Cyan("Starting GORM migration...")

	color.Yellow("Step 1: Extensions")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			log.Printf("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	color.Yellow("Step 2: AutoMigrate")
	models := []interface{}{
		&model.User{},
		&model.EmailVerificationToken{},
		&model.Analysis{},
		&model.StatusEvent{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Plan{},
		&model.Subscription{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		color.Red("Error: AutoMigrate failed: %v", err)
		os.Exit(1)
	}

	color.Yellow("Step 3: Seed plans")
	seedPlans(db)

	color.Green("Migration complete")
}

// seedPlans inserts the default plans if the table is empty.
func seedPlans(db *gorm.DB) {
	var count int64
	if err := db.Model(&model.Plan{}).Count(&count).Error; err != nil {
		color.Red("Error: Failed to count plans: %v", err)
		return
	}
	if count > 0 {
		color.Green("Plans already seeded (%d found)", count)
		return
	}

	plans := []model.Plan{
		{
			ID:            uuid.New(),
			Name:          "Starter",
			Slug:          "starter",
			Description:   "Up to 20 analyses per month with chat.",
			Price:         49000,
			TaxRate:       0.11,
			BillingPeriod: model.BillingPeriodMonthly,
			AnalysisLimit: 20,
			ChatEnabled:   true,
			CreatedAt:     time.Now(),
		},
		{
			ID:            uuid.New(),
			Name:          "Pro",
			Slug:          "pro",
			Description:   "Up to 200 analyses per month with chat.",
			Price:         149000,
			TaxRate:       0.11,
			BillingPeriod: model.BillingPeriodMonthly,
			AnalysisLimit: 200,
			ChatEnabled:   true,
			CreatedAt:     time.Now(),
		},
	}
	for _, p := range plans {
		if err := db.Create(&p).Error; err != nil {
			color.Red("Error: Failed to seed plan %s: %v", p.Slug, err)
			return
		}
	}
	color.Green("Seeded %d plans", len(plans))
}
