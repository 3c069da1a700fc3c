package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/db"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/logger"
	"github.com/dialadrink/backend/pkg/security"
)

// Creates a staff account from the command line. There is no public signup.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "adduser"})

	_ = godotenv.Load()

	name := flag.String("name", "", "display name")
	phone := flag.String("phone", "", "login phone number")
	password := flag.String("password", "", "initial password")
	role := flag.String("role", "staff", "role: staff|admin")
	flag.Parse()

	if *name == "" || *phone == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: adduser -name NAME -phone PHONE -password PASSWORD [-role ROLE]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	hash, err := security.HashPassword(*password, cfg.Password)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}

	user := models.User{
		ID:           uuid.New(),
		Name:         *name,
		Phone:        *phone,
		PasswordHash: hash,
		Role:         *role,
	}
	if err := dbClient.DB().WithContext(ctx).Create(&user).Error; err != nil {
		logg.Error(ctx, "failed to create user", err)
		os.Exit(1)
	}

	fmt.Println("created user:", user.ID)
}
