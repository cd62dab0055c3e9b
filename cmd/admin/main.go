package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/noah-isme/training-enrollment-api/internal/models"
	"github.com/noah-isme/training-enrollment-api/internal/repository"
	"github.com/noah-isme/training-enrollment-api/internal/service"
	"github.com/noah-isme/training-enrollment-api/pkg/config"
	"github.com/noah-isme/training-enrollment-api/pkg/database"
)

// admin bootstraps dashboard accounts, e.g.
//
//	go run ./cmd/admin -email ops@example.com -name "Ops" -role SUPERADMIN
//
// The password is read from ADMIN_PASSWORD.
func main() {
	var (
		email   string
		name    string
		role    string
		migrate bool
	)

	flag.StringVar(&email, "email", "", "Admin e-mail address")
	flag.StringVar(&name, "name", "", "Admin full name")
	flag.StringVar(&role, "role", string(models.RoleAdmin), "ADMIN or SUPERADMIN")
	flag.BoolVar(&migrate, "migrate", false, "Apply migrations before creating the account")
	flag.Parse()

	password := os.Getenv("ADMIN_PASSWORD")
	if err := validateInput(email, name, role, password); err != nil {
		log.Fatalf("invalid input: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer db.Close()

	if migrate {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationsPath)
		if err != nil {
			log.Fatalf("failed to init migrator: %v", err)
		}
		if err := migrator.Up(); err != nil {
			log.Fatalf("failed to apply migrations: %v", err)
		}
	}

	hash, err := service.HashPassword(password)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := repository.NewUserRepository(db)
	normalized := models.NormalizeEmail(email)
	if _, err := repo.FindByEmail(ctx, normalized); err == nil {
		log.Fatalf("an account for %s already exists", normalized)
	}

	user := &models.User{
		Email:        normalized,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(name),
		Role:         models.UserRole(strings.ToUpper(role)),
		Active:       true,
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("failed to create admin: %v", err)
	}
	fmt.Printf("created %s %s (%s)\n", user.Role, user.Email, user.ID)
}

func validateInput(email, name, role, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(name) == "" {
		return errors.New("-email and -name are required")
	}
	switch models.UserRole(strings.ToUpper(role)) {
	case models.RoleAdmin, models.RoleSuperAdmin:
	default:
		return fmt.Errorf("unknown role %q", role)
	}
	if len(password) < 8 {
		return errors.New("ADMIN_PASSWORD must be at least 8 characters")
	}
	return nil
}
