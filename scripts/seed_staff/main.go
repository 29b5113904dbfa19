// Command seed_staff inserts the faculty and security accounts a fresh
// deployment needs before students can register. Student accounts are
// created through the API; staff accounts only through this tool.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campus-ops/gatepass-api/internal/models"
	"github.com/campus-ops/gatepass-api/internal/repository"
	"github.com/campus-ops/gatepass-api/pkg/config"
	"github.com/campus-ops/gatepass-api/pkg/database"
)

type staffEntry struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	FullName          string `json:"fullName"`
	Role              string `json:"role"`
	Phone             string `json:"phone"`
	HandlesDepartment string `json:"handlesDepartment"`
	HandlesYear       string `json:"handlesYear"`
	HandlesSection    string `json:"handlesSection"`
}

func main() {
	var (
		staffPath string
		timeout   time.Duration
	)
	flag.StringVar(&staffPath, "staff", "scripts/seed_staff/staff.json", "Path to JSON staff file")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	entries, err := loadStaff(staffPath)
	if err != nil {
		log.Fatalf("failed to load staff file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	users := repository.NewUserRepository(db)
	var created, skipped int
	for _, entry := range entries {
		user, err := buildUser(entry)
		if err != nil {
			log.Fatalf("invalid staff entry %s: %v", entry.Email, err)
		}
		if _, err := users.FindByEmail(ctx, user.Email); err == nil {
			skipped++
			continue
		}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("failed to create %s: %v", user.Email, err)
		}
		created++
	}

	fmt.Printf("seeded %d staff accounts (%d already present)\n", created, skipped)
}

func loadStaff(path string) ([]staffEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var entries []staffEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func buildUser(entry staffEntry) (*models.User, error) {
	role := models.UserRole(entry.Role)
	switch role {
	case models.RoleAdvisor, models.RoleHod, models.RoleSecurity:
	default:
		return nil, fmt.Errorf("role must be ADVISOR, HOD, or SECURITY, got %q", entry.Role)
	}
	if entry.Email == "" || entry.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	if role == models.RoleAdvisor && (entry.HandlesDepartment == "" || entry.HandlesYear == "" || entry.HandlesSection == "") {
		return nil, fmt.Errorf("advisors must declare department, year, and section")
	}
	if role == models.RoleHod && entry.HandlesDepartment == "" {
		return nil, fmt.Errorf("HODs must declare a department")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(entry.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return &models.User{
		Email:             entry.Email,
		PasswordHash:      string(hash),
		FullName:          entry.FullName,
		Role:              role,
		Phone:             entry.Phone,
		Active:            true,
		HandlesDepartment: entry.HandlesDepartment,
		HandlesYear:       entry.HandlesYear,
		HandlesSection:    entry.HandlesSection,
	}, nil
}
