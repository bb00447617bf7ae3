package main

import (
	"database/sql"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/storelabs/storefront/config"
	"github.com/storelabs/storefront/internal/domain/entity"
	"github.com/storelabs/storefront/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := sql.Open("pgx", cfg.PostgresDSN())
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	email := "admin@storefront.local"
	password := "password123"
	name := "storeAdmin"
	hash, err := helpers.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	var id string
	err = db.QueryRow(`
		INSERT INTO users (name, email, password_hash, role, avatar_url)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lower(email)) DO UPDATE SET role = EXCLUDED.role
		RETURNING id
	`, name, email, hash, string(entity.RoleAdmin), helpers.DefaultAvatarURL(name)).Scan(&id)
	if err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}
	fmt.Printf("seeded admin: id=%s email=%s password=%s\n", id, email, password)

	for _, c := range []struct{ name, description string }{
		{"electronics", "Gadgets and devices"},
		{"apparel", "Clothing and accessories"},
		{"home", "Home and kitchen"},
	} {
		if _, err := db.Exec(`
			INSERT INTO categories (name, description)
			VALUES ($1, $2)
			ON CONFLICT (name) DO NOTHING
		`, c.name, c.description); err != nil {
			log.Fatalf("failed to seed category %s: %v", c.name, err)
		}
	}
	fmt.Println("base categories ensured")
}
