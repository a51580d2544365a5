// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev user (john@example.com) already exists.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"markers-api/internal/config"
	"markers-api/internal/db"
	"markers-api/internal/logging"
	markerdomain "markers-api/internal/marker/domain"
	markerrepo "markers-api/internal/marker/repository"
	"markers-api/internal/security"
	userdomain "markers-api/internal/user/domain"
	userrepo "markers-api/internal/user/repository"
)

const devPassword = "password123"

type seedUser struct {
	name  string
	email string
}

type seedMarker struct {
	owner       int
	title       string
	description string
	lat, lng    float64
	address     string
}

var (
	seedUsers = []seedUser{
		{name: "John Doe", email: "john@example.com"},
		{name: "Jane Smith", email: "jane@example.com"},
	}
	seedMarkers = []seedMarker{
		{owner: 0, title: "Maidan Nezalezhnosti", description: "Independence Square", lat: 50.4501, lng: 30.5234, address: "Maidan Nezalezhnosti, Kyiv"},
		{owner: 0, title: "Kyiv Pechersk Lavra", description: "Historic Orthodox monastery", lat: 50.4347, lng: 30.5573, address: "Lavrska St, 15, Kyiv"},
		{owner: 1, title: "St. Andrew's Church", description: "Baroque church above Podil", lat: 50.4590, lng: 30.5180, address: "Andriivskyi Descent, 23, Kyiv"},
		{owner: 1, title: "Golden Gate", lat: 50.4489, lng: 30.5130, address: "Volodymyrska St, 40A, Kyiv"},
	}
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	logger := logging.SetDefault(cfg.ServiceName+"-seed", "", cfg.LogFormat, cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultOptions())
	if err != nil {
		logging.LogError(ctx, logger, "seed: db", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := seed(ctx, userrepo.NewPostgresRepository(pool), markerrepo.NewPostgresRepository(pool), security.NewHasher(cfg.BcryptCost), logger); err != nil {
		logging.LogError(ctx, logger, "seed: failed", err)
		pool.Close()
		os.Exit(1)
	}
}

func seed(ctx context.Context, users userrepo.Repository, markers markerrepo.Repository, hasher *security.Hasher, logger *slog.Logger) error {
	existing, err := users.GetByEmail(ctx, seedUsers[0].email)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Info("seed: already applied, skipping", "email", seedUsers[0].email)
		return nil
	}

	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	ids := make([]string, len(seedUsers))
	for i, su := range seedUsers {
		u := &userdomain.User{
			ID:           uuid.New().String(),
			Name:         su.name,
			Email:        su.email,
			PasswordHash: passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		ids[i] = u.ID
	}

	for i, sm := range seedMarkers {
		created := now.Add(time.Duration(i) * time.Second)
		m := &markerdomain.Marker{
			ID:        uuid.New().String(),
			Title:     sm.title,
			Latitude:  sm.lat,
			Longitude: sm.lng,
			Address:   optional(sm.address),
			UserID:    ids[sm.owner],
			CreatedAt: created,
			UpdatedAt: created,
		}
		m.Description = optional(sm.description)
		if err := markers.Create(ctx, m); err != nil {
			return err
		}
	}

	logger.Info("seed: completed", "users", len(seedUsers), "markers", len(seedMarkers))
	for _, su := range seedUsers {
		logger.Info("seed: dev login", "email", su.email, "password", devPassword)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
