package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"ai-caption-backend/internal/config"
	"ai-caption-backend/internal/domain/model"
	pg "ai-caption-backend/internal/infra/db/postgres"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	pkgRepo := pg.NewCreditPackageRepo(pool)

	// If packages already exist, do nothing
	existing, err := pkgRepo.ListActive(ctx, nil)
	if err != nil {
		log.Fatalf("list packages: %v", err)
	}
	if len(existing) > 0 {
		fmt.Printf("%d packages already present. No changes.\n", len(existing))
		for _, p := range existing {
			fmt.Printf("  - %s (credits=%d, price=%d %s)\n", p.Name, p.Credits, p.PriceMinorUnits, p.Currency)
		}
		return
	}

	seed := []struct {
		Name    string
		Credits int64
		Price   int64
	}{
		{"Starter", 50, 4_900},
		{"Creator", 250, 19_900},
		{"Studio", 1000, 59_900},
	}

	for _, s := range seed {
		p := &model.CreditPackage{
			ID:              uuid.NewString(),
			Name:            s.Name,
			Credits:         s.Credits,
			PriceMinorUnits: s.Price,
			Currency:        "INR",
			Active:          true,
			CreatedAt:       time.Now(),
		}
		if err := pkgRepo.Save(ctx, nil, p); err != nil {
			log.Fatalf("create package %q: %v", s.Name, err)
		}
		fmt.Printf("seeded: %s (id=%s, credits=%d, price=%d INR)\n", p.Name, p.ID, p.Credits, p.PriceMinorUnits)
	}

	fmt.Println("Seeding complete.")
}
