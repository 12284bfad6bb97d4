// Seeds the price-chunk cache for a symbol so a valuation run can work offline
// or skip the remote fetch for instruments whose history is already known.
// Points are read from a JSON file of [{"time": ..., "close": ...}] and split
// into the same anchored one-year chunks the resolver walks.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"folio/internal/database"
	"folio/internal/models"
	"folio/internal/service"
)

func main() {
	symbol := flag.String("symbol", "", "symbol to seed (required)")
	from := flag.String("from", "", "first needed date, YYYY-MM-DD (required; must match the instrument's first transaction date)")
	file := flag.String("points", "", "JSON file with price points (required)")
	flag.Parse()
	if *symbol == "" || *from == "" || *file == "" {
		flag.Usage()
		os.Exit(2)
	}

	godotenv.Load()
	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		log.Fatal("POSTGRES_URL is required")
	}
	db, err := sqlx.Connect("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer db.Close()

	first, err := time.Parse("2006-01-02", *from)
	if err != nil {
		log.Fatalf("bad -from date: %v", err)
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read points file: %v", err)
	}
	var points []models.PricePoint
	if err := json.Unmarshal(raw, &points); err != nil {
		log.Fatalf("decode points file: %v", err)
	}

	ctx := context.Background()
	cache := database.New(db, logrus.New())
	if err := cache.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema bootstrap failed: %v", err)
	}

	for _, cr := range service.ChunkRanges(first, time.Now()) {
		chunk := []models.PricePoint{}
		for _, p := range points {
			if !p.Time.Before(cr.From) && p.Time.Before(cr.To.AddDate(0, 0, 1)) {
				chunk = append(chunk, p)
			}
		}
		if err := cache.Put(ctx, *symbol, cr.From, cr.To, chunk); err != nil {
			log.Fatalf("store chunk %s..%s: %v", cr.From.Format("2006-01-02"), cr.To.Format("2006-01-02"), err)
		}
		fmt.Printf("seeded %s %s..%s (%d points)\n", *symbol,
			cr.From.Format("2006-01-02"), cr.To.Format("2006-01-02"), len(chunk))
	}
	fmt.Println("Successfully seeded the price cache!")
}
