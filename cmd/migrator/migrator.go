package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"

	"github.com/NordCoder/tifi/migrations"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	down := flag.Bool("down", false, "roll back the latest migration instead of applying all")
	flag.Parse()

	_ = godotenv.Load()
	dbURL := os.Getenv("DB_DSN")
	if dbURL == "" {
		log.Fatal("DB_DSN is empty")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Postgres())
	if err != nil {
		log.Fatalf("goose provider: %v", err)
	}

	ctx := context.Background()
	if *down {
		res, err := p.Down(ctx)
		if err != nil {
			log.Fatalf("migrate down: %v", err)
		}
		log.Printf("migrations: rolled back version %d", res.Source.Version)
		return
	}

	results, err := p.Up(ctx)
	if err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	log.Printf("migrations: up OK (%d applied)", len(results))
}
