package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Tables holding per-franchise billing data, children first.
var franchiseTables = []string{
	"bill_items",
	"stock_transactions",
	"bills",
	"stocks",
	"products",
	"customers",
}

func main() {
	franchiseID := flag.Int64("franchise", 0, "only clear data of this franchise id")
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("   Reset Billing Data for Testing")
	fmt.Println("========================================")
	fmt.Println()
	if *franchiseID > 0 {
		fmt.Printf("This will DELETE all bills, stock, products and customers of franchise %d.\n", *franchiseID)
	} else {
		fmt.Println("This will DELETE all bills, stock, products and customers of EVERY franchise.")
	}
	fmt.Println("Users and franchise registrations are kept.")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	godotenv.Load()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "billing_db"),
		getEnv("DB_SSLMODE", "disable"))

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range franchiseTables {
		if *franchiseID > 0 {
			query := fmt.Sprintf("DELETE FROM %s WHERE franchise_id = $1", table)
			if table == "bill_items" {
				query = "DELETE FROM bill_items WHERE bill_id IN (SELECT id FROM bills WHERE franchise_id = $1)"
			}
			tag, err := tx.Exec(ctx, query, *franchiseID)
			if err != nil {
				log.Fatalf("Failed to clear %s: %v\n", table, err)
			}
			fmt.Printf("  ✓ Cleared %s (%d rows)\n", table, tag.RowsAffected())
			continue
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)); err != nil {
			log.Fatalf("Failed to truncate %s: %v\n", table, err)
		}
		fmt.Printf("  ✓ Cleared %s\n", table)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	fmt.Println()
	fmt.Println("✅ Billing data reset successful!")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
