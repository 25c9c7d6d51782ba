package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"kiosk/internal/model"
	"kiosk/internal/repository/sqlite"
	"kiosk/internal/service/catalog"
)

func main() {
	csvPath := flag.String("csv", "", "CSV file with name,price,weight,barcode,image_path (built-in fruit catalog when empty)")
	dbPath := flag.String("db", "data/ai_totem.db", "Database path")
	flag.Parse()

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	products := model.DefaultProducts()
	if *csvPath != "" {
		file, err := os.Open(*csvPath)
		if err != nil {
			log.Fatalf("Failed to open product list: %v", err)
		}
		products, err = catalog.ParseCSV(file)
		file.Close()
		if err != nil {
			log.Fatalf("Failed to parse %s: %v", *csvPath, err)
		}
		fmt.Printf("Seeding %d products from %s into %s\n", len(products), *csvPath, *dbPath)
	} else {
		fmt.Printf("Seeding built-in catalog (%d products) into %s\n", len(products), *dbPath)
	}

	if len(products) == 0 {
		fmt.Println("No products found to seed")
		return
	}

	repo := sqlite.NewProductRepository(db)
	count, err := catalog.Seed(repo, products)
	if err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}
	fmt.Printf("✅ Successfully seeded %d products\n", count)

	stored, err := repo.GetAll()
	if err == nil {
		fmt.Printf("\n📊 Catalog:\n")
		for _, p := range stored {
			fmt.Printf("   - %-12s %8.2f\n", p.Name, p.Price)
		}
	}
}
