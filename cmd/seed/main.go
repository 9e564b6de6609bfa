package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/taxfiling-backend/config"
	"github.com/ikkim/taxfiling-backend/internal/app/repository"
	"github.com/ikkim/taxfiling-backend/internal/app/service"
	"github.com/ikkim/taxfiling-backend/internal/db"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	wb, err := readWorkbook(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Workspaces: %d, profiles: %d, invoices: %d, payments: %d, expenses: %d\n",
		len(wb.Workspaces), len(wb.Profiles), len(wb.Invoices), len(wb.Payments), len(wb.Expenses))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	conn := db.GetDB()
	txManager := repository.NewTransactionManager(conn)
	im := &importer{
		workspaces: repository.NewWorkspaceRepository(conn),
		documents:  repository.NewDocumentRepository(conn),
		profiles:   service.NewTaxProfileService(repository.NewTaxProfileRepository(conn), txManager, nil, nil),
	}

	stats, err := im.run(context.Background(), wb)
	if err != nil {
		log.Fatal("Import failed:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Imported %d workspaces, %d profiles, %d invoices, %d payments, %d expenses\n",
		stats.Workspaces, stats.Profiles, stats.Invoices, stats.Payments, stats.Expenses)
}
