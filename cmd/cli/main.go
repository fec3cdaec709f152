package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/tinylink-io/tinylink/pkg/adapters/repository/postgres"
	"github.com/tinylink-io/tinylink/pkg/adapters/repository/sqlite"
	"github.com/tinylink-io/tinylink/pkg/config"
	"github.com/tinylink-io/tinylink/pkg/core/domain"
	"github.com/tinylink-io/tinylink/pkg/ports"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importFile := importCmd.String("file", "", "JSON file to import")

	if len(os.Args) < 2 {
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}

	cfg := config.Load()
	repo, err := newRepository(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to db: %v", err)
	}

	switch os.Args[1] {
	case "export":
		exportCmd.Parse(os.Args[2:])
		doExport(repo)
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importFile == "" {
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		doImport(repo, *importFile)
	default:
		fmt.Println("expected 'export' or 'import' subcommands")
		os.Exit(1)
	}
}

func newRepository(cfg *config.Config) (ports.LinkRepository, error) {
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") || strings.HasPrefix(cfg.DatabaseURL, "postgresql://") {
		return postgres.NewPostgresRepository(cfg.DatabaseURL)
	}
	return sqlite.NewSQLiteRepository(cfg.DatabaseURL)
}

func doExport(repo ports.LinkRepository) {
	links, err := repo.Dump(context.Background())
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(links); err != nil {
		log.Fatalf("Encoding failed: %v", err)
	}
}

func doImport(repo ports.LinkRepository, file string) {
	data, err := os.ReadFile(file)
	if err != nil {
		log.Fatalf("Reading %s failed: %v", file, err)
	}

	var links []domain.Link
	if err := json.Unmarshal(data, &links); err != nil {
		log.Fatalf("Decoding failed: %v", err)
	}

	ctx := context.Background()
	imported := 0
	for i := range links {
		link := links[i]
		link.ID = 0 // let the store assign ids
		if err := repo.Create(ctx, &link); err != nil {
			if errors.Is(err, domain.ErrCodeTaken) {
				log.Printf("Skipping %s: code already exists", link.ShortCode)
				continue
			}
			log.Fatalf("Importing %s failed: %v", link.ShortCode, err)
		}
		imported++
	}
	log.Printf("Imported %d of %d links", imported, len(links))
}
