// Command seed fills the forest store with a generated tree for local
// development and load testing.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"docforest/internal/config"
	models "docforest/internal/domain/models/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/repository"
	serviceDocsys "docforest/internal/service/docsystem"
)

func main() {
	roots := flag.Int("roots", 3, "number of root documents")
	depth := flag.Int("depth", 3, "levels below each root")
	fanout := flag.Int("fanout", 4, "children per document")
	userID := flag.String("user", "seed-user", "owner of every seeded document")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// SAFETY: seeding production would mix generated documents into real trees
	if cfg.Environment == "prod" {
		log.Fatalf("BLOCKED: refusing to seed the prod environment")
	}
	if *roots < 1 || *depth < 0 || *fanout < 0 {
		log.Fatalf("roots must be positive, depth and fanout non-negative")
	}

	logger, logCloser, err := config.NewLogger(cfg, "seed")
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, seeding the in-memory store (data is discarded on exit)")
	}
	stores, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open forest store: %v", err)
	}
	defer stores.Close()

	codec, _ := cfg.Codec()
	docs := serviceDocsys.NewDocumentService(stores.Documents, stores.Access, stores.TxManager, codec, logger)

	s := &seeder{docs: docs, userID: *userID, depth: *depth, fanout: *fanout}
	start := time.Now()
	for i := 1; i <= *roots; i++ {
		root, err := s.create(ctx, "", fmt.Sprintf("Root %d", i))
		if err != nil {
			log.Fatalf("Failed to seed root %d: %v", i, err)
		}
		if err := s.grow(ctx, root, 1); err != nil {
			log.Fatalf("Failed to seed under %s: %v", root.ID, err)
		}
	}

	logger.Info("seed complete",
		"documents", s.created,
		"roots", *roots,
		"depth", *depth,
		"fanout", *fanout,
		"duration", time.Since(start).String(),
	)
}

type seeder struct {
	docs    docsysSvc.DocumentService
	userID  string
	depth   int
	fanout  int
	created int
}

// grow adds fanout children under parent and recurses until depth levels exist.
func (s *seeder) grow(ctx context.Context, parent *models.Document, level int) error {
	if level > s.depth {
		return nil
	}
	for i := 1; i <= s.fanout; i++ {
		child, err := s.create(ctx, parent.ID, fmt.Sprintf("%s.%d", titleOf(parent), i))
		if err != nil {
			return err
		}
		if err := s.grow(ctx, child, level+1); err != nil {
			return err
		}
	}
	return nil
}

func (s *seeder) create(ctx context.Context, reference, title string) (*models.Document, error) {
	doc, err := s.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{
		UserID:    s.userID,
		Reference: reference,
		Position:  models.PositionLastChild,
		Title:     &title,
	})
	if err != nil {
		return nil, err
	}
	s.created++
	return doc, nil
}

func titleOf(doc *models.Document) string {
	if doc.Title == nil {
		return ""
	}
	return *doc.Title
}
