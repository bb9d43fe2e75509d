package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"groupgate/internal/config"
	"groupgate/internal/logger"
	"groupgate/internal/repository"
	"groupgate/internal/repository/postgres"
	redisstore "groupgate/internal/repository/redis"
	"groupgate/internal/service"

	_ "github.com/lib/pq"
)

// provision mints a batch of single-use verification codes for a group
// and prints them, one per line, for hand-out.
func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	groupID := flag.String("group", "", "Group the codes are scoped to")
	count := flag.Int("count", 10, "Number of codes to mint")
	ttlDays := flag.Int("ttl-days", 30, "Days until the codes expire (0 = never)")
	flag.Parse()

	if *groupID == "" {
		fmt.Fprintln(os.Stderr, "usage: provision -group <group-id> [-count N] [-ttl-days N]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Initialize(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	var codeRepo repository.CodeRepository
	switch cfg.CodeStore.Backend {
	case "postgres":
		db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		codeRepo = postgres.NewStore(db)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		codeRepo = redisstore.NewCodeRepository(client)
	default:
		log.Fatalf("Provisioning requires a local code store backend, got %q", cfg.CodeStore.Backend)
	}

	provisionSvc := service.NewProvisionService(codeRepo)
	batchID, codes, err := provisionSvc.MintBatch(context.Background(), *groupID, *count, *ttlDays)
	if err != nil {
		log.Fatalf("Failed to mint codes: %v", err)
	}

	fmt.Printf("batch %s: %d codes for group %s\n", batchID, len(codes), *groupID)
	for i := range codes {
		fmt.Println(codes[i].Code)
	}
}
