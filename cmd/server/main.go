package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"memething/internal/config"
	"memething/internal/db"
	"memething/internal/images"
	"memething/internal/server"
	"memething/internal/store"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	sessions := openSessionStore(cfg)
	imageStore, err := images.NewFileStore(cfg.ImageDir)
	if err != nil {
		log.Fatalf("image store setup failed: %v", err)
	}

	srv := server.New(sessions, imageStore, cfg)
	addr := ":" + cfg.Port
	log.Printf("memething server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

// openSessionStore prefers Postgres when DATABASE_URL is set and falls
// back to the in-memory store otherwise.
func openSessionStore(cfg config.Config) store.SessionStore {
	if os.Getenv("DATABASE_URL") == "" {
		log.Println("DATABASE_URL not set, using in-memory session store")
		return store.NewMemoryStore()
	}
	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatalf("database handle unavailable: %v", err)
	}
	sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.DBConnMaxLifetimeSeconds) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.DBConnMaxIdleTimeSeconds) * time.Second)
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	return db.NewSessionStore(conn)
}
