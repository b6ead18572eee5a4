package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"hal9001.dev/internal/access"
	"hal9001.dev/internal/auth"
	"hal9001.dev/internal/store"
)

func main() {
	log.SetFlags(0)
	var (
		dsn        = flag.String("dsn", os.Getenv("HAL9001_PG_DSN"), "PostgreSQL DSN (empty selects the embedded backend)")
		sqlitePath = flag.String("sqlite", os.Getenv("HAL9001_SQLITE_PATH"), "SQLite path for the embedded backend")
		password   = flag.String("password", os.Getenv("HAL9001_BOOTSTRAP_PASSWORD"), "Bootstrap password for seeded users")
	)
	flag.Parse()

	if len(flag.Args()) == 0 {
		log.Fatal("usage: migrate [init|seed|status]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	mgr := store.NewManager(store.Config{
		PrimaryDSN: *dsn,
		SQLitePath: *sqlitePath,
	})
	defer mgr.Close()

	db, err := mgr.DB(ctx)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	backend, _ := mgr.Backend()

	switch flag.Arg(0) {
	case "init":
		err = access.EnsureSchema(ctx, db)
	case "seed":
		if *password == "" {
			log.Fatal("missing bootstrap password: provide via -password or HAL9001_BOOTSTRAP_PASSWORD")
		}
		var hash string
		hash, err = auth.HashPassword(*password)
		if err != nil {
			break
		}
		if err = access.EnsureSchema(ctx, db); err != nil {
			break
		}
		var seeded bool
		seeded, err = access.SeedIfEmpty(ctx, db, hash)
		if err == nil && !seeded {
			fmt.Println("roster already present, nothing seeded")
		}
	case "status":
		var users int
		if err = db.QueryRowContext(ctx, `select count(*) from users`).Scan(&users); err != nil {
			break
		}
		var grants int
		if err = db.QueryRowContext(ctx, `select count(*) from permission_grants`).Scan(&grants); err != nil {
			break
		}
		fmt.Printf("backend=%s users=%d grants=%d\n", backend, users, grants)
	default:
		log.Fatalf("unknown command %q", flag.Arg(0))
	}
	if err != nil {
		log.Fatalf("migrate %s: %v", flag.Arg(0), err)
	}
}
