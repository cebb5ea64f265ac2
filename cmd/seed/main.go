package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

// CLI flags
var (
	fixturePath = flag.String("fixture", "seeds/reference.yaml", "Path to the reference data YAML")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	schema      = flag.String("schema", envOr("DB_SCHEMA", "bank"), "Schema holding the bank tables")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to write to the database")
	advisoryKey = flag.Int64("advisory-lock", 737373, "Postgres advisory lock key. 0 = disabled")
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

type seedCounts struct {
	Users, Paytypes, Categories, Tags, Sources, Institutions int64
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *dsn == "" && !*dryRun {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	fx, err := loadFixture(*fixturePath)
	if err != nil {
		fatalf("fixture error: %v", err)
	}
	if err := fx.validate(); err != nil {
		fatalf("fixture validation failed: %v", err)
	}

	runID := uuid.New()
	fmt.Printf("[seed] run %s: %d users, %d paytypes, %d categories, %d tags, %d sources, %d institutions from %s\n",
		runID, len(fx.Users), len(fx.Paytypes), len(fx.Categories), len(fx.Tags), len(fx.Sources), len(fx.Institutions), *fixturePath)

	if *dryRun {
		fmt.Println("[seed] dry run complete. No changes made.")
		return
	}
	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := sql.Open("pgx", *dsn)
	if err != nil {
		fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		fatalf("ping: %v", err)
	}

	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		fatalf("begin tx: %v", err)
	}
	defer func() {
		_ = tx.Rollback() // no-op if already committed
	}()

	// Serialize concurrent seed runs
	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	s := seeder{tx: tx, schema: pq.QuoteIdentifier(*schema)}
	inserted, err := s.run(ctx, fx)
	if err != nil {
		fatalf("seed: %v", err)
	}

	missing, err := s.missingPaytypes(ctx, fx.Paytypes)
	if err != nil {
		fatalf("verify: %v", err)
	}
	if missing != 0 {
		fatalf("sanity check failed: %d paytypes missing after seeding", missing)
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}
	fmt.Printf("[seed] run %s inserted users=%d paytypes=%d categories=%d tags=%d sources=%d institutions=%d\n",
		runID, inserted.Users, inserted.Paytypes, inserted.Categories, inserted.Tags, inserted.Sources, inserted.Institutions)
}

type seeder struct {
	tx     *sql.Tx
	schema string
}

// insert runs an ON CONFLICT DO NOTHING insert and reports whether a row was added.
// An empty conflict target skips the row on any unique violation.
func (s seeder) insert(ctx context.Context, table, cols, conflict string, args ...any) (int64, error) {
	placeholders := ""
	for i := range args {
		placeholders += fmt.Sprintf("$%d, ", i+1)
	}
	if conflict != "" {
		conflict = "(" + conflict + ") "
	}
	q := fmt.Sprintf(`INSERT INTO %s.%s (%s, created, modified) VALUES (%snow(), now()) ON CONFLICT %sDO NOTHING`,
		s.schema, table, cols, placeholders, conflict)
	res, err := s.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("insert into %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s seeder) run(ctx context.Context, fx *Fixture) (seedCounts, error) {
	var c seedCounts
	add := func(dst *int64, n int64, err error) error {
		*dst += n
		return err
	}

	for _, u := range fx.Users {
		n, err := s.insert(ctx, "users", "username, is_active", "username", u.Username, true)
		if err := add(&c.Users, n, err); err != nil {
			return c, err
		}
	}
	for _, p := range fx.Paytypes {
		n, err := s.insert(ctx, "paytypes", "paytype", "paytype", p)
		if err := add(&c.Paytypes, n, err); err != nil {
			return c, err
		}
	}
	for _, cat := range fx.Categories {
		n, err := s.insert(ctx, "categories", "catg, description", "catg", cat.Catg, cat.Description)
		if err := add(&c.Categories, n, err); err != nil {
			return c, err
		}
	}
	for _, t := range fx.Tags {
		n, err := s.insert(ctx, "tags", "tag", "tag", t)
		if err := add(&c.Tags, n, err); err != nil {
			return c, err
		}
	}
	for _, src := range fx.Sources {
		n, err := s.insert(ctx, "sources", "name, abbrev, is_active", "", src.Name, src.Abbrev, true)
		if err := add(&c.Sources, n, err); err != nil {
			return c, err
		}
	}
	for _, inst := range fx.Institutions {
		n, err := s.insert(ctx, "institutions", "name, abbrev", "", inst.Name, inst.Abbrev)
		if err := add(&c.Institutions, n, err); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (s seeder) missingPaytypes(ctx context.Context, names []string) (int64, error) {
	var found int64
	q := fmt.Sprintf(`SELECT count(*) FROM %s.paytypes WHERE paytype = ANY($1)`, s.schema)
	if err := s.tx.QueryRowContext(ctx, q, pq.Array(names)).Scan(&found); err != nil {
		return 0, err
	}
	return int64(len(names)) - found, nil
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
