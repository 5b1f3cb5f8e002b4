package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/OpenDataAtlas/ODA-Backend/internal/locations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// CLI flags
var (
	csvPath     = flag.String("csv", "", "Path to the source CSV (required)")
	dsn         = flag.String("dsn", os.Getenv("DATABASE_URL"), "Postgres DSN (default: env DATABASE_URL)")
	dryRun      = flag.Bool("dry-run", false, "Parse + validate only; no DB writes")
	confirm     = flag.Bool("confirm", false, "Required to perform destructive replace")
	advisoryKey = flag.Int64("advisory-lock", 0, "Optional Postgres advisory lock key (e.g., 424242). 0 = disabled")
)

// CSV contract
// type,name,state,county
// type is one of national|state|county|locality; state and county are the
// display names of the parent rows, empty where not applicable.

type LocationCSV struct {
	Type   string
	Name   string
	State  string
	County string
}

func main() {
	_ = godotenv.Load(".env.local")
	flag.Parse()
	if *csvPath == "" {
		fatalf("--csv is required")
	}
	if *dsn == "" {
		fatalf("--dsn not provided and DATABASE_URL not set")
	}

	rows, err := loadCSV(*csvPath)
	if err != nil {
		fatalf("CSV error: %v", err)
	}

	locs, err := buildLocations(rows)
	if err != nil {
		fatalf("CSV validation failed: %v", err)
	}

	// Deriving the closure up front also validates the parent graph.
	pairs, err := locations.BuildClosure(locs)
	if err != nil {
		fatalf("closure derivation failed: %v", err)
	}

	fmt.Printf("Loaded %d locations (%d closure pairs) from %s\n", len(locs), len(pairs), *csvPath)

	if *dryRun {
		printPlan(locs)
		fmt.Println("Dry run complete. No changes made.")
		return
	}

	if !*confirm {
		fatalf("Refusing to run without --confirm. Add --dry-run to preview.")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
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

	// Optional advisory lock to avoid concurrent runs
	if *advisoryKey != 0 {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, *advisoryKey); err != nil {
			fatalf("advisory lock: %v", err)
		}
	}

	// Destructive replace: closure first, then locations.
	if _, err := tx.ExecContext(ctx, `DELETE FROM reference.dependent_locations`); err != nil {
		fatalf("wipe closure: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM reference.locations`); err != nil {
		fatalf("wipe locations: %v", err)
	}

	for _, l := range locs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference.locations (id, type, name, state_id, county_id, created_at)
			 VALUES ($1, $2, $3, $4, $5, now())`,
			l.ID, l.Type, l.Name, l.StateID, l.CountyID); err != nil {
			fatalf("insert location %s: %v", l.Name, err)
		}
	}

	for _, p := range pairs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO reference.dependent_locations (ancestor_id, descendant_id)
			 VALUES ($1, $2)`,
			p.AncestorID, p.DescendantID); err != nil {
			fatalf("insert closure pair: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		fatalf("commit: %v", err)
	}

	fmt.Printf("Done. Inserted %d locations and %d closure pairs.\n", len(locs), len(pairs))
}

func loadCSV(path string) ([]LocationCSV, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	r.FieldsPerRecord = 4

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if strings.ToLower(strings.TrimSpace(header[0])) != "type" {
		return nil, fmt.Errorf("unexpected header row: %v", header)
	}

	var rows []LocationCSV
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, LocationCSV{
			Type:   strings.ToLower(strings.TrimSpace(rec[0])),
			Name:   strings.TrimSpace(rec[1]),
			State:  strings.TrimSpace(rec[2]),
			County: strings.TrimSpace(rec[3]),
		})
	}
	return rows, nil
}

// buildLocations assigns IDs, normalizes display names, and resolves parent
// name references into IDs. Parent rows must appear before their children is
// NOT required; resolution happens in two passes.
func buildLocations(rows []LocationCSV) ([]locations.Location, error) {
	titler := cases.Title(language.AmericanEnglish)

	type key struct{ typ, name string }
	ids := make(map[key]uuid.UUID, len(rows))

	locs := make([]locations.Location, 0, len(rows))
	for i, row := range rows {
		if row.Name == "" {
			return nil, fmt.Errorf("row %d: empty name", i+2)
		}
		name := titler.String(strings.ToLower(row.Name))
		k := key{row.Type, name}
		if _, dup := ids[k]; dup {
			return nil, fmt.Errorf("row %d: duplicate %s %q", i+2, row.Type, name)
		}
		id := uuid.New()
		ids[k] = id
		locs = append(locs, locations.Location{
			ID:   id,
			Type: locations.LocationType(row.Type),
			Name: name,
		})
	}

	for i := range locs {
		row := rows[i]
		if row.State != "" {
			stateID, ok := ids[key{"state", titler.String(strings.ToLower(row.State))}]
			if !ok {
				return nil, fmt.Errorf("%s %q references unknown state %q", row.Type, row.Name, row.State)
			}
			locs[i].StateID = &stateID
		}
		if row.County != "" {
			countyID, ok := ids[key{"county", titler.String(strings.ToLower(row.County))}]
			if !ok {
				return nil, fmt.Errorf("%s %q references unknown county %q", row.Type, row.Name, row.County)
			}
			locs[i].CountyID = &countyID
		}
		if err := locs[i].ValidateParents(); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
	}

	return locs, nil
}

func printPlan(locs []locations.Location) {
	counts := map[locations.LocationType]int{}
	for _, l := range locs {
		counts[l.Type]++
	}
	fmt.Printf("Plan: %d national, %d states, %d counties, %d localities\n",
		counts[locations.TypeNational], counts[locations.TypeState],
		counts[locations.TypeCounty], counts[locations.TypeLocality])
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
