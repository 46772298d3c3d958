// Package main is a diagnostic tool for testing database connectivity and
// inspecting live link manager data. It connects to the database, dumps the
// links and placements tables with their bindings, and prints an activity
// log summary to stdout. The binary exits with a non-zero code on any
// failure so it can gate deployments on a reachable, migrated database.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "github.com/lib/pq"

	"github.com/evolane/linkmanager/internal/config"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer db.Close()

	// Check links
	fmt.Println("=== LINKS ===")
	rows, err := db.Query("SELECT id, name, url, link_type, active FROM links ORDER BY position")
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var name, url, linkType string
		var active bool
		if err := rows.Scan(&id, &name, &url, &linkType, &active); err != nil {
			log.Printf("Warning: failed to scan link row: %v", err)
			continue
		}
		state := "inactive"
		if active {
			state = "active"
		}
		fmt.Printf("Link: %s [%s] -> %q (ID: %d, %s)\n", name, linkType, url, id, state)
	}

	// Check placements and their bindings
	fmt.Println("\n=== PLACEMENTS ===")
	rows2, err := db.Query(`
		SELECT p.identifier, p.active, l.name
		FROM placements p
		LEFT JOIN placement_links pl ON pl.placement_id = p.id
		LEFT JOIN links l ON l.id = pl.link_id
		ORDER BY p.identifier`)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows2.Close()

	count := 0
	for rows2.Next() {
		var identifier string
		var active bool
		var linkName *string
		if err := rows2.Scan(&identifier, &active, &linkName); err != nil {
			log.Printf("Warning: failed to scan placement row: %v", err)
			continue
		}
		count++
		bound := "(unbound)"
		if linkName != nil {
			bound = "-> " + *linkName
		}
		fmt.Printf("Placement: %s %s (active=%t)\n", identifier, bound, active)
	}
	fmt.Printf("Total placements: %d\n", count)

	// Activity log summary
	var logCount int64
	if err := db.QueryRow("SELECT COUNT(*) FROM activity_logs").Scan(&logCount); err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Printf("\nActivity log entries: %d\n", logCount)
}
