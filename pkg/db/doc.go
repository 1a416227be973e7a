// Package db opens and manages the embedded SQLite database.
//
// The service keeps its control-plane state (API keys, daily usage
// counters, metadata tags) in a single SQLite file opened once at startup
// and passed down as a *sql.DB handle. WAL mode is enabled so concurrent
// request handlers can read while a writer commits.
//
// # Usage
//
//	conn, err := db.Open(ctx, db.Config{Path: "data/mediastore.db"})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer conn.Close()
//
// Healthcheck returns a closure compatible with the health package:
//
//	r.Get("/health/ready", health.ReadinessHandler(health.Checks{
//	    "sqlite": db.Healthcheck(conn),
//	}))
package db
