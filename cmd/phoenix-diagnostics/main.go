// Command phoenix-diagnostics serves the HTML session report, PNG traces,
// and a tailsql browser over a diagnostics sqlite file recorded by
// phoenix-receiver's -diag-db flag.
//
// Usage:
//
//	go run ./cmd/phoenix-diagnostics [flags]
//
// Flags:
//
//	-db        Path to the diagnostics sqlite file (default "phoenix-diagnostics.db")
//	-addr      HTTP listen address (default "localhost:8787")
//	-plot-dir  Directory to write generated PNG traces to (default "./plots")
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Rocky43007/phoenix/internal/diagnostics"
)

func main() {
	dbPath := flag.String("db", "phoenix-diagnostics.db", "path to the diagnostics sqlite file")
	addr := flag.String("addr", "localhost:8787", "HTTP listen address")
	plotDir := flag.String("plot-dir", "./plots", "directory to write generated PNG traces to")
	flag.Parse()

	db, err := diagnostics.Open(*dbPath)
	if err != nil {
		log.Fatalf("phoenix-diagnostics: open %s: %v", *dbPath, err)
	}
	defer db.Close()

	srv := &http.Server{
		Addr:    *addr,
		Handler: diagnostics.NewMux(db, *plotDir),
	}

	go func() {
		log.Printf("phoenix-diagnostics: listening on %s", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("phoenix-diagnostics: serve: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("phoenix-diagnostics: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("phoenix-diagnostics: shutdown: %v", err)
	}
}
