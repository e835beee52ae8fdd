package diagnostics

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/Rocky43007/phoenix/internal/phxlog"
)

// NewMux builds the diagnostics HTTP surface: a session HTML report, an
// on-demand PNG trace, and a mounted tailsql instance for ad-hoc SQL
// browsing of recorded sessions — mirroring this lineage's own
// AttachAdminRoutes debug mux.
func NewMux(db *DB, plotDir string) *http.ServeMux {
	mux := http.NewServeMux()
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{RoutePrefix: "/debug/tailsql/"})
	if err != nil {
		log.Fatalf("phoenix/diagnostics: create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://phoenix-diagnostics.db", db.DB, &tailsql.DBOptions{Label: "Phoenix diagnostics"})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("report", "HTML session report (RSSI + proximity timeline)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "missing session query param", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := RenderSessionReport(db, sessionID, w); err != nil {
			phxlog.Logf("phoenix/diagnostics: render report: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))

	debug.Handle("plot", "Distance/RSSI PNG trace for a session", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		metric := r.URL.Query().Get("metric")
		if metric != "rssi" {
			metric = "distance"
		}
		if sessionID == "" {
			http.Error(w, "missing session query param", http.StatusBadRequest)
			return
		}
		if err := os.MkdirAll(plotDir, 0o755); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := PlotSession(db, sessionID, plotDir); err != nil {
			phxlog.Logf("phoenix/diagnostics: plot session: %v", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		http.ServeFile(w, r, filepath.Join(plotDir, fmt.Sprintf("%s_%s.png", sessionID, metric)))
	}))

	return mux
}
