package health

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// LivenessHandler reports that the process is up. It runs no checks.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, http.StatusOK, &Report{Status: StatusHealthy})
	}
}

// ReadinessHandler runs checks on every request: 200 when all pass, 503
// otherwise. Plain-text bodies list one "name: status" line per check.
func ReadinessHandler(checks Checks, opts ...Option) http.HandlerFunc {
	cfg := newConfig(opts...)

	return func(w http.ResponseWriter, r *http.Request) {
		report := run(r.Context(), checks, cfg)

		status := http.StatusOK
		if report.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		respond(w, r, status, report)
	}
}

func respond(w http.ResponseWriter, r *http.Request, status int, report *Report) {
	w.Header().Set("Cache-Control", "no-store")

	if r.URL.Query().Get("format") == "json" || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_ = json.NewEncoder(w).Encode(report)
		}
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	fmt.Fprintln(w, report.Status)
	for _, name := range report.Names() {
		fmt.Fprintf(w, "%s: %s\n", name, report.Checks[name].Status)
	}
}
