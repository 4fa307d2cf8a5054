package http

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"ecotrack/internal/core"
	"ecotrack/internal/log"
)

var templateFuncs = template.FuncMap{
	"kg":    core.FormatKg,
	"label": func(c core.Category) string { return c.Label() },
}

// formOption is one selectable subtype on the dashboard form.
type formOption struct {
	Category core.Category
	Value    string
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks templates and the storage backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	code := http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	switch {
	case s.deps.Ready == nil:
		checks["storage"] = "not_configured"
	default:
		if err := s.deps.Ready(ctx); err != nil {
			checks["storage"] = "failed: " + err.Error()
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["storage"] = "ok"
		}
	}

	checks["rate_limiter"] = s.rateLimiter.GetMetrics()
	checks["security"] = s.detector.Stats()
	checks["requests"] = s.tracer.Stats()
	if s.deps.Challenges != nil {
		if lb := s.deps.Challenges.LeaderboardCache(); lb != nil {
			checks["leaderboard_cache"] = lb.Stats()
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleIndex renders the dashboard shell; panels load from the API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	factors := core.Factors()
	seen := map[string]bool{}
	var options []formOption
	for _, e := range factors.Entries {
		key := string(e.Category) + "/" + e.Subtype
		if seen[key] {
			continue
		}
		seen[key] = true
		options = append(options, formOption{Category: e.Category, Value: e.Subtype})
	}

	data := struct {
		Categories []core.Category
		Options    []formOption
		Year       int
	}{
		Categories: core.Categories(),
		Options:    options,
		Year:       time.Now().Year(),
	}

	// Render into a buffer so a template error never yields a half page.
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template render failed",
			log.FieldError, err,
			log.FieldOperation, log.OpRender)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
