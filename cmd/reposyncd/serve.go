// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/reposync/pkg/discovery"
	"github.com/kraklabs/reposync/pkg/registry"
	"github.com/kraklabs/reposync/pkg/scheduler"
)

// adminServer exposes the Registry API and scheduler control surface over
// HTTP, for operators and dashboards that would rather poll than shell out
// to the CLI.
type adminServer struct {
	reg *registry.Registry
}

// runServe starts the scheduler control loop and, unless --no-http is
// set, an admin HTTP API alongside it.
//
// Examples:
//
//	reposyncd serve
//	reposyncd serve --port=9090
func runServe(args []string, configPath string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.String("port", getEnv("REPOSYNC_SERVE_PORT", "8090"), "Admin HTTP API port")
	noHTTP := fs.Bool("no-http", false, "Run the scheduler without the admin HTTP API")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: reposyncd serve [options]

Description:
  Run the sync scheduler and, unless --no-http is set, an admin HTTP
  API exposing the registry and a Prometheus /metrics endpoint.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 1
	}

	a := openApp(configPath, globals)
	reg := prometheus.NewRegistry()
	metrics := scheduler.NewMetrics(reg)

	sched := scheduler.New(a.store, a.engine, discovery.NewDirSource(a.checkout), a.engine.Clock, scheduler.Config{
		SyncEnabled:         a.cfg.Sync.Enabled,
		CheckInterval:       a.cfg.CheckInterval(),
		MaxRetries:          a.cfg.Sync.MaxRetries,
		RetryBaseDelay:      a.cfg.RetryBaseDelay(),
		AutoRegister:        a.cfg.Sync.AutoRegister,
		DefaultSyncInterval: a.cfg.DefaultSyncInterval(),
	}, metrics)
	a.reg.Dispatcher = sched

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		slog.Error("scheduler failed to start", "error", err)
		return 1
	}
	slog.Info("scheduler started", "sync_enabled", a.cfg.Sync.Enabled, "check_interval", a.cfg.CheckInterval())

	var httpServer *http.Server
	if !*noHTTP {
		srv := &adminServer{reg: a.reg}
		mux := http.NewServeMux()
		mux.HandleFunc("/health", srv.handleHealth)
		mux.HandleFunc("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).ServeHTTP)
		mux.HandleFunc("/v1/stats", srv.handleStats)
		mux.HandleFunc("/v1/projects", srv.handleProjects)
		mux.HandleFunc("/v1/projects/", srv.handleProjectRoutes)

		httpServer = &http.Server{
			Addr:              ":" + *port,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Printf("reposyncd admin API listening on http://0.0.0.0:%s", *port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("admin API server error", "error", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("shutting down reposyncd...")

	cancel()
	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}
	sched.Wait()
	return 0
}

func (s *adminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *adminServer) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.reg.ComputeStats())
}

func (s *adminServer) handleProjects(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.reg.List())
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProjectRoutes dispatches /v1/projects/{type}/{owner}/{repo}[/trigger|/history].
func (s *adminServer) handleProjectRoutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/projects/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 3 {
		http.Error(w, "expected /v1/projects/{type}/{owner}/{repo}[/trigger|/history]", http.StatusBadRequest)
		return
	}
	key, err := parseKeyArg(strings.Join(parts[:3], "/"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case len(parts) == 3 && r.Method == http.MethodGet:
		rec := s.reg.Get(key)
		if rec == nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	case len(parts) == 4 && parts[3] == "trigger" && r.Method == http.MethodPost:
		flat, err := s.reg.Trigger(r.Context(), key)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, flat)
	case len(parts) == 4 && parts[3] == "history" && r.Method == http.MethodGet:
		entries, err := s.reg.History(key, 0)
		if err != nil {
			writeRegistryError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func writeRegistryError(w http.ResponseWriter, err error) {
	if err == registry.ErrNotFound {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
