package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/recovery-atlas/directory-cli/internal/export"
	"github.com/recovery-atlas/directory-cli/internal/model"
)

var (
	serveDirectory string
	serveReportArg string
	servePort      int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a built directory read-only over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := export.ReadRecords(serveDirectory)
		if err != nil {
			return err
		}
		byID := make(map[string]model.CanonicalRecord, len(records))
		for _, rec := range records {
			byID[rec.CanonicalID] = rec
		}

		var report model.RunReport
		if serveReportArg != "" {
			report, err = export.ReadReport(serveReportArg)
			if err != nil {
				return err
			}
		}

		mux := http.NewServeMux()

		mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		mux.HandleFunc("GET /records", func(w http.ResponseWriter, r *http.Request) {
			if state := r.URL.Query().Get("state"); state != "" {
				var filtered []model.CanonicalRecord
				for _, rec := range records {
					if rec.Address.State == state {
						filtered = append(filtered, rec)
					}
				}
				writeJSON(w, http.StatusOK, filtered)
				return
			}
			writeJSON(w, http.StatusOK, records)
		})

		mux.HandleFunc("GET /records/{id}", func(w http.ResponseWriter, r *http.Request) {
			rec, ok := byID[r.PathValue("id")]
			if !ok {
				http.Error(w, `{"error":"record not found"}`, http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		mux.HandleFunc("GET /report", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, report)
		})

		mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, export.Summarize(records))
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("serving directory",
			zap.Int("port", port),
			zap.Int("records", len(records)),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().StringVar(&serveDirectory, "directory", "directory.json", "canonical directory path")
	serveCmd.Flags().StringVar(&serveReportArg, "report", "", "review report path (optional)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
