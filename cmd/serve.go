package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/connections-cli/internal/ledger"
	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/internal/reconcile"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a read-only status API for the map client",
	Long: `Exposes the ledger and reconciled results over HTTP so a local
visualization client can render job progress and the enriched contacts.
The API is read-only: submission and deletion stay on the CLI.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort == 0 {
			servePort = cfg.Server.Port
		}

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet},
		}))

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeOK(w, map[string]string{"status": "ok"})
		})
		r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
			jobs, err := e.Store.ListJobs(req.Context())
			if err != nil {
				writeErr(w, http.StatusInternalServerError, err)
				return
			}
			if jobs == nil {
				jobs = []model.Job{}
			}
			writeOK(w, jobs)
		})
		r.Get("/jobs/{id}", func(w http.ResponseWriter, req *http.Request) {
			job, err := e.Store.GetJob(req.Context(), chi.URLParam(req, "id"))
			if err != nil {
				writeJobErr(w, err)
				return
			}
			writeOK(w, job)
		})
		r.Get("/jobs/{id}/results", func(w http.ResponseWriter, req *http.Request) {
			serveResults(e, w, req)
		})

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", servePort),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("status server listening", zap.Int("port", servePort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

// serveResults fetches, merges and returns one completed job's enriched rows.
func serveResults(e *env, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	jobID := chi.URLParam(req, "id")

	job, err := e.Store.GetJob(ctx, jobID)
	if err != nil {
		writeJobErr(w, err)
		return
	}
	if job.Status != model.JobStatusCompleted || job.OutputFileID == "" {
		writeErr(w, http.StatusConflict, eris.Errorf("job %s is %s, results not available", jobID, job.Status))
		return
	}

	list, err := e.Store.GetContacts(ctx, jobID)
	if err != nil {
		writeJobErr(w, err)
		return
	}

	raw, err := e.Client.GetFileContent(ctx, job.OutputFileID)
	if err != nil {
		writeErr(w, http.StatusBadGateway, err)
		return
	}

	merged, err := reconcile.Merge(list, raw, reconcile.Options{})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeOK(w, merged)
}

func writeOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func writeJobErr(w http.ResponseWriter, err error) {
	if eris.Is(err, ledger.ErrJobNotFound) {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	writeErr(w, http.StatusInternalServerError, err)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (default: server.port from config)")
	rootCmd.AddCommand(serveCmd)
}
