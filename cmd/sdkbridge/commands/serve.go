package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/cfn"
	"github.com/spf13/cobra"

	"github.com/openfroyo/sdkbridge/pkg/engine"
	"github.com/openfroyo/sdkbridge/pkg/handler"
	"github.com/openfroyo/sdkbridge/pkg/stores"
	"github.com/openfroyo/sdkbridge/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve events over HTTP",
		Long: `Serve custom-resource events over HTTP for local testing.

Endpoints:
  POST /invoke       process an event and return its acknowledgment
  GET  /metrics      Prometheus metrics (when enabled)
  GET  /invocations  journaled invocations (when a journal is configured)
  GET  /healthz      liveness check

Policy files under policy.paths are reloaded when they change.`,
		Example: `  sdkbridge serve --addr :8080
  curl -XPOST localhost:8080/invoke -d @create.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), version, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}

func runServe(ctx context.Context, version, addr string) error {
	a, err := newApp(ctx, false, version)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	// The acknowledgment is returned in the HTTP response, never uploaded.
	h, err := a.handler(engine.ResponderFunc(func(context.Context, *cfn.Event, engine.Acknowledgment) error {
		return nil
	}))
	if err != nil {
		return err
	}

	// Reload policy files as they change.
	if err := a.guard.WatchPolicies(ctx, a.cfg.Policy.Paths); err != nil {
		a.tel.Logger.WithError(err).Warn("Failed to watch policy paths, policies will not reload")
	}

	var journal stores.Store
	if a.journal != nil {
		journal = a.journal
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeMux(h, a.tel, journal),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.tel.Logger.WithField("addr", addr).Info("Serving events")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down server: %w", err)
		}
		return nil
	}
}

// newServeMux routes event invocations, metrics and health checks, and the
// journal when one is configured.
func newServeMux(h *handler.Handler, tel *telemetry.Telemetry, journal stores.Store) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /invoke", func(w http.ResponseWriter, r *http.Request) {
		var event cfn.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			http.Error(w, fmt.Sprintf("invalid event: %v", err), http.StatusBadRequest)
			return
		}

		ack := h.Process(r.Context(), event)

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(ack); err != nil {
			tel.Logger.WithError(err).Warn("Failed to write acknowledgment")
		}
	})

	mux.Handle("GET "+tel.Metrics.Path(), tel.Metrics.Handler())

	if journal != nil {
		mux.HandleFunc("GET /invocations", func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			limit, _ := strconv.Atoi(q.Get("limit"))
			entries, err := journal.ListInvocations(r.Context(), stores.InvocationFilter{
				RequestID:         q.Get("request_id"),
				LogicalResourceID: q.Get("logical_resource_id"),
				Status:            engine.Status(q.Get("status")),
				Limit:             limit,
			})
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(entries)
		})
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}
