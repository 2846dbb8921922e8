package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"extension-hub/internal/app"
	"extension-hub/internal/bus"
	"extension-hub/internal/dispatch"
	"extension-hub/internal/history"
	"extension-hub/internal/httputil"
	"extension-hub/internal/llm"
	"extension-hub/internal/pagetext"
)

const (
	apiTimeout      = 3 * time.Minute
	shutdownTimeout = 10 * time.Second
)

type providerRequest struct {
	Provider string `json:"provider" validate:"required,max=64"`
}

type summaryRequest struct {
	Prompt   string `json:"prompt" validate:"required"`
	Result   string `json:"result" validate:"required"`
	URL      string `json:"url" validate:"omitempty,url"`
	SiteName string `json:"siteName" validate:"max=256"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Warn("failed to close dependencies", "err", err)
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveBus(gctx, deps)
	})
	g.Go(func() error {
		deps.Log.Info("hub listening", "addr", srv.Addr, "bus", deps.Config.BusProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("hub stopped with error", "err", err)
		os.Exit(1)
	}
	deps.Log.Info("hub stopped")
}

func newRouter(deps app.Deps) http.Handler {
	r := httputil.NewRouter(deps.Log)

	r.Get("/healthz", httputil.HealthHandler(deps.Log, deps.Checks...))
	if deps.WebSocket != nil {
		r.Get("/ws", deps.WebSocket.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(httputil.Timeout(apiTimeout))
		r.Get("/provider", getProviderHandler(deps))
		r.Put("/provider", putProviderHandler(deps))
		r.Post("/messages", messageHandler(deps))
		r.Get("/summaries", listSummariesHandler(deps))
		r.Post("/summaries", saveSummaryHandler(deps))
		r.Delete("/summaries/{id}", deleteSummaryHandler(deps))
		r.Post("/page-text", pageTextHandler(deps))
	})
	return r
}

// serveBus relays UI envelopes through the dispatcher until ctx ends.
func serveBus(ctx context.Context, deps app.Deps) error {
	if err := deps.Bus.Serve(ctx, busHandler(deps)); err != nil {
		return fmt.Errorf("bus stopped: %w", err)
	}
	return nil
}

// busHandler decodes a UI envelope, dispatches it and encodes the reply.
func busHandler(deps app.Deps) bus.Handler {
	return func(ctx context.Context, data []byte) ([]byte, bool) {
		var env dispatch.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			deps.Log.Warn("dropping undecodable message", "err", err)
			return nil, false
		}
		out, ok := deps.Dispatcher.Handle(ctx, env)
		if !ok {
			return nil, false
		}
		body, err := json.Marshal(out)
		if err != nil {
			deps.Log.Error("failed to encode result", "kind", out.Type, "err", err)
			return nil, false
		}
		return body, true
	}
}

func getProviderHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"provider":  deps.Registry.Selected(r.Context()),
			"available": deps.Registry.Names(),
		})
	}
}

func putProviderHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req providerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		if err := deps.Registry.SetSelected(r.Context(), req.Provider); err != nil {
			var unsupported llm.ErrUnsupportedProvider
			if errors.As(err, &unsupported) {
				httputil.Fail(deps.Log, w, unsupported.Error(), err, http.StatusBadRequest)
				return
			}
			httputil.Fail(deps.Log, w, "failed to store provider", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"provider": deps.Registry.Selected(r.Context()),
		})
	}
}

// messageHandler runs one envelope synchronously for UIs without a bus
// connection. Ignored messages answer 204.
func messageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		out, ok := deps.Dispatcher.Handle(r.Context(), env)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, out)
	}
}

func listSummariesHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				httputil.Fail(deps.Log, w, "invalid limit", err, http.StatusBadRequest)
				return
			}
			limit = n
		}
		items, err := deps.History.List(r.Context(), limit)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to list summaries", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, items)
	}
}

func saveSummaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req summaryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		saved, err := deps.History.Save(r.Context(), history.Summary{
			Prompt:   req.Prompt,
			Result:   req.Result,
			URL:      req.URL,
			SiteName: req.SiteName,
		})
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to save summary", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, saved)
	}
}

func deleteSummaryHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			httputil.Fail(deps.Log, w, "invalid summary id", err, http.StatusBadRequest)
			return
		}
		if err := deps.History.Delete(r.Context(), id); err != nil {
			if errors.Is(err, history.ErrNotFound) {
				httputil.Fail(deps.Log, w, "summary not found", err, http.StatusNotFound)
				return
			}
			httputil.Fail(deps.Log, w, "failed to delete summary", err, http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// pageTextHandler extracts text from an uploaded PDF or text file so the UI
// can send it as a page's textContent.
func pageTextHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusBadRequest)
			return
		}
		contentType, err := pagetext.DetectType(header.Filename, header.Header.Get("Content-Type"))
		if err != nil {
			httputil.Fail(deps.Log, w, err.Error(), nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}
		text, err := pagetext.Extract(header.Filename, contentType, content)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to extract text", err, http.StatusUnprocessableEntity)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"textContent": text,
			"siteName":    header.Filename,
		})
	}
}
