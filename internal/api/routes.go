package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/playback"
	"github.com/heimdex/heimdex-trim/internal/store"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))
	r.Handle("/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(LoopbackOnly(cfg.Logger))
		r.Use(AuthMiddleware(cfg.Repository, cfg.Logger))

		r.Get("/status", statusHandler(cfg))
		r.Get("/media", listMediaHandler(cfg))
		r.Get("/trims", listTrimsHandler(cfg))

		r.Route("/session", func(r chi.Router) {
			r.Post("/", startSessionHandler(cfg))
			r.Get("/", getSessionHandler(cfg))
			r.Delete("/", resetSessionHandler(cfg))
			r.Get("/thumbnails/{index}", thumbnailHandler(cfg))
			r.Post("/selection", selectionHandler(cfg))
			r.Post("/trim", trimHandler(cfg))
			r.Post("/save", saveHandler(cfg))
			r.Get("/results/{n}/stream", resultStreamHandler(cfg))
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", listVideosHandler(cfg))
			r.Post("/export", exportEDLHandler(cfg))
			r.Get("/{id}", getVideoHandler(cfg))
			r.Get("/{id}/stream", videoStreamHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: uptime,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		snap := cfg.Workflow.Snapshot()

		resp := StatusResponse{
			State:     snap.State,
			LastError: snap.LastError,
		}
		if snap.Session != nil {
			resp.SessionID = snap.Session.ID
		}
		if n, err := cfg.Library.Count(ctx); err == nil {
			resp.LibraryCount = n
		}
		if trims, err := cfg.Repository.ListTrims(ctx, 10); err == nil {
			for _, t := range trims {
				if t.Status == store.TrimStatusRunning {
					resp.TrimsRunning++
				}
			}
		}

		if cfg.Doctor != nil {
			// Peek never blocks the status poll on a version probe.
			resp.Toolchain = ToolchainToResponse(cfg.Doctor.Peek())
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.Picker.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, MediaResponse{Root: cfg.Picker.Root(), Videos: videos})
	}
}

func listTrimsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		trims, err := cfg.Repository.ListTrims(r.Context(), limit)
		if err != nil {
			WriteError(w, http.StatusInternalServerError, "failed to list trims", CodeInternal)
			return
		}

		resp := TrimsResponse{Trims: make([]TrimRecordResponse, len(trims))}
		for i, t := range trims {
			resp.Trims[i] = TrimToResponse(t)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func startSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
			return
		}

		asset, err := cfg.Picker.Pick(r.Context(), req.Path, req.DurationMs)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if asset.DurationMs <= 0 {
			WriteError(w, http.StatusBadRequest, "video duration is unknown; pass duration_ms", CodeBadRequest)
			return
		}

		session, err := workflow.NewSession(*asset, req.Title, req.Description)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		snap, err := cfg.Workflow.LoadAsync(cfg.BaseContext, session)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, snap)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Workflow.Snapshot())
	}
}

func resetSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, cfg.Workflow.Reset())
	}
}

func thumbnailHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "index must be an integer", CodeBadRequest)
			return
		}

		for _, f := range cfg.Workflow.Snapshot().Thumbnails {
			if f.Index == index {
				serve(cfg, w, r, f.Path)
				return
			}
		}
		WriteError(w, http.StatusNotFound, "thumbnail not found", CodeNotFound)
	}
}

func selectionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
			return
		}

		var (
			snap workflow.Snapshot
			err  error
		)
		switch {
		case req.Clear:
			snap, err = cfg.Workflow.ClearSelection()
		case req.Index != nil:
			snap, err = cfg.Workflow.Tap(*req.Index)
		default:
			WriteError(w, http.StatusBadRequest, "index or clear is required", CodeBadRequest)
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, snap)
	}
}

func trimHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// A client disconnect cancels the request context, which interrupts
		// ffmpeg and leaves the selection in place.
		res, err := cfg.Workflow.Trim(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, TrimResponse{Result: res, Snapshot: cfg.Workflow.Snapshot()})
	}
}

func saveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := cfg.Workflow.Save(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SaveResponse{Videos: out.Videos, NavigateToLibrary: out.NavigateToLibrary})
	}
}

func resultStreamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(chi.URLParam(r, "n"))
		if err != nil {
			WriteError(w, http.StatusBadRequest, "result index must be an integer", CodeBadRequest)
			return
		}

		results := cfg.Workflow.Snapshot().Results
		if n < 0 || n >= len(results) {
			WriteError(w, http.StatusNotFound, "trim result not found", CodeNotFound)
			return
		}
		serve(cfg, w, r, results[n].OutputPath)
	}
}

func listVideosHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := cfg.Library.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, VideosResponse{Videos: videos})
	}
}

func getVideoHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}
		v, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, v)
	}
}

func videoStreamHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := videoID(w, r)
		if !ok {
			return
		}
		v, err := cfg.Library.Get(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		serve(cfg, w, r, ffmpeg.LocalPath(v.URI))
	}
}

func videoID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 1 {
		WriteError(w, http.StatusBadRequest, "video id must be a positive integer", CodeBadRequest)
		return 0, false
	}
	return id, true
}

func serve(cfg ServerConfig, w http.ResponseWriter, r *http.Request, path string) {
	err := cfg.PlaybackServer.ServeFile(w, r, path)
	switch {
	case errors.Is(err, playback.ErrForbidden):
		cfg.Logger.Warn("refused to serve file outside served dirs", "path", logging.SanitizePath(path))
	case err != nil:
		cfg.Logger.Error("playback error", "error", err, "path", logging.SanitizePath(path))
	}
}
