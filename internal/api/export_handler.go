package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/heimdex/heimdex-trim/internal/export"
	"github.com/heimdex/heimdex-trim/internal/library"
)

func exportEDLHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req export.ExportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid request body", CodeBadRequest)
			return
		}

		if f := strings.ToLower(req.Format); f != "" && f != "edl" {
			WriteError(w, http.StatusBadRequest, "format must be edl", CodeBadRequest)
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), CodeBadRequest)
			return
		}

		videos, err := cfg.Library.List(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		selected, missing := selectVideos(videos, req.VideoIDs)
		clips, skipped := export.ClipsFromVideos(selected)
		skipped = append(skipped, missing...)
		if len(clips) == 0 {
			WriteError(w, http.StatusUnprocessableEntity, "no saved videos with a source range to export", CodeUnresolvable)
			return
		}

		frameRate := req.FrameRate
		if frameRate <= 0 {
			frameRate = export.DefaultFrameRate
		}
		project := export.ProjectName(req.ProjectName)

		path, err := export.WriteEDL(req.OutputDir, project, export.GenerateEDL(clips, project, frameRate))
		if err != nil {
			cfg.Logger.Error("edl export failed", "error", err)
			WriteError(w, http.StatusInternalServerError, "failed to write export file", CodeInternal)
			return
		}

		cfg.Logger.Info("edl exported", "clips", len(clips), "skipped", len(skipped))
		WriteJSON(w, http.StatusOK, export.ExportResponse{
			Status:     "ok",
			Format:     "edl",
			OutputPath: path,
			ClipCount:  len(clips),
			Skipped:    skipped,
		})
	}
}

// selectVideos keeps the videos named by ids, in request order. Unknown ids are
// returned in missing. No ids selects everything.
func selectVideos(videos []library.SavedVideo, ids []int) (selected []library.SavedVideo, missing []int) {
	if len(ids) == 0 {
		return videos, nil
	}
	byID := make(map[int]library.SavedVideo, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			selected = append(selected, v)
		} else {
			missing = append(missing, id)
		}
	}
	return selected, missing
}
