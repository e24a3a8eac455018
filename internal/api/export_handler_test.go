package api

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/heimdex/heimdex-trim/internal/export"
	"github.com/heimdex/heimdex-trim/internal/library"
)

func intPtr(v int) *int { return &v }

func seedLibrary(t *testing.T, env *testEnv) {
	t.Helper()
	ctx := context.Background()
	videos := []library.NewVideo{
		{URI: "/cache/legacy.mp4", Title: "Legacy", Description: "no range"},
		{URI: "/cache/trimmed_a.mp4", Title: "Beach", Description: "d", Source: "file:///media/beach.mp4", StartSeconds: intPtr(2), EndSeconds: intPtr(4)},
		{URI: "/cache/trimmed_b.mp4", Title: "Alps", Description: "d", Source: "/media/alps.mov", StartSeconds: intPtr(0), EndSeconds: intPtr(3)},
	}
	for _, v := range videos {
		if _, err := env.library.Save(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
}

func TestExportEDL_AllRangedVideos(t *testing.T) {
	env := setupTestEnv(t)
	seedLibrary(t, env)
	out := t.TempDir()

	rr := env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{ProjectName: "Holiday", OutputDir: out})
	expectStatus(t, rr, http.StatusOK)

	resp := decode[export.ExportResponse](t, rr)
	if resp.ClipCount != 2 || len(resp.Skipped) != 1 || resp.Skipped[0] != 1 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.OutputPath != filepath.Join(out, "Holiday.edl") {
		t.Errorf("OutputPath = %q", resp.OutputPath)
	}

	data, err := os.ReadFile(resp.OutputPath)
	if err != nil {
		t.Fatal(err)
	}
	edl := string(data)
	for _, want := range []string{"TITLE: Holiday", "* MEDIA PATH:  /media/beach.mp4", "* FROM CLIP NAME:  Alps"} {
		if !strings.Contains(edl, want) {
			t.Errorf("EDL missing %q:\n%s", want, edl)
		}
	}
}

func TestExportEDL_SelectedIDs(t *testing.T) {
	env := setupTestEnv(t)
	seedLibrary(t, env)

	rr := env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{OutputDir: t.TempDir(), VideoIDs: []int{3, 9}})
	expectStatus(t, rr, http.StatusOK)

	resp := decode[export.ExportResponse](t, rr)
	if resp.ClipCount != 1 || len(resp.Skipped) != 1 || resp.Skipped[0] != 9 {
		t.Errorf("response = %+v", resp)
	}
	if filepath.Base(resp.OutputPath) != export.DefaultProjectName+".edl" {
		t.Errorf("OutputPath = %q", resp.OutputPath)
	}
}

func TestExportEDL_Errors(t *testing.T) {
	env := setupTestEnv(t)

	expectError(t, env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{Format: "xml", OutputDir: t.TempDir()}), http.StatusBadRequest, CodeBadRequest)
	expectError(t, env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{OutputDir: "/tmp/../etc"}), http.StatusBadRequest, CodeBadRequest)
	expectError(t, env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{OutputDir: t.TempDir()}), http.StatusUnprocessableEntity, CodeUnresolvable)

	seedLibrary(t, env)
	expectError(t, env.do(t, http.MethodPost, "/videos/export", export.ExportRequest{OutputDir: t.TempDir(), VideoIDs: []int{1}}), http.StatusUnprocessableEntity, CodeUnresolvable)
}
