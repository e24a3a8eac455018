package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-trim/internal/export"
	"github.com/heimdex/heimdex-trim/internal/library"
	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/thumbnail"
	"github.com/heimdex/heimdex-trim/internal/trim"
)

var (
	trimStart string
	trimEnd   string

	thumbsDurationMs int64

	libraryJSON      bool
	libraryExportDir string
)

var trimCmd = &cobra.Command{
	Use:   "trim <video>",
	Short: "Cut [start, end) seconds out of a video into the cache directory",
	Long: `Trim a video without re-encoding. Start and end are whole seconds, given either
as a number or as HH:MM:SS.

Example:
  heimdex-trim trim ~/Movies/beach.mp4 --start 00:00:05 --end 12`,
	Args: cobra.ExactArgs(1),
	RunE: runTrim,
}

var thumbsCmd = &cobra.Command{
	Use:   "thumbs <video>",
	Short: "Generate one thumbnail per second and print their paths",
	Args:  cobra.ExactArgs(1),
	RunE:  runThumbs,
}

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "List saved videos",
	Args:  cobra.NoArgs,
	RunE:  runLibrary,
}

func init() {
	trimCmd.Flags().StringVar(&trimStart, "start", "", "start second or HH:MM:SS (required)")
	trimCmd.Flags().StringVar(&trimEnd, "end", "", "end second or HH:MM:SS (required)")
	trimCmd.MarkFlagRequired("start")
	trimCmd.MarkFlagRequired("end")

	thumbsCmd.Flags().Int64Var(&thumbsDurationMs, "duration-ms", 0, "source duration when ffprobe is unavailable")

	libraryCmd.Flags().BoolVar(&libraryJSON, "json", false, "print the library as JSON")
	libraryCmd.Flags().StringVar(&libraryExportDir, "export-edl", "", "write an EDL of every saved range into this directory")
}

func runTrim(cmd *cobra.Command, args []string) error {
	start, err := parseSeconds(trimStart)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := parseSeconds(trimEnd)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}

	a, err := newApp(cfg, logging.NewLoggerTo(os.Stderr, level()))
	if err != nil {
		return err
	}
	defer a.Close()

	asset, err := a.picker.Pick(cmd.Context(), args[0], 0)
	if err != nil {
		return err
	}
	res, err := a.trimmer.Trim(cmd.Context(), asset.URI, start, end)
	if err != nil {
		return err
	}
	if res.Cancelled {
		return errors.New("trim cancelled")
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.OutputPath)
	return nil
}

func runThumbs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logging.NewLoggerTo(os.Stderr, level()))
	if err != nil {
		return err
	}
	defer a.Close()

	asset, err := a.picker.Pick(cmd.Context(), args[0], thumbsDurationMs)
	if err != nil {
		return err
	}
	if asset.DurationMs <= 0 {
		return errors.New("duration unknown: install ffprobe or pass --duration-ms")
	}

	frames := a.thumbs.Generate(cmd.Context(), asset.URI, asset.DurationMs)
	printFrames(cmd.OutOrStdout(), frames)
	if len(frames) < thumbnail.Count(asset.DurationMs) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d thumbnails generated\n", len(frames), thumbnail.Count(asset.DurationMs))
	}
	return nil
}

func runLibrary(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfg, logging.NewLoggerTo(os.Stderr, level()))
	if err != nil {
		return err
	}
	defer a.Close()

	videos, err := a.library.List(cmd.Context())
	if err != nil {
		return err
	}

	if libraryExportDir != "" {
		if err := export.ValidateOutputDir(libraryExportDir); err != nil {
			return err
		}
		clips, _ := export.ClipsFromVideos(videos)
		if len(clips) == 0 {
			return errors.New("no saved videos with a source range to export")
		}
		project := export.ProjectName("")
		path, err := export.WriteEDL(libraryExportDir, project, export.GenerateEDL(clips, project, export.DefaultFrameRate))
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	if libraryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(videos)
	}
	printLibrary(cmd.OutOrStdout(), videos)
	return nil
}

func printFrames(w io.Writer, frames []thumbnail.Frame) {
	for _, f := range frames {
		fmt.Fprintf(w, "%s\t%s\n", trim.FormatTime(f.Index), f.Path)
	}
}

func printLibrary(w io.Writer, videos []library.SavedVideo) {
	if len(videos) == 0 {
		fmt.Fprintln(w, "Library is empty.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRANGE\tURI")
	for _, v := range videos {
		rng := "-"
		if v.HasRange() {
			rng = trim.FormatTime(*v.StartSeconds) + "-" + trim.FormatTime(*v.EndSeconds)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", v.ID, v.Title, rng, v.URI)
	}
	tw.Flush()
}

// parseSeconds accepts a whole number of seconds or HH:MM:SS.
func parseSeconds(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("negative time %q", s)
		}
		return n, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: want seconds or HH:MM:SS", s)
	}
	total := 0
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && n > 59) {
			return 0, fmt.Errorf("invalid time %q: want seconds or HH:MM:SS", s)
		}
		total = total*60 + n
	}
	return total, nil
}
