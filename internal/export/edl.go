// Package export writes saved trims as an edit decision list that points back
// at the untouched source files.
package export

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/heimdex/heimdex-trim/internal/ffmpeg"
	"github.com/heimdex/heimdex-trim/internal/library"
)

const (
	DefaultFrameRate   = 30.0
	DefaultProjectName = "heimdex_trims"
)

// ClipsFromVideos turns saved videos into EDL clips. Entries without a source
// range (legacy records, or trims saved before ranges were recorded) are
// returned in skipped.
func ClipsFromVideos(videos []library.SavedVideo) (clips []Clip, skipped []int) {
	skipped = []int{}
	for _, v := range videos {
		if !v.HasRange() || v.Source == "" {
			skipped = append(skipped, v.ID)
			continue
		}
		name := SanitizeName(v.Title, 160)
		if name == "" {
			name = fmt.Sprintf("Video %d", v.ID)
		}
		clips = append(clips, Clip{
			VideoID:   v.ID,
			ClipName:  name,
			MediaPath: ffmpeg.LocalPath(v.Source),
			StartMs:   *v.StartSeconds * 1000,
			EndMs:     *v.EndSeconds * 1000,
		})
	}
	return clips, skipped
}

// GenerateEDL renders clips as a CMX3600 list. Record timecodes run back to back
// in clip order.
func GenerateEDL(clips []Clip, title string, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = int(DefaultFrameRate)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if isDropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	record := 0
	for i, c := range clips {
		length := c.EndMs - c.StartMs
		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "V",
			timecode(c.StartMs, fps), timecode(c.EndMs, fps),
			timecode(record, fps), timecode(record+length, fps),
		)
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", c.ClipName)
		fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", c.MediaPath)
		record += length
	}
	return b.String()
}

// WriteEDL writes content to <dir>/<project>.edl and returns the path.
func WriteEDL(dir, project, content string) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, project+".edl")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}

func isDropFrame(rate float64) bool {
	return math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01
}

// timecode renders ms as HH:MM:SS:FF at fps.
func timecode(ms int, fps int) string {
	frames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	secs := frames / fps
	return fmt.Sprintf("%02d:%02d:%02d:%02d", secs/3600, secs/60%60, secs%60, frames%fps)
}
