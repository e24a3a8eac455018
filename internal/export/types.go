package export

// ExportRequest selects saved videos to export. An empty VideoIDs exports every
// saved entry that carries a source range.
type ExportRequest struct {
	ProjectName string  `json:"project_name"`
	Format      string  `json:"format"`
	FrameRate   float64 `json:"frame_rate"`
	OutputDir   string  `json:"output_dir"`
	VideoIDs    []int   `json:"video_ids,omitempty"`
}

// Clip is one EDL event: a range of a source file.
type Clip struct {
	VideoID   int
	ClipName  string
	MediaPath string
	StartMs   int
	EndMs     int
}

type ExportResponse struct {
	Status     string `json:"status"`
	Format     string `json:"format"`
	OutputPath string `json:"output_path"`
	ClipCount  int    `json:"clip_count"`
	Skipped    []int  `json:"skipped"`
}
