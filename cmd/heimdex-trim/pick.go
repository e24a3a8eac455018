package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/heimdex/heimdex-trim/internal/logging"
	"github.com/heimdex/heimdex-trim/internal/tui"
	"github.com/heimdex/heimdex-trim/internal/workflow"
)

var (
	pickTitle       string
	pickDescription string
	pickDurationMs  int64
)

var pickCmd = &cobra.Command{
	Use:   "pick <video>",
	Short: "Select a range interactively and trim it",
	Long: `Load a video from the media library, generate one thumbnail per second and
select a start and end frame in the terminal. Trimmed clips can be saved to the
library with the given title and description.`,
	Args: cobra.ExactArgs(1),
	RunE: runPick,
}

func init() {
	pickCmd.Flags().StringVar(&pickTitle, "title", "", "title for saved clips (required)")
	pickCmd.Flags().StringVar(&pickDescription, "description", "", "description for saved clips (required)")
	pickCmd.Flags().Int64Var(&pickDurationMs, "duration-ms", 0, "source duration when ffprobe is unavailable")
	pickCmd.MarkFlagRequired("title")
	pickCmd.MarkFlagRequired("description")
}

func runPick(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// The terminal belongs to the UI, so logs go to a file.
	logger, closer, err := logging.NewFileLogger(cfg.LogPath(), level())
	if err != nil {
		return err
	}
	defer closer.Close()

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	asset, err := a.picker.Pick(ctx, args[0], pickDurationMs)
	if err != nil {
		return err
	}
	session, err := workflow.NewSession(*asset, pickTitle, pickDescription)
	if err != nil {
		return err
	}
	if _, err := a.workflow.LoadAsync(ctx, session); err != nil {
		return err
	}
	defer a.workflow.Reset()

	final, err := tea.NewProgram(tui.New(ctx, a.workflow), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("terminal UI failed: %w", err)
	}

	if m, ok := final.(tui.Model); ok && m.Saved() > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Library now holds %d videos.\n", m.Saved())
	}
	return nil
}
