package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ncx/internal/shared"
	"github.com/desertthunder/ncx/internal/tasks"
	"github.com/desertthunder/ncx/internal/ui"
)

// TUI launches the interactive ranking browser.
//
// Saving is disabled when the archive cannot be opened.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	var archive tasks.Archiver
	if repo, err := r.Archive(); err != nil {
		r.logger.Warn("archive unavailable, saving disabled", "error", err)
	} else {
		archive = repo
	}

	model := ui.NewModel(ctx, r.catalog, archive)
	p := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
