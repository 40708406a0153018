package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Veraticus/financas/internal/service"
	"github.com/schollz/progressbar/v3"
)

// CopyProgressBar renders environment copy events as a progress bar.
type CopyProgressBar struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
	last   service.CopyProgress
}

// NewCopyProgressBar creates a progress bar writing to writer.
func NewCopyProgressBar(writer io.Writer) *CopyProgressBar {
	return &CopyProgressBar{writer: writer}
}

// Run renders every event until events is closed.
func (p *CopyProgressBar) Run(events <-chan service.CopyProgress) {
	for ev := range events {
		p.Update(ev)
	}
}

// Update moves the bar to the step of ev.
func (p *CopyProgressBar) Update(ev service.CopyProgress) {
	if p.bar == nil {
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.writer),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionOnCompletion(func() {
				if _, err := fmt.Fprintln(p.writer); err != nil {
					slog.Warn("Failed to write newline after progress bar", "error", err)
				}
			}),
		)
	}
	p.last = ev

	description := ev.Message
	if ev.Table != "" {
		description = fmt.Sprintf("%s (%d rows)", ev.Message, ev.Rows)
	}
	p.bar.Describe("[cyan]" + description + "[reset]")

	if ev.Done {
		if err := p.bar.Finish(); err != nil {
			slog.Warn("Failed to finish progress bar", "error", err)
		}
		return
	}
	if err := p.bar.Set(ev.Step); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Last returns the most recent event.
func (p *CopyProgressBar) Last() service.CopyProgress {
	return p.last
}
