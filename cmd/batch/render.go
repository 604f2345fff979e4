package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"veobatch/internal/domain"
	"veobatch/internal/jobs"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00E6FF"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF88")).Bold(true)
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFD75F"))
	percentStyle = lipgloss.NewStyle().Width(5).Align(lipgloss.Right)
)

// renderer prints orchestrator events as one styled line each.
type renderer struct {
	out     io.Writer
	ordinal map[string]int
	prompts map[string]string
	total   int
}

func newRenderer(out io.Writer, created []domain.Job) *renderer {
	r := &renderer{
		out:     out,
		ordinal: make(map[string]int, len(created)),
		prompts: make(map[string]string, len(created)),
		total:   len(created),
	}
	for i, job := range created {
		r.ordinal[job.ID] = i + 1
		r.prompts[job.ID] = job.Prompt
	}
	return r
}

func (r *renderer) header(count int, ratio domain.AspectRatio) {
	fmt.Fprintln(r.out, lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("veobatch"),
		labelStyle.Render(fmt.Sprintf("  %d prompt(s), aspect %s", count, ratio)),
	))
}

func (r *renderer) notice(msg string) {
	fmt.Fprintln(r.out, warnStyle.Render("! "+msg))
}

// drain prints every event after seq and returns the last sequence seen.
func (r *renderer) drain(bus *jobs.EventBus, seq int64) int64 {
	for _, event := range bus.Since(seq) {
		if line := r.line(event); line != "" {
			fmt.Fprintln(r.out, line)
		}
		seq = event.Seq
	}
	return seq
}

func (r *renderer) line(event jobs.Event) string {
	tag := labelStyle.Render(fmt.Sprintf("[%d/%d]", r.ordinal[event.JobID], r.total))
	switch event.Type {
	case jobs.EventTypeProgress:
		return lipgloss.JoinHorizontal(lipgloss.Top, tag, " ",
			percentStyle.Render(fmt.Sprintf("%d%%", event.Percent)), " ", event.Message)
	case jobs.EventTypeStatus:
		if event.Status == domain.JobStatusCompleted {
			return lipgloss.JoinHorizontal(lipgloss.Top, tag, " ", okStyle.Render("done"), " ", truncate(r.prompts[event.JobID], 60))
		}
		return ""
	case jobs.EventTypeRemoved:
		if event.Error == "" {
			return ""
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, tag, " ", failStyle.Render("failed"), " ", event.Error)
	case jobs.EventTypeStop:
		return warnStyle.Render("stop requested")
	default:
		return ""
	}
}

func (r *renderer) summary(finished []domain.Job, remaining string) {
	completed := 0
	for _, job := range finished {
		if job.Status != domain.JobStatusCompleted {
			continue
		}
		completed++
		fmt.Fprintf(r.out, "%s %s\n", okStyle.Render("✓"), job.VideoURL)
	}
	returned := domain.ParsePrompts(remaining)
	fmt.Fprintln(r.out, lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("summary"),
		labelStyle.Render(fmt.Sprintf("  completed %d, returned %d", completed, len(returned))),
	))
	for _, prompt := range returned {
		fmt.Fprintf(r.out, "%s %s\n", failStyle.Render("↺"), truncate(prompt, 80))
	}
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
