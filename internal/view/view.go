// Package view renders records, boilerplates and statistics for the
// terminal.
package view

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"yarvis/internal/boilerplate"
	"yarvis/internal/config"
	"yarvis/internal/project"
	"yarvis/internal/tui/styles"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

const (
	dateLayout    = "2006-01-02"
	maxDirWidth   = 48
	defaultWidth  = 80
	ellipsis      = "…"
	noDeadlineTxt = "-"
)

// Languages is the configured languages table, keyed by id.
type Languages map[string]config.Language

func (l Languages) label(id string) (string, lipgloss.Style) {
	if lang, ok := l[id]; ok && lang.Name != "" {
		return lang.Name, styles.LanguageStyle(lang.Color)
	}
	return id, styles.CellStyle
}

// ProjectTable renders records as a bordered table sorted by name.
func ProjectTable(records []project.Record, langs Languages, now time.Time) string {
	if len(records) == 0 {
		return styles.SubtitleStyle.Render("No projects.")
	}

	sorted := make([]project.Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	rows := make([][]string, 0, len(sorted))
	langStyles := make([]lipgloss.Style, 0, len(sorted))
	for _, r := range sorted {
		name, style := langs.label(r.Language)
		langStyles = append(langStyles, style)
		rows = append(rows, []string{
			r.Name,
			name,
			truncate.StringWithTail(r.Directory, maxDirWidth, ellipsis),
			repoLabel(r.Git),
			DeadlineLabel(r.Deadline, now),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.BorderStyle).
		Headers("NAME", "LANGUAGE", "DIRECTORY", "REPOSITORY", "DEADLINE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styles.HeaderStyle
			case col == 1 && row < len(langStyles):
				return langStyles[row]
			case col == 2:
				return styles.MutedCellStyle
			}
			return styles.CellStyle
		})

	return t.Render()
}

func repoLabel(g project.GitInfo) string {
	switch g.Repo {
	case project.RepoNew:
		if g.API != "" {
			return "new (" + g.API + ")"
		}
		return "new"
	case project.RepoUse:
		return "existing"
	}
	return "none"
}

// DeadlineLabel describes d relative to now: a date plus "in N days",
// "today" or "overdue".
func DeadlineLabel(d *time.Time, now time.Time) string {
	if d == nil {
		return noDeadlineTxt
	}

	day := func(t time.Time) time.Time {
		y, m, dd := t.Date()
		return time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
	}
	days := int(day(*d).Sub(day(now)).Hours() / 24)

	date := d.Format(dateLayout)
	switch {
	case days < 0:
		return date + " (overdue)"
	case days == 0:
		return date + " (today)"
	case days == 1:
		return date + " (tomorrow)"
	}
	return fmt.Sprintf("%s (in %d days)", date, days)
}

// ProjectMarkdown describes one record as markdown.
func ProjectMarkdown(rec project.Record, c project.Collection, langs Languages, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", rec.Name)
	if rec.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", rec.Description)
	}

	language, _ := langs.label(rec.Language)
	status := "active"
	if c == project.Archives {
		status = "archived"
	}

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Language | %s |\n", language)
	fmt.Fprintf(&b, "| Status | %s |\n", status)
	fmt.Fprintf(&b, "| Directory | `%s` |\n", rec.Directory)
	fmt.Fprintf(&b, "| Started | %s |\n", rec.Start.Format(dateLayout))
	fmt.Fprintf(&b, "| Deadline | %s |\n", DeadlineLabel(rec.Deadline, now))
	if rec.ArchivedFrom != "" {
		fmt.Fprintf(&b, "| Archived from | `%s` |\n", rec.ArchivedFrom)
	}

	b.WriteString("\n## Repository\n\n")
	if rec.Git.Repo == project.RepoNone {
		b.WriteString("Local directory only.\n")
		return b.String()
	}

	fmt.Fprintf(&b, "- Mode: %s\n", repoLabel(rec.Git))
	if rec.Git.Username != "" {
		fmt.Fprintf(&b, "- Account: %s\n", rec.Git.Username)
	}
	if rec.Git.Remote != "" {
		fmt.Fprintf(&b, "- Remote: `%s`\n", rec.Git.Remote)
	}

	names := make([]string, 0, len(rec.Git.Remotes))
	for name := range rec.Git.Remotes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "- %s → `%s`\n", name, rec.Git.Remotes[name])
	}
	return b.String()
}

// RenderMarkdown renders md for the terminal, wrapping at width. When
// rendering fails the markdown is returned as is.
func RenderMarkdown(md string, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle()),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}

// glamourStyle respects GLAMOUR_STYLE, then falls back to the terminal
// background, then to "notty" when stdout is not a terminal.
func glamourStyle() string {
	if style := os.Getenv("GLAMOUR_STYLE"); style != "" && style != "auto" {
		return style
	}
	out := termenv.NewOutput(os.Stdout)
	if out.Profile == termenv.Ascii {
		return "notty"
	}
	if out.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// BoilerplateList renders the catalog, wrapping descriptions at width.
func BoilerplateList(bps []boilerplate.Boilerplate, width int) string {
	if len(bps) == 0 {
		return styles.SubtitleStyle.Render("No boilerplates found.")
	}
	if width <= 0 {
		width = defaultWidth
	}

	var sections []string
	for _, bp := range bps {
		title := bp.Name
		if bp.Language != "" {
			title += " [" + bp.Language + "]"
		}
		lines := []string{
			styles.TitleStyle.UnsetMarginBottom().Render(title),
			styles.SubtitleStyle.Render(fmt.Sprintf("%s · %d files", bp.ID, bp.Files)),
		}
		if bp.Description != "" {
			lines = append(lines, indent(wordwrap.String(bp.Description, width-2)))
		}
		sections = append(sections, strings.Join(lines, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = " " + l
	}
	return strings.Join(lines, "\n")
}

// StatsTable renders the record counts.
func StatsTable(s project.Stats) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.BorderStyle).
		Rows(
			[]string{"Projects", fmt.Sprint(s.Projects)},
			[]string{"Archives", fmt.Sprint(s.Archives)},
			[]string{"Repositories", fmt.Sprint(s.Repositories)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 0 {
				return styles.HeaderStyle
			}
			return styles.CellStyle
		})
	return t.Render()
}

// Success, Warning and Error format one status line.
func Success(msg string) string { return styles.SuccessStyle.Render("✓ " + msg) }
func Warning(msg string) string { return styles.WarningStyle.Render("! " + msg) }
func Error(msg string) string   { return styles.ErrorStyle.Render("✗ " + msg) }
