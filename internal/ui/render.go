package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	domainErrors "github.com/mojotech/prist/internal/errors"
	"github.com/mojotech/prist/internal/i18n"
	"github.com/mojotech/prist/internal/models"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

const dateLayout = "2006-01-02 15:04"

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", domainErrors.ErrConfigInvalid.
			WithContext("format", s).
			WithError(fmt.Errorf("unknown output format %q", s)).
			WithSuggestion("Use --format table, json or yaml")
	}
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	kindColors = map[models.EntryKind]lipgloss.Color{
		models.EntryComment:  lipgloss.Color("4"),
		models.EntryApproval: lipgloss.Color("2"),
		models.EntryUpdate:   lipgloss.Color("3"),
	}
)

// Renderer writes timelines and PR lists in one output format.
type Renderer struct {
	w      io.Writer
	format Format
	t      *i18n.Translations
}

func NewRenderer(w io.Writer, format Format, t *i18n.Translations) *Renderer {
	return &Renderer{w: w, format: format, t: t}
}

func (r *Renderer) Timeline(tl models.Timeline) error {
	switch r.format {
	case FormatJSON:
		return r.json(tl)
	case FormatYAML:
		return r.yaml(tl)
	}

	title := r.t.GetMessage("pr_timeline_title", 0, map[string]interface{}{
		"ID":    tl.PullRequest.ID,
		"Title": tl.PullRequest.Title,
	})
	summary := r.t.GetMessage("pr_timeline_summary", len(tl.Commits), map[string]interface{}{
		"Count":   len(tl.Commits),
		"Walked":  tl.Walked,
		"Entries": len(tl.Entries),
	})
	_, _ = fmt.Fprintln(r.w, Accent.Sprint(title))
	_, _ = fmt.Fprintln(r.w, Dim.Sprint(summary))

	rows := make([][]string, 0, len(tl.Entries))
	for _, e := range tl.Entries {
		rows = append(rows, timelineRow(e))
	}

	kinds := make([]models.EntryKind, len(tl.Entries))
	for i, e := range tl.Entries {
		kinds[i] = e.Kind
	}

	tbl := newTable(r.headers("header_type", "header_user", "header_date", "header_content", "header_commit"), rows).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 0 && row >= 0 && row < len(kinds) {
				return cellStyle.Foreground(kindColors[kinds[row]])
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(r.w, tbl.String())
	return err
}

func (r *Renderer) PullRequests(prs []models.PullRequest) error {
	switch r.format {
	case FormatJSON:
		return r.json(prs)
	case FormatYAML:
		return r.yaml(prs)
	}

	if len(prs) == 0 {
		PrintInfo(r.w, r.t.GetMessage("pr_no_open", 0, nil))
		return nil
	}

	rows := make([][]string, 0, len(prs))
	for _, pr := range prs {
		rows = append(rows, []string{
			strconv.Itoa(pr.ID),
			pr.Title,
			pr.Author,
			pr.State,
			strconv.Itoa(pr.CommentCount),
			formatDate(pr.CreatedAt),
			formatDate(pr.UpdatedAt),
		})
	}

	tbl := newTable(r.headers("header_id", "header_title", "header_author", "header_state",
		"header_comments", "header_created", "header_updated"), rows).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	_, err := fmt.Fprintln(r.w, tbl.String())
	return err
}

func (r *Renderer) headers(ids ...string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = r.t.GetMessage(id, 0, nil)
	}
	return out
}

func (r *Renderer) json(v any) error {
	enc := json.NewEncoder(r.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (r *Renderer) yaml(v any) error {
	enc := yaml.NewEncoder(r.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...)
}

func timelineRow(e models.TimelineEntry) []string {
	content := strings.Join(strings.Fields(e.Text), " ")
	if loc := inlineLabel(e.Inline); loc != "" {
		content = strings.TrimSpace(loc + " " + content)
	}

	commit := ""
	if e.Commit != nil {
		commit = e.Commit.Short()
	}
	return []string{string(e.Kind), e.Actor, formatDate(e.Timestamp), content, commit}
}

// inlineLabel renders an inline location as "path:line" or "path:from-to".
func inlineLabel(loc *models.InlineLocation) string {
	if loc == nil || loc.Path == "" {
		return ""
	}
	switch {
	case loc.From != nil && loc.To != nil && *loc.From != *loc.To:
		return fmt.Sprintf("[%s:%d-%d]", loc.Path, *loc.From, *loc.To)
	case loc.To != nil:
		return fmt.Sprintf("[%s:%d]", loc.Path, *loc.To)
	case loc.From != nil:
		return fmt.Sprintf("[%s:%d]", loc.Path, *loc.From)
	default:
		return fmt.Sprintf("[%s]", loc.Path)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(dateLayout)
}
