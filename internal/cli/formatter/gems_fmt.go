package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/CJHwong/gems.sh/internal/domain"
	"github.com/CJHwong/gems.sh/internal/template"
)

// TemplateRow is one line of the template listing.
type TemplateRow struct {
	Name       string
	Properties template.Properties
	Default    bool
}

// FormatTemplates renders the --list-templates table.
func FormatTemplates(rows []TemplateRow) string {
	if len(rows) == 0 {
		return Dim("No templates configured.") + "\n"
	}
	cells := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := r.Name
		if r.Default {
			name = StyleGreen.Render(name + " *")
		}
		cells = append(cells, []string{name, dash(r.Properties.Model), templateFlags(r.Properties)})
	}
	return RenderTable([]string{"TEMPLATE", "MODEL", "PROPERTIES"}, cells) +
		Dim("* default template") + "\n"
}

func templateFlags(p template.Properties) string {
	var flags []string
	if p.DetectLanguage {
		flags = append(flags, "detect_language")
	}
	if p.OutputLanguage != "" {
		flags = append(flags, "output_language="+p.OutputLanguage)
	}
	if p.JSONSchema != "" {
		flags = append(flags, "json_schema")
	}
	if p.JSONField != "" {
		flags = append(flags, "json_field="+p.JSONField)
	}
	if len(flags) == 0 {
		return Dim("--")
	}
	return strings.Join(flags, " ")
}

// FormatModels renders the --list-models output, marking current.
func FormatModels(ids []string, current string) string {
	if len(ids) == 0 {
		return Dim("The API reported no models.") + "\n"
	}
	var b strings.Builder
	b.WriteString(Header("Models") + "\n")
	for _, id := range ids {
		if id == current {
			fmt.Fprintf(&b, "%s %s\n", StyleGreen.Render("●"), Bold(id))
			continue
		}
		fmt.Fprintf(&b, "  %s\n", id)
	}
	return b.String()
}

// FormatHistory renders the --history table, newest first.
func FormatHistory(runs []*domain.Run, now time.Time) string {
	if len(runs) == 0 {
		return Dim("No runs recorded yet.") + "\n"
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			TruncID(r.ID),
			HumanTimestampFrom(r.CreatedAt, now),
			StylePurple.Render(r.Template),
			r.Model,
			StatusPill(r.Status),
			FormatDuration(r.Duration),
			domain.Summary(r.Input, 40),
		})
	}
	return RenderTable([]string{"ID", "WHEN", "TEMPLATE", "MODEL", "STATUS", "TOOK", "INPUT"}, rows)
}

// FormatRun renders one stored run in full for --show.
func FormatRun(r *domain.Run) string {
	meta := fmt.Sprintf("%s  %s  %s  %s\n%s",
		StylePurple.Render(r.Template),
		r.Model,
		StatusPill(r.Status),
		Dim(FormatDuration(r.Duration)),
		Dim(r.ID+" · "+r.CreatedAt.Local().Format("Jan 2, 2006 15:04")))

	var b strings.Builder
	b.WriteString(RenderBox("Run", meta))
	b.WriteString("\n\n")
	if r.Error != "" {
		b.WriteString(StatusColor(r.Status).Render("Error: "+r.Error) + "\n\n")
	}
	b.WriteString(r.DisplayText)
	if !strings.HasSuffix(r.DisplayText, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

func dash(s string) string {
	if s == "" {
		return Dim("--")
	}
	return s
}
