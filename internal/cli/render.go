package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// palette holds the styles for one output stream. Colors are dropped
// automatically when w is not a terminal.
type palette struct {
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	card    lipgloss.Style
}

func styles(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#B15E6C")),
		heading: r.NewStyle().Bold(true).Foreground(lipgloss.Color("#556277")),
		muted:   r.NewStyle().Faint(true),
		success: r.NewStyle().Foreground(lipgloss.Color("42")),
		warning: r.NewStyle().Foreground(lipgloss.Color("214")),
		card: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(0, 1),
	}
}

func ok(w io.Writer, msg string) {
	fmt.Fprintln(w, styles(w).success.Render("✔ "+msg))
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// printRecipeTable lists recipes one per row.
func printRecipeTable(w io.Writer, recipes []*types.Recipe, empty string) {
	p := styles(w)
	if len(recipes) == 0 {
		fmt.Fprintln(w, p.muted.Render(empty))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(p.muted).
		Headers("ID", "TITLE", "RATING", "TAGS")
	for _, r := range recipes {
		t.Row(r.ID, r.DisplayTitle(), shortRating(r), strings.Join(r.Tags, ", "))
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, p.muted.Render(strconv.Itoa(len(recipes))+" recipe(s)"))
}

func shortRating(r *types.Recipe) string {
	avg, ok := r.AverageRating()
	if !ok {
		return "-"
	}
	return fmt.Sprintf("%.1f (%d)", avg, len(r.Ratings))
}

// printRecipeCard renders the full recipe the way the web page lays it out.
func printRecipeCard(w io.Writer, r *types.Recipe) {
	p := styles(w)
	var b strings.Builder

	b.WriteString(p.title.Render(r.DisplayTitle()))
	if !r.Active() {
		b.WriteString(" " + p.warning.Render("(in recycle bin)"))
	}
	b.WriteString("\n" + p.muted.Render(r.ID) + "\n\n")

	fmt.Fprintf(&b, "Ready In: %s   Yield: %s   Temperature: %s\n",
		orNA(r.ReadyIn), orNA(r.Servings), orNA(r.Temperature))

	b.WriteString("\n" + p.heading.Render("Ingredients") + "\n")
	if len(r.Ingredients) == 0 {
		b.WriteString(p.muted.Render("No ingredients listed.") + "\n")
	}
	for _, ing := range r.Ingredients {
		b.WriteString("- " + ing + "\n")
	}

	b.WriteString("\n" + p.heading.Render("Preparation Steps") + "\n")
	if len(r.Instructions) == 0 {
		b.WriteString(p.muted.Render("No instructions provided.") + "\n")
	}
	for i, step := range r.Instructions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, step)
	}

	b.WriteString("\n" + p.heading.Render("Notes") + "\n")
	switch {
	case r.Notes.Empty():
		b.WriteString(p.muted.Render("No notes provided.") + "\n")
	case r.Notes.List:
		for _, n := range r.Notes.Items {
			b.WriteString("- " + n + "\n")
		}
	default:
		b.WriteString(r.Notes.Text + "\n")
	}

	if len(r.Tags) > 0 {
		b.WriteString("\n" + p.heading.Render("Tags") + "\n" + strings.Join(r.Tags, ", ") + "\n")
	}

	b.WriteString("\n" + p.heading.Render("Rating") + "\n" + r.RatingSummary())

	fmt.Fprintln(w, p.card.Render(b.String()))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
