package export

import (
	"context"
	"fmt"
	"hash/fnv"
	"io"
	"strings"
	"unicode"

	"github.com/vanderheijden86/sage/pkg/model"
	"github.com/vanderheijden86/sage/pkg/progress"
)

// CategoryLabel is the display name of a node category.
func CategoryLabel(c model.Category) string {
	switch c {
	case model.CategoryRecommended:
		return "Recommended"
	case model.CategoryAlternative:
		return "Alternative option"
	case model.CategoryAnytime:
		return "Learn anytime"
	default:
		return "Required"
	}
}

// StatusLabel is the display name of a completion state.
func StatusLabel(s progress.Status) string {
	switch s {
	case progress.Done:
		return "Completed"
	case progress.InProgress:
		return "In progress"
	default:
		return "Not started"
	}
}

// NodeMarkdown describes one node for the detail panel.
func NodeMarkdown(n *model.Node, status progress.Status) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", n.Title)
	fmt.Fprintf(&sb, "**%s** · %s", CategoryLabel(n.Category), StatusLabel(status))
	if n.EstimatedTime != "" {
		fmt.Fprintf(&sb, " · ⏱ %s", n.EstimatedTime)
	}
	sb.WriteString("\n\n")
	if d := strings.TrimSpace(n.Description); d != "" {
		sb.WriteString(d + "\n\n")
	}
	if len(n.Topics) > 0 {
		sb.WriteString("## Topics\n\n")
		for _, t := range n.Topics {
			fmt.Fprintf(&sb, "- %s\n", t)
		}
		sb.WriteString("\n")
	}
	if len(n.Resources) > 0 {
		sb.WriteString("## Resources\n\n")
		writeResources(&sb, n.Resources)
	}
	return sb.String()
}

// ResourcesMarkdown renders a resource list.
func ResourcesMarkdown(rs []model.Resource) string {
	var sb strings.Builder
	writeResources(&sb, rs)
	return sb.String()
}

func writeResources(sb *strings.Builder, rs []model.Resource) {
	for _, r := range rs {
		label := r.Title
		if label == "" {
			label = r.URL
		}
		fmt.Fprintf(sb, "- [%s](%s)", label, r.URL)
		if r.Type != "" {
			fmt.Fprintf(sb, " _%s_", r.Type)
		}
		if r.Snippet != "" {
			fmt.Fprintf(sb, "  \n  %s", r.Snippet)
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
}

// FAQMarkdown renders the FAQ section of a roadmap, or "" when it has none.
func FAQMarkdown(r *model.Roadmap) string {
	if r == nil || len(r.FAQs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## Frequently Asked Questions\n\n")
	for _, f := range r.FAQs {
		fmt.Fprintf(&sb, "**%s**\n\n%s\n\n", f.Question, f.Answer)
	}
	return sb.String()
}

// RenderMarkdown writes a report: progress summary, a Mermaid flowchart,
// a checklist in display order and the FAQs. An empty roadmap writes
// nothing.
func RenderMarkdown(w io.Writer, opts Options) error {
	r := opts.Roadmap
	if r.IsEmpty() {
		return nil
	}
	status := opts.Status
	if status == nil {
		t := progress.New(context.Background(), r, nil)
		defer t.Close()
		status = t.Status
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	if r.Description != "" {
		sb.WriteString(r.Description + "\n\n")
	}
	done := 0
	for _, n := range r.Nodes {
		if status(n.ID) == progress.Done {
			done++
		}
	}
	fmt.Fprintf(&sb, "**Progress:** %d/%d completed (%d%%)\n\n", done, len(r.Nodes),
		done*100/len(r.Nodes))

	sb.WriteString("```mermaid\n")
	sb.WriteString(MermaidGraph(r, status))
	sb.WriteString("```\n\n")

	sb.WriteString("## Topics\n\n")
	for _, n := range r.Nodes {
		mark := " "
		if status(n.ID) == progress.Done {
			mark = "x"
		}
		fmt.Fprintf(&sb, "- [%s] **%s** (%s)", mark, n.Title, CategoryLabel(n.Category))
		if len(n.Topics) > 0 {
			fmt.Fprintf(&sb, ": %s", strings.Join(n.Topics, ", "))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(FAQMarkdown(r))

	_, err := io.WriteString(w, sb.String())
	return err
}

// MermaidGraph renders the roadmap as a top-down Mermaid flowchart. Edges
// to missing nodes are skipped.
func MermaidGraph(r *model.Roadmap, status StatusFunc) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	sb.WriteString("    classDef required fill:#fde68a,stroke:#333,color:#000\n")
	sb.WriteString("    classDef recommended fill:#ddd6fe,stroke:#333,color:#000\n")
	sb.WriteString("    classDef alternative fill:#e5e7eb,stroke:#333,color:#000\n")
	sb.WriteString("    classDef anytime fill:#bfdbfe,stroke:#333,color:#000\n")
	sb.WriteString("    classDef done fill:#bbf7d0,stroke:#333,color:#000\n")

	ids := mermaidIDs(r)
	for _, n := range r.Nodes {
		id, ok := ids[n.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", id, mermaidText(n.Title))
		class := string(n.Category)
		if status != nil && status(n.ID) == progress.Done {
			class = "done"
		}
		fmt.Fprintf(&sb, "    class %s %s\n", id, class)
	}
	for _, e := range r.ValidEdges() {
		fmt.Fprintf(&sb, "    %s --> %s\n", ids[e.From], ids[e.To])
	}
	return sb.String()
}

// mermaidIDs maps node ids onto unique Mermaid-safe identifiers, hashing
// on collision so output is deterministic.
func mermaidIDs(r *model.Roadmap) map[string]string {
	out := make(map[string]string, len(r.Nodes))
	used := make(map[string]bool, len(r.Nodes))
	for _, n := range r.Nodes {
		if _, ok := out[n.ID]; ok {
			continue
		}
		base := mermaidID(n.ID)
		safe := base
		if used[safe] {
			h := fnv.New32a()
			_, _ = h.Write([]byte(n.ID))
			safe = fmt.Sprintf("%s_%x", base, h.Sum32())
		}
		used[safe] = true
		out[n.ID] = safe
	}
	return out
}

func mermaidID(id string) string {
	var sb strings.Builder
	for _, r := range id {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' {
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "node"
	}
	return sb.String()
}

var mermaidReplacer = strings.NewReplacer(
	"\"", "'",
	"[", "(",
	"]", ")",
	"{", "(",
	"}", ")",
	"<", "&lt;",
	">", "&gt;",
	"|", "/",
	"`", "'",
	"\n", " ",
	"\r", "",
)

func mermaidText(s string) string {
	s = strings.TrimSpace(mermaidReplacer.Replace(s))
	if runes := []rune(s); len(runes) > 40 {
		s = string(runes[:37]) + "..."
	}
	return s
}
