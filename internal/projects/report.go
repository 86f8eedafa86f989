package projects

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"ai-app-builder/internal/workflow"
)

var sectionLanguage = map[string]string{
	"frontend":   "tsx",
	"backend":    "ts",
	"database":   "sql",
	"config":     "json",
	"tests":      "ts",
	"deployment": "yaml",
}

// ReportMarkdown summarizes a project as a markdown document.
func ReportMarkdown(p *workflow.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", oneLine(p.Name))
	if p.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", oneLine(p.Description))
	}
	fmt.Fprintf(&b, "**Status:** %s  \n**Created:** %s\n\n", p.Status, p.CreatedAt.UTC().Format("2006-01-02 15:04 MST"))
	if p.Error != "" {
		fmt.Fprintf(&b, "> %s\n\n", oneLine(p.Error))
	}

	if len(p.Metadata.Features) > 0 {
		b.WriteString("## Features\n\n")
		for _, f := range p.Metadata.Features {
			fmt.Fprintf(&b, "- %s\n", oneLine(f))
		}
		b.WriteString("\n")
	}

	if len(p.Metadata.Stack) > 0 {
		b.WriteString("## Stack\n\n")
		keys := make([]string, 0, len(p.Metadata.Stack))
		for k := range p.Metadata.Stack {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- **%s:** %s\n", oneLine(k), oneLine(p.Metadata.Stack[k]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Agents\n\n| Agent | Status | Attempts | Notes |\n|---|---|---|---|\n")
	for _, a := range p.Agents {
		fmt.Fprintf(&b, "| %s | %s | %d | %s |\n", a.Name, a.Status, a.Attempts, cell(a.Error))
	}
	b.WriteString("\n")

	if p.Codebase != nil {
		b.WriteString("## Codebase\n\n")
		for _, s := range p.Codebase.Sections() {
			if strings.TrimSpace(s.Content) == "" {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n~~~~%s\n%s\n~~~~\n\n", s.Name, sectionLanguage[s.Name], strings.TrimRight(s.Content, "\n"))
		}
	}
	return b.String()
}

// RenderReport renders the project report to HTML. Raw HTML in the
// source is dropped.
func RenderReport(p *workflow.Project) []byte {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	doc := parser.NewWithExtensions(extensions).Parse([]byte(ReportMarkdown(p)))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML | html.CompletePage,
		Title: p.Name + " report",
	})
	return markdown.Render(doc, renderer)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cell(s string) string {
	return strings.ReplaceAll(oneLine(s), "|", "\\|")
}
