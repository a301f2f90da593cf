package docs

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/kiln/internal/component"
)

// RenderMarkdown formats doc as a markdown reference page.
func RenderMarkdown(doc *component.Documentation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# `<%s>` (v%d)\n\n", doc.Component, doc.Version)
	if doc.Description != "" {
		b.WriteString(doc.Description + "\n\n")
	}

	if len(doc.Attributes) > 0 {
		b.WriteString("## Attributes\n\n| Name | Type | Default | Description |\n|---|---|---|---|\n")
		for _, a := range doc.Attributes {
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", a.Name, cell(a.Type), cell(a.Default), cell(a.Description))
		}
		b.WriteString("\n")
	}

	if len(doc.Events) > 0 {
		b.WriteString("## Events\n\n")
		for _, e := range doc.Events {
			fmt.Fprintf(&b, "- `%s`", e.Name)
			if e.Detail != "" {
				fmt.Fprintf(&b, " (detail: %s)", e.Detail)
			}
			if e.Description != "" {
				fmt.Fprintf(&b, ": %s", e.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.Methods) > 0 {
		b.WriteString("## Methods\n\n")
		for _, m := range doc.Methods {
			sig := m.Signature
			if sig == "" {
				sig = m.Name + "()"
			}
			fmt.Fprintf(&b, "- `%s`", sig)
			if m.Description != "" {
				fmt.Fprintf(&b, ": %s", m.Description)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(doc.Dependencies) > 0 {
		b.WriteString("## Dependencies\n\n")
		for _, d := range doc.Dependencies {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	if len(doc.UsageExamples) > 0 {
		b.WriteString("## Usage\n\n")
		for _, ex := range doc.UsageExamples {
			fmt.Fprintf(&b, "```html\n%s\n```\n\n", strings.TrimSpace(ex))
		}
	}
	return b.String()
}

// RenderHTML renders doc's markdown page with goldmark.
func RenderHTML(doc *component.Documentation) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.New(goldmark.WithExtensions(extension.Table)).Convert([]byte(RenderMarkdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("render documentation: %w", err)
	}
	return buf.String(), nil
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return strings.ReplaceAll(s, "|", `\|`)
}
