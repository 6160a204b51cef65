// Package parser turns imported Markdown or plain-text files into a note
// title and content.
package parser

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing a text file.
type Result struct {
	Frontmatter map[string]any
	Title       string
	Content     string
}

// Parse splits optional YAML frontmatter from the body and derives a title:
// the frontmatter "title", else the first H1 heading (which is then dropped
// from the content). Title is empty when neither exists.
func Parse(data []byte) *Result {
	fm, body := splitFrontmatter(data)

	if t, ok := fm["title"].(string); ok && strings.TrimSpace(t) != "" {
		return &Result{Frontmatter: fm, Title: strings.TrimSpace(t), Content: strings.TrimSpace(body)}
	}

	title, content := takeHeading(body)
	return &Result{Frontmatter: fm, Title: title, Content: content}
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. Without valid frontmatter the entire content is body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]any
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		return nil, string(data)
	}
	return fm, body
}

// takeHeading returns the first H1 and the body without that line.
func takeHeading(body string) (string, string) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			rest := append(lines[:i:i], lines[i+1:]...)
			return strings.TrimSpace(trimmed[2:]), strings.TrimSpace(strings.Join(rest, "\n"))
		}
	}
	return "", strings.TrimSpace(body)
}
