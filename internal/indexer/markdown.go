package indexer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownNormalizer flattens markdown content to plain text so .md uploads
// chunk and embed as cleanly as .txt uploads. Headings, paragraphs, list
// items, code blocks and table rows each become blank-line separated blocks.
type MarkdownNormalizer struct {
	parser goldmark.Markdown
}

// NewMarkdownNormalizer creates a normalizer with table support.
func NewMarkdownNormalizer() *MarkdownNormalizer {
	return &MarkdownNormalizer{
		parser: goldmark.New(
			goldmark.WithExtensions(extension.Table),
		),
	}
}

// Normalize parses markdown and returns its plain-text rendering.
func (n *MarkdownNormalizer) Normalize(content []byte) string {
	if len(content) == 0 {
		return ""
	}

	reader := text.NewReader(content)
	doc := n.parser.Parser().Parse(reader)

	var builder strings.Builder

	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Heading:
			writeBlock(&builder, extractText(v, content))
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			writeBlock(&builder, extractText(v, content))
			return ast.WalkSkipChildren, nil

		case *ast.TextBlock:
			// Tight list items wrap their text in a TextBlock instead of a Paragraph.
			writeBlock(&builder, extractText(v, content))
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock:
			writeBlock(&builder, extractLines(v, content))
			return ast.WalkSkipChildren, nil

		case *ast.CodeBlock:
			writeBlock(&builder, extractLines(v, content))
			return ast.WalkSkipChildren, nil

		default:
			kindName := node.Kind().String()
			if strings.Contains(kindName, "TableRow") || strings.Contains(kindName, "TableHeader") {
				writeBlock(&builder, extractTableRow(node, content))
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}
	})

	return strings.TrimSpace(builder.String())
}

// writeBlock appends a non-empty block followed by a paragraph separator.
func writeBlock(builder *strings.Builder, block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	builder.WriteString(block)
	builder.WriteString("\n\n")
}

// extractText collects the text content of a node and its children.
func extractText(n ast.Node, content []byte) string {
	var builder strings.Builder

	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := node.(type) {
		case *ast.Text:
			builder.Write(v.Segment.Value(content))
			if v.SoftLineBreak() || v.HardLineBreak() {
				builder.WriteString(" ")
			}
		case *ast.String:
			builder.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(builder.String())
}

// extractLines collects the raw source lines of a code block.
func extractLines(n ast.Node, content []byte) string {
	var builder strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		builder.Write(line.Value(content))
	}
	return builder.String()
}

// extractTableRow flattens a table row to "cell | cell | cell".
func extractTableRow(row ast.Node, content []byte) string {
	var builder strings.Builder
	cellCount := 0

	_ = ast.Walk(row, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		if strings.Contains(node.Kind().String(), "TableCell") {
			if cellCount > 0 {
				builder.WriteString(" | ")
			}
			builder.WriteString(extractText(node, content))
			cellCount++
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return builder.String()
}
