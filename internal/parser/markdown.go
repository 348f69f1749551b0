package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/docoutline/internal/doctree"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	reader := text.NewReader(src)
	root := md.Parser().Parse(reader)

	fl := newFlow(filename)
	layoutBlocks(fl, root, src)
	return fl.document(), nil
}

// layoutBlocks walks block children of n and places each as fragments.
func layoutBlocks(fl *flow, n ast.Node, src []byte) {
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Heading:
			fl.add(inlineText(node, src), headingSize(node.Level), boldFont)
		case *ast.Paragraph, *ast.TextBlock:
			font := bodyFont
			if isStrongOnly(c) {
				font = boldFont
			}
			fl.addLines(inlineText(c, src), bodyFontSize, font)
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			fl.addLines(blockLines(c, src), bodyFontSize, "Courier")
		case *ast.ThematicBreak:
			fl.add("", bodyFontSize, bodyFont)
		case *ast.HTMLBlock:
			if strings.Contains(blockLines(c, src), "pagebreak") {
				fl.newPage()
			}
		default:
			// Lists, list items and blockquotes hold further blocks.
			layoutBlocks(fl, c, src)
		}
	}
}

// inlineText flattens the inline children of a block. Soft and hard line
// breaks become newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				buf.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
			case *ast.String:
				buf.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(buf.String())
}

func blockLines(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		buf.Write(line.Value(src))
	}
	return buf.String()
}

// isStrongOnly reports whether a paragraph is a single **strong** span,
// which documents often use as an unnumbered heading.
func isStrongOnly(n ast.Node) bool {
	if n.ChildCount() != 1 {
		return false
	}
	e, ok := n.FirstChild().(*ast.Emphasis)
	return ok && e.Level == 2
}
