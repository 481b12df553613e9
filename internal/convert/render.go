package convert

import (
	"fmt"
	"io"
	"strings"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// render parses source, rewrites document links still present in the AST
// and renders HTML to w.
func (c *Converter) render(w io.Writer, source []byte, links *linkCollector) error {
	root := c.md.Parser().Parse(text.NewReader(source))

	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		link, ok := n.(*ast.Link)
		if !ok {
			return ast.WalkContinue, nil
		}
		id, ok := c.matcher.Match(string(link.Destination))
		if !ok {
			return ast.WalkContinue, nil
		}
		link.Destination = []byte(links.rewrite(id, plainText(link, source)))
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return fmt.Errorf("walk markdown: %w", err)
	}

	if err := c.md.Renderer().Render(w, source, root); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// plainText concatenates the literal text below n.
func plainText(n ast.Node, source []byte) string {
	var b strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch t := child.(type) {
		case *ast.Text:
			b.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		default:
			b.WriteString(plainText(child, source))
		}
	}
	return b.String()
}
