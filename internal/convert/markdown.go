package convert

import (
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/document"
)

func blockPrefix(k document.Kind) string {
	switch k {
	case document.KindBulletItem:
		return "* "
	case document.KindHeading1:
		return "# "
	case document.KindHeading2:
		return "## "
	case document.KindHeading3:
		return "### "
	default:
		return ""
	}
}

// emitMarkdown is the structured pass.
func (c *Converter) emitMarkdown(doc *document.Document, links *linkCollector) (string, []string) {
	var (
		b      strings.Builder
		images []string
	)
	for _, block := range doc.Blocks() {
		b.WriteString(blockPrefix(block.Kind))
		for _, in := range block.Inlines {
			if in.IsImage() {
				if in.ImageURI == "" {
					c.logger.Debug("dropping unresolved inline object", zap.String("object_id", in.ObjectID))
					continue
				}
				b.WriteString("\n![image](")
				b.WriteString(destination(in.ImageURI))
				b.WriteString(")\n")
				images = append(images, in.ImageURI)
				continue
			}
			if in.LinkURL == "" {
				b.WriteString(in.Text)
				continue
			}
			c.writeLink(&b, in, links)
		}
		b.WriteByte('\n')
	}
	return b.String(), images
}

// writeLink emits a hyperlinked run as [anchor](href), keeping the run's
// surrounding whitespace outside the link.
func (c *Converter) writeLink(b *strings.Builder, in document.Inline, links *linkCollector) {
	rest := strings.TrimLeftFunc(in.Text, unicode.IsSpace)
	anchor := strings.TrimRightFunc(rest, unicode.IsSpace)
	lead := in.Text[:len(in.Text)-len(rest)]
	trail := rest[len(anchor):]

	href := in.LinkURL
	if id, ok := c.matcher.Match(in.LinkURL); ok {
		href = links.rewrite(id, anchor)
	}

	b.WriteString(lead)
	b.WriteByte('[')
	b.WriteString(anchorEscaper.Replace(anchor))
	b.WriteString("](")
	b.WriteString(destination(href))
	b.WriteByte(')')
	b.WriteString(trail)
}

// anchorEscaper keeps brackets in anchor text from closing the link early.
var anchorEscaper = strings.NewReplacer(`\`, `\\`, `[`, `\[`, `]`, `\]`)

// destination wraps a link destination in angle brackets when it would not
// survive as a bare markdown destination.
func destination(u string) string {
	if strings.ContainsAny(u, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(u) + ">"
	}
	return u
}
