// Package convert turns a structured document into markdown and HTML while
// discovering the cross-document links and images it contains.
//
// Conversion runs in three steps:
//   - a structured pass emits markdown from the document blocks, rewriting
//     hyperlinks that point at other documents;
//   - a literal pass rescans the markdown text for inline links written
//     directly as markdown and rewrites the ones that point at documents;
//   - the markdown is parsed with goldmark, any remaining document link in
//     the AST (reference-style links) is rewritten, and the tree is rendered.
//
// Every document link is reported exactly as it was found, in order, so the
// caller can schedule the targets.
package convert

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/JakeFAU/docsite/internal/doclink"
	"github.com/JakeFAU/docsite/internal/document"
	"github.com/JakeFAU/docsite/internal/slug"
)

// LinkReference is a document link discovered during conversion.
// SuggestedSlug is derived from the anchor text at this occurrence only.
type LinkReference struct {
	TargetID      string
	SuggestedSlug string
}

// LinkResolver decides the href a discovered document link is rewritten to.
type LinkResolver interface {
	ResolveLink(ref LinkReference) string
}

// LinkResolverFunc adapts a function to LinkResolver.
type LinkResolverFunc func(ref LinkReference) string

// ResolveLink implements LinkResolver.
func (f LinkResolverFunc) ResolveLink(ref LinkReference) string {
	return f(ref)
}

// Result is the output of one conversion.
type Result struct {
	// Markdown is the intermediate markup after both rewriting passes.
	Markdown string
	// HTML is the rendered body fragment.
	HTML string
	// Links lists every document link in discovery order, duplicates included.
	Links []LinkReference
	// Images lists the image URIs emitted, in order.
	Images []string
}

// Converter converts documents. It holds no per-document state and may be
// reused across documents and goroutines.
type Converter struct {
	matcher doclink.Matcher
	md      goldmark.Markdown
	logger  *zap.Logger
}

// New builds a Converter that treats URLs accepted by matcher as document links.
func New(matcher doclink.Matcher, logger *zap.Logger) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Converter{
		matcher: matcher,
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.Table,
				extension.Footnote,
				extension.Strikethrough,
			),
			goldmark.WithRendererOptions(
				html.WithUnsafe(),
			),
		),
		logger: logger,
	}
}

// Convert converts doc. Document links are rewritten to the href returned by
// resolver; a nil resolver rewrites to /p/<suggested-slug>/.
func (c *Converter) Convert(doc *document.Document, resolver LinkResolver) (Result, error) {
	links := &linkCollector{resolver: resolver}

	md, images := c.emitMarkdown(doc, links)
	md = c.rewriteLiteralLinks(md, links)

	var buf bytes.Buffer
	if err := c.render(&buf, []byte(md), links); err != nil {
		return Result{}, fmt.Errorf("render markdown: %w", err)
	}
	return Result{
		Markdown: md,
		HTML:     buf.String(),
		Links:    links.refs,
		Images:   images,
	}, nil
}

// Render renders arbitrary markdown with the converter's settings, applying
// the AST link pass with the given resolver.
func (c *Converter) Render(markdown string, resolver LinkResolver) (string, []LinkReference, error) {
	links := &linkCollector{resolver: resolver}
	var buf bytes.Buffer
	if err := c.render(&buf, []byte(markdown), links); err != nil {
		return "", nil, fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), links.refs, nil
}

type linkCollector struct {
	resolver LinkResolver
	refs     []LinkReference
}

// rewrite records a link to id found with the given anchor text and returns
// the href it should point at.
func (lc *linkCollector) rewrite(id, anchor string) string {
	s := slug.Slugify(anchor)
	if s == "" {
		s = id
	}
	ref := LinkReference{TargetID: id, SuggestedSlug: s}
	lc.refs = append(lc.refs, ref)
	if lc.resolver == nil {
		return doclink.Href(s)
	}
	return lc.resolver.ResolveLink(ref)
}
