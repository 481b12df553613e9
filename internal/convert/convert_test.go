package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/docsite/internal/doclink"
	"github.com/JakeFAU/docsite/internal/document"
	"github.com/JakeFAU/docsite/internal/slug"
)

func para(style string, elems ...document.ParagraphElement) document.StructuralElement {
	p := &document.Paragraph{Elements: elems}
	if style != "" {
		p.ParagraphStyle = &document.ParagraphStyle{NamedStyleType: style}
	}
	return document.StructuralElement{Paragraph: p}
}

func bullet(elems ...document.ParagraphElement) document.StructuralElement {
	return document.StructuralElement{Paragraph: &document.Paragraph{
		Bullet:   &document.Bullet{ListID: "l"},
		Elements: elems,
	}}
}

func run(text string) document.ParagraphElement {
	return document.ParagraphElement{TextRun: &document.TextRun{Content: text}}
}

func linkRun(text, url string) document.ParagraphElement {
	return document.ParagraphElement{TextRun: &document.TextRun{
		Content:   text,
		TextStyle: &document.TextStyle{Link: &document.Link{URL: url}},
	}}
}

func image(id string) document.ParagraphElement {
	return document.ParagraphElement{InlineObjectElement: &document.InlineObjectElement{InlineObjectID: id}}
}

func doc(content ...document.StructuralElement) *document.Document {
	return &document.Document{Body: &document.Body{Content: content}}
}

func registryResolver(reg *slug.Registry) LinkResolver {
	return LinkResolverFunc(func(ref LinkReference) string {
		return doclink.Href(reg.Reserve(ref.TargetID, ref.SuggestedSlug))
	})
}

func TestConvertHeading(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(para("HEADING_2", run("Intro\n"))), nil)
	require.NoError(t, err)

	assert.Equal(t, "## Intro\n\n", res.Markdown)
	assert.Equal(t, "<h2>Intro</h2>\n", res.HTML)
	assert.Empty(t, res.Links)
}

func TestConvertHeadingLevels(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(
		para("HEADING_1", run("One\n")),
		para("HEADING_3", run("Three\n")),
		para("HEADING_5", run("Five\n")),
		para("", run("Body\n")),
	), nil)
	require.NoError(t, err)

	assert.Contains(t, res.HTML, "<h1>One</h1>")
	assert.Contains(t, res.HTML, "<h3>Three</h3>")
	assert.Contains(t, res.HTML, "<p>Five</p>")
	assert.Contains(t, res.HTML, "<p>Body</p>")
}

func TestConvertBullets(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(bullet(run("one\n")), bullet(run("two\n"))), nil)
	require.NoError(t, err)

	assert.Equal(t, "* one\n\n* two\n\n", res.Markdown)
	assert.Contains(t, res.HTML, "<ul>")
	assert.Contains(t, res.HTML, "one")
	assert.Contains(t, res.HTML, "two")
}

func TestConvertDocumentLink(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(para("",
		run("See "),
		linkRun("My Page", "https://docs.example.com/document/d/ABC123/edit"),
		run("\n"),
	)), nil)
	require.NoError(t, err)

	assert.Equal(t, "See [My Page](/p/my-page/)\n\n", res.Markdown)
	assert.Equal(t, "<p>See <a href=\"/p/my-page/\">My Page</a></p>\n", res.HTML)
	assert.Equal(t, []LinkReference{{TargetID: "ABC123", SuggestedSlug: "my-page"}}, res.Links)
}

func TestConvertSecondAnchorKeepsFirstSlug(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	reg := slug.NewRegistry()
	res, err := c.Convert(doc(
		para("", linkRun("My Page", "https://docs.example.com/document/d/ABC123/edit"), run("\n")),
		para("", linkRun("Something Else", "https://docs.example.com/document/u/0/d/ABC123/view"), run("\n")),
	), registryResolver(reg))
	require.NoError(t, err)

	assert.Equal(t, "[My Page](/p/my-page/)\n\n[Something Else](/p/my-page/)\n\n", res.Markdown)
	assert.Equal(t, []LinkReference{
		{TargetID: "ABC123", SuggestedSlug: "my-page"},
		{TargetID: "ABC123", SuggestedSlug: "something-else"},
	}, res.Links)
}

func TestConvertLinkKeepsSurroundingWhitespace(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(para("",
		run("A"),
		linkRun(" Linked \n", "https://docs.google.com/document/d/X/edit"),
	)), nil)
	require.NoError(t, err)
	assert.Equal(t, "A [Linked](/p/linked/) \n\n", res.Markdown)
}

func TestConvertAnchorWithBrackets(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher("docs.google.com"), nil)
	res, err := c.Convert(doc(para("",
		linkRun("a]b [draft]", "https://docs.google.com/document/d/ID1/edit"),
		run("\n"),
	)), nil)
	require.NoError(t, err)

	assert.Equal(t, `[a\]b \[draft\]](/p/a-b-draft/)`+"\n\n", res.Markdown)
	assert.Equal(t, "<p><a href=\"/p/a-b-draft/\">a]b [draft]</a></p>\n", res.HTML)
	assert.Equal(t, []LinkReference{{TargetID: "ID1", SuggestedSlug: "a-b-draft"}}, res.Links)
}

func TestConvertEmptyAnchorFallsBackToID(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(para("", linkRun("!!!", "https://docs.google.com/document/d/Raw_ID-1/edit"))), nil)
	require.NoError(t, err)
	require.Len(t, res.Links, 1)
	assert.Equal(t, "Raw_ID-1", res.Links[0].SuggestedSlug)
	assert.Contains(t, res.Markdown, "[!!!](/p/Raw_ID-1/)")
}

func TestConvertExternalLinkUnchanged(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher("docs.google.com"), nil)
	res, err := c.Convert(doc(para("",
		linkRun("Site", "https://example.com/x"),
		run(" and "),
		linkRun("Other host", "https://docs.example.com/document/d/ABC/edit"),
		run("\n"),
	)), nil)
	require.NoError(t, err)

	assert.Contains(t, res.HTML, `<a href="https://example.com/x">Site</a>`)
	assert.Contains(t, res.HTML, `<a href="https://docs.example.com/document/d/ABC/edit">Other host</a>`)
	assert.Empty(t, res.Links)
}

func TestConvertLiteralMarkdownLink(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(para("",
		run("Read [the guide]( https://docs.google.com/document/d/G1/edit?usp=sharing ) now\n"),
	)), nil)
	require.NoError(t, err)

	assert.Equal(t, "Read [the guide](/p/the-guide/) now\n\n", res.Markdown)
	assert.Contains(t, res.HTML, `<a href="/p/the-guide/">the guide</a>`)
	assert.Equal(t, []LinkReference{{TargetID: "G1", SuggestedSlug: "the-guide"}}, res.Links)
}

func TestConvertReferenceStyleLink(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(doc(
		para("", run("A [ref link][r] here\n")),
		para("", run("[r]: https://docs.google.com/document/d/R9/edit\n")),
	), nil)
	require.NoError(t, err)

	assert.Contains(t, res.HTML, `<a href="/p/ref-link/">ref link</a>`)
	assert.Equal(t, []LinkReference{{TargetID: "R9", SuggestedSlug: "ref-link"}}, res.Links)
}

func TestConvertImages(t *testing.T) {
	t.Parallel()

	d := doc(para("", image("kix.1"), image("kix.missing"), run("\n")))
	d.InlineObjects = map[string]document.InlineObject{
		"kix.1": {InlineObjectProperties: &document.InlineObjectProperties{
			EmbeddedObject: &document.EmbeddedObject{
				ImageProperties: &document.ImageProperties{ContentURI: "https://lh3.example.com/img"},
			},
		}},
	}

	c := New(doclink.NewMatcher(), nil)
	res, err := c.Convert(d, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://lh3.example.com/img"}, res.Images)
	assert.Contains(t, res.HTML, `<img src="https://lh3.example.com/img" alt="image">`)
	assert.NotContains(t, res.Markdown, "kix.missing")
}

func TestConvertMissingStructure(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	for _, d := range []*document.Document{nil, {}, {Body: &document.Body{}}} {
		res, err := c.Convert(d, nil)
		require.NoError(t, err)
		assert.Empty(t, res.Markdown)
		assert.Empty(t, res.HTML)
		assert.Empty(t, res.Links)
	}
}

func TestRenderTablesAndFootnotes(t *testing.T) {
	t.Parallel()

	c := New(doclink.NewMatcher(), nil)
	html, links, err := c.Render("| a | b |\n|---|---|\n| 1 | 2 |\n\nNote[^1]\n\n[^1]: detail\n", nil)
	require.NoError(t, err)

	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>1</td>")
	assert.Contains(t, html, "footnotes")
	assert.Empty(t, links)
}
