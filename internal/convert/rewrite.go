package convert

import (
	"strings"
)

// rewriteLiteralLinks scans markdown for inline links of the form
// [text](url) and rewrites those whose url is a document link. This catches
// links that arrived as literal markdown inside a text run rather than through
// the structured hyperlink field. Image syntax ![alt](url) is left alone.
func (c *Converter) rewriteLiteralLinks(md string, links *linkCollector) string {
	if !strings.Contains(md, "](") {
		return md
	}
	var out strings.Builder
	out.Grow(len(md))
	last := 0
	for i := 0; i < len(md); i++ {
		if md[i] != '[' || (i > 0 && md[i-1] == '!') {
			continue
		}
		span, ok := scanInlineLink(md, i)
		if !ok {
			continue
		}
		id, ok := c.matcher.Match(span.target)
		if !ok {
			continue
		}
		href := links.rewrite(id, span.text)
		out.WriteString(md[last:i])
		out.WriteByte('[')
		out.WriteString(span.text)
		out.WriteString("](")
		out.WriteString(destination(href))
		out.WriteByte(')')
		last = span.end
		i = span.end - 1
	}
	if last == 0 {
		return md
	}
	out.WriteString(md[last:])
	return out.String()
}

type linkSpan struct {
	text   string
	target string
	// end is the offset just past the closing parenthesis.
	end int
}

// scanInlineLink parses [text](target) starting at the '[' at offset start.
// text must be non-empty and free of ']'; whitespace around target is
// ignored; target runs to the first ')'.
func scanInlineLink(md string, start int) (linkSpan, bool) {
	closeRel := strings.IndexByte(md[start+1:], ']')
	if closeRel <= 0 {
		return linkSpan{}, false
	}
	closeBracket := start + 1 + closeRel
	if closeBracket+1 >= len(md) || md[closeBracket+1] != '(' {
		return linkSpan{}, false
	}
	targetStart := closeBracket + 2
	endRel := strings.IndexByte(md[targetStart:], ')')
	if endRel == -1 {
		return linkSpan{}, false
	}
	end := targetStart + endRel
	target := strings.TrimSpace(md[targetStart:end])
	target = strings.TrimSuffix(strings.TrimPrefix(target, "<"), ">")
	if target == "" {
		return linkSpan{}, false
	}
	return linkSpan{
		text:   md[start+1 : closeBracket],
		target: target,
		end:    end + 1,
	}, true
}
