// Package document models the subset of a Google Docs document the site
// generator consumes. The JSON tags follow the Docs API v1 wire format so a
// document can be decoded straight from an API response or a fixture file.
//
// Every pointer field is optional. Accessors never fail on missing structure;
// they return the zero value instead.
package document

// Document is one fetched document. It is treated as read-only.
type Document struct {
	DocumentID    string                  `json:"documentId,omitempty"`
	Title         string                  `json:"title,omitempty"`
	Body          *Body                   `json:"body,omitempty"`
	InlineObjects map[string]InlineObject `json:"inlineObjects,omitempty"`
}

// Body holds the ordered structural elements of a document.
type Body struct {
	Content []StructuralElement `json:"content,omitempty"`
}

// StructuralElement is one top-level element. Only paragraphs are modeled.
type StructuralElement struct {
	Paragraph *Paragraph `json:"paragraph,omitempty"`
}

// Paragraph is a run of inline elements with optional list and style metadata.
type Paragraph struct {
	Bullet         *Bullet            `json:"bullet,omitempty"`
	ParagraphStyle *ParagraphStyle    `json:"paragraphStyle,omitempty"`
	Elements       []ParagraphElement `json:"elements,omitempty"`
}

// Bullet marks a paragraph as a list item.
type Bullet struct {
	ListID       string `json:"listId,omitempty"`
	NestingLevel int64  `json:"nestingLevel,omitempty"`
}

// ParagraphStyle carries the named style, e.g. HEADING_2.
type ParagraphStyle struct {
	NamedStyleType string `json:"namedStyleType,omitempty"`
}

// ParagraphElement is either a text run or an inline object placeholder.
type ParagraphElement struct {
	TextRun             *TextRun             `json:"textRun,omitempty"`
	InlineObjectElement *InlineObjectElement `json:"inlineObjectElement,omitempty"`
}

// TextRun is a run of text sharing one style.
type TextRun struct {
	Content   string     `json:"content,omitempty"`
	TextStyle *TextStyle `json:"textStyle,omitempty"`
}

// TextStyle is the subset of run styling that matters here.
type TextStyle struct {
	Link *Link `json:"link,omitempty"`
}

// Link is a hyperlink target.
type Link struct {
	URL string `json:"url,omitempty"`
}

// InlineObjectElement references an entry of Document.InlineObjects.
type InlineObjectElement struct {
	InlineObjectID string `json:"inlineObjectId,omitempty"`
}

// InlineObject is an embedded object such as an image.
type InlineObject struct {
	InlineObjectProperties *InlineObjectProperties `json:"inlineObjectProperties,omitempty"`
}

// InlineObjectProperties wraps the embedded object.
type InlineObjectProperties struct {
	EmbeddedObject *EmbeddedObject `json:"embeddedObject,omitempty"`
}

// EmbeddedObject describes the embedded content.
type EmbeddedObject struct {
	Title           string           `json:"title,omitempty"`
	Description     string           `json:"description,omitempty"`
	ImageProperties *ImageProperties `json:"imageProperties,omitempty"`
}

// ImageProperties carries the resolvable image URI.
type ImageProperties struct {
	ContentURI string `json:"contentUri,omitempty"`
	SourceURI  string `json:"sourceUri,omitempty"`
}

// ImageURI resolves an inline object id to its content URI. It returns ""
// when the id is unknown or the object is not an image.
func (d *Document) ImageURI(objectID string) string {
	if d == nil || objectID == "" {
		return ""
	}
	obj, ok := d.InlineObjects[objectID]
	if !ok || obj.InlineObjectProperties == nil {
		return ""
	}
	eo := obj.InlineObjectProperties.EmbeddedObject
	if eo == nil || eo.ImageProperties == nil {
		return ""
	}
	return eo.ImageProperties.ContentURI
}

// Paragraphs returns the body paragraphs in document order.
func (d *Document) Paragraphs() []*Paragraph {
	if d == nil || d.Body == nil {
		return nil
	}
	out := make([]*Paragraph, 0, len(d.Body.Content))
	for _, el := range d.Body.Content {
		if el.Paragraph != nil {
			out = append(out, el.Paragraph)
		}
	}
	return out
}
