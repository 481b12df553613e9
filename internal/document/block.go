package document

// Kind classifies a block for markup emission.
type Kind int

// Block kinds.
const (
	KindPlain Kind = iota
	KindHeading1
	KindHeading2
	KindHeading3
	KindBulletItem
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindHeading1:
		return "heading-1"
	case KindHeading2:
		return "heading-2"
	case KindHeading3:
		return "heading-3"
	case KindBulletItem:
		return "bullet-item"
	default:
		return "plain"
	}
}

// Inline is one element of a block: a text run or an image reference.
type Inline struct {
	// Text and LinkURL are set for text runs.
	Text    string
	LinkURL string
	// ObjectID and ImageURI are set for image references. ImageURI is empty
	// when the object could not be resolved.
	ObjectID string
	ImageURI string
}

// IsImage reports whether the inline is an image reference.
func (i Inline) IsImage() bool {
	return i.ObjectID != ""
}

// Block is one paragraph-equivalent unit.
type Block struct {
	Kind    Kind
	Inlines []Inline
}

// KindOf derives a block kind from paragraph metadata. The bullet flag wins
// over any heading style; unknown styles are plain.
func KindOf(p *Paragraph) Kind {
	if p == nil {
		return KindPlain
	}
	if p.Bullet != nil {
		return KindBulletItem
	}
	if p.ParagraphStyle == nil {
		return KindPlain
	}
	switch p.ParagraphStyle.NamedStyleType {
	case "HEADING_1":
		return KindHeading1
	case "HEADING_2":
		return KindHeading2
	case "HEADING_3":
		return KindHeading3
	default:
		return KindPlain
	}
}

// Blocks flattens the document body into blocks, joining inline object
// placeholders with the inline object side table.
func (d *Document) Blocks() []Block {
	paras := d.Paragraphs()
	blocks := make([]Block, 0, len(paras))
	for _, p := range paras {
		b := Block{Kind: KindOf(p)}
		for _, el := range p.Elements {
			switch {
			case el.TextRun != nil:
				in := Inline{Text: el.TextRun.Content}
				if ts := el.TextRun.TextStyle; ts != nil && ts.Link != nil {
					in.LinkURL = ts.Link.URL
				}
				b.Inlines = append(b.Inlines, in)
			case el.InlineObjectElement != nil && el.InlineObjectElement.InlineObjectID != "":
				id := el.InlineObjectElement.InlineObjectID
				b.Inlines = append(b.Inlines, Inline{ObjectID: id, ImageURI: d.ImageURI(id)})
			}
		}
		blocks = append(blocks, b)
	}
	return blocks
}
