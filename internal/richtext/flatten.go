package richtext

// Style is an inline text style carried by a span.
type Style string

const (
	StyleItalic Style = "italic"
	StyleBold   Style = "bold"
)

// BlockType distinguishes the two block-level containers the API emits.
type BlockType string

const (
	BlockParagraph  BlockType = "paragraph"
	BlockBlockquote BlockType = "blockquote"
)

// Element is one item of the flattened output, either a Block or an Image.
type Element interface {
	element()
}

// Span is a run of text with the styles and link inherited from its
// ancestors. Styles marshals as [] rather than null when empty, and Link as
// null when absent, so clients get a stable shape.
type Span struct {
	Text   string  `json:"text"`
	Styles []Style `json:"styles"`
	Link   *string `json:"link"`
}

// Block is a top-level run of spans.
type Block struct {
	Type  BlockType `json:"type"`
	Spans []Span    `json:"spans"`
}

func (Block) element() {}

// Image is an image encountered anywhere in the tree, emitted in document
// order alongside the blocks.
type Image struct {
	Type   string `json:"type"`
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

func (Image) element() {}

// Flatten walks the DOM rooted at root and returns the ordered sequence of
// blocks and images it contains. A nil or empty root yields an empty, non-nil
// slice. Blocks that would contain no spans are not emitted, and text that
// sits outside any block-level container is dropped.
func Flatten(root *Node) []Element {
	out := make([]Element, 0)
	if root != nil {
		walk(*root, &out, nil, nil, false)
	}
	return out
}

// walk returns the spans contributed by n to the nearest enclosing block and
// appends any completed blocks and images to out. styles and link are the
// inherited formatting context; inBlock reports whether an ancestor already
// opened a block-level container.
func walk(n Node, out *[]Element, styles []Style, link *string, inBlock bool) []Span {
	switch n.kind {
	case kindText:
		return []Span{newSpan(n.text, styles, link)}
	case kindElement:
	default:
		return nil
	}

	switch n.tag {
	case "br":
		// A line break ignores every inherited style and link.
		return []Span{newSpan("\n", nil, nil)}
	case "img":
		*out = append(*out, Image{
			Type:   "image",
			URL:    n.stringAttr("src"),
			Alt:    n.stringAttr("alt"),
			Width:  n.intAttr("width"),
			Height: n.intAttr("height"),
		})
		return nil
	case "i", "em", "b", "strong", "a":
		next := styles
		switch n.tag {
		case "i", "em":
			next = withStyle(styles, StyleItalic)
		case "b", "strong":
			next = withStyle(styles, StyleBold)
		}
		return walkChildren(n, out, next, linkFor(n, link), true)
	case "p", "blockquote":
		spans := walkChildren(n, out, styles, link, true)
		if inBlock {
			// Nested block containers dissolve into the outer block.
			return spans
		}
		if len(spans) == 0 {
			return nil
		}
		blockType := BlockParagraph
		if n.tag == "blockquote" {
			blockType = BlockBlockquote
		}
		*out = append(*out, Block{Type: blockType, Spans: spans})
		return nil
	default:
		// Unknown tags are transparent wrappers.
		return walkChildren(n, out, styles, link, inBlock)
	}
}

func walkChildren(n Node, out *[]Element, styles []Style, link *string, inBlock bool) []Span {
	var spans []Span
	for _, child := range n.children {
		spans = append(spans, walk(child, out, styles, link, inBlock)...)
	}
	return spans
}

func newSpan(text string, styles []Style, link *string) Span {
	if styles == nil {
		styles = []Style{}
	}
	return Span{Text: text, Styles: styles, Link: link}
}

// withStyle returns styles extended with s. The input slice is never
// mutated, so sibling subtrees cannot observe each other's styles; a style
// already present is not added twice.
func withStyle(styles []Style, s Style) []Style {
	for _, have := range styles {
		if have == s {
			return styles
		}
	}
	next := make([]Style, len(styles), len(styles)+1)
	copy(next, styles)
	return append(next, s)
}

func linkFor(n Node, inherited *string) *string {
	if href := n.stringAttr("href"); href != "" {
		return &href
	}
	return inherited
}
