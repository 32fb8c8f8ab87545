package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// BlockKind classifies a speakable block.
type BlockKind int

const (
	// KindParagraph is body prose.
	KindParagraph BlockKind = iota
	// KindHeading is a section heading.
	KindHeading
	// KindListItem is one bullet or numbered item.
	KindListItem
	// KindBlockquote is quoted prose.
	KindBlockquote
	// KindCode is a fenced or indented code block.
	KindCode
)

// String returns the string representation of the block kind.
func (k BlockKind) String() string {
	switch k {
	case KindParagraph:
		return "paragraph"
	case KindHeading:
		return "heading"
	case KindListItem:
		return "list item"
	case KindBlockquote:
		return "blockquote"
	case KindCode:
		return "code"
	default:
		return "unknown"
	}
}

// Block is one speakable unit of the document, read in order.
type Block struct {
	Kind  BlockKind
	Text  string
	Level int // heading level, 0 otherwise
}

// ExtractOptions tunes block extraction.
type ExtractOptions struct {
	// SkipCode drops code blocks, which rarely read well aloud.
	SkipCode bool
}

// Blocks parses the document body and returns its speakable blocks in
// reading order. Inline markup is flattened to plain text; links read as
// their label, not their target.
func (d *Document) Blocks(opts ExtractOptions) []Block {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	source := []byte(d.Body)
	root := md.Parser().Parse(text.NewReader(source))

	var blocks []Block
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			blocks = appendBlock(blocks, Block{
				Kind:  KindHeading,
				Text:  inlineText(node, source),
				Level: node.Level,
			})
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph:
			// Paragraphs inside list items and quotes are captured by
			// their containers.
			if insideContainer(node) {
				return ast.WalkContinue, nil
			}
			blocks = appendBlock(blocks, Block{Kind: KindParagraph, Text: inlineText(node, source)})
			return ast.WalkSkipChildren, nil

		case *ast.ListItem:
			// Keep walking so nested lists produce their own blocks.
			blocks = appendBlock(blocks, Block{Kind: KindListItem, Text: containerText(node, source)})
			return ast.WalkContinue, nil

		case *ast.Blockquote:
			blocks = appendBlock(blocks, Block{Kind: KindBlockquote, Text: containerText(node, source)})
			return ast.WalkContinue, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if opts.SkipCode {
				return ast.WalkSkipChildren, nil
			}
			blocks = appendBlock(blocks, Block{Kind: KindCode, Text: codeText(n, source)})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func appendBlock(blocks []Block, b Block) []Block {
	b.Text = strings.TrimSpace(b.Text)
	if b.Text == "" {
		return blocks
	}
	return append(blocks, b)
}

func insideContainer(n ast.Node) bool {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.(type) {
		case *ast.ListItem, *ast.Blockquote:
			return true
		}
	}
	return false
}

// inlineText flattens a block's inline children to plain text.
func inlineText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.AutoLink:
			sb.Write(t.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

// containerText joins the text of a container's child blocks with spaces,
// so a multi-paragraph list item reads as one unit.
func containerText(n ast.Node, source []byte) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch c.(type) {
		case *ast.List, *ast.Blockquote:
			// Nested containers surface as their own blocks.
			continue
		}
		if t := strings.TrimSpace(inlineText(c, source)); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func codeText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}
