package transform

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/hrygo/subjectindex/plugin/project"
)

// MarkdownStripper reduces Markdown to its readable text. Inline markup,
// link targets and raw HTML are dropped; blocks are separated by blank lines.
type MarkdownStripper struct {
	md goldmark.Markdown
}

func newMarkdownStripper(*project.Project, Args, *Dependencies) (Transform, error) {
	return NewMarkdownStripper(), nil
}

// NewMarkdownStripper creates a stripper with the CommonMark parser.
func NewMarkdownStripper() *MarkdownStripper {
	return &MarkdownStripper{md: goldmark.New()}
}

func (m *MarkdownStripper) Name() string { return "strip_markdown" }

func (m *MarkdownStripper) Transform(input string) string {
	source := []byte(input)
	doc := m.md.Parser().Parse(text.NewReader(source))

	var blocks []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			blocks = append(blocks, s)
		}
		current.Reset()
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				current.Write(node.Segment.Value(source))
				if node.SoftLineBreak() || node.HardLineBreak() {
					current.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				current.Write(node.Value)
			}
		case *ast.AutoLink:
			if entering {
				current.Write(node.Label(source))
			}
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					segment := lines.At(i)
					current.Write(segment.Value(source))
				}
				flush()
			}
			return ast.WalkSkipChildren, nil
		case *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		default:
			if !entering && n.Type() == ast.TypeBlock {
				flush()
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return strings.Join(blocks, "\n\n")
}
