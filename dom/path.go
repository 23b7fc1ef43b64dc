package dom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrBadPath is returned when a structural path cannot be parsed or does
// not resolve against the document.
var ErrBadPath = errors.New("dom: bad structural path")

// PathOf returns the structural path of n's owning element: a
// root-to-node address like /html/body/div[3]/p[2] where each step
// carries the tag and the 1-based position among the parent's element
// children. html and body are written bare (one per document). Text-node
// inputs resolve to their parent element first, so a path always points
// at an element. Returns "" for nodes outside any element tree.
func PathOf(n *html.Node) string {
	e := OwnerElement(n)
	if e == nil {
		return ""
	}
	var steps []string
	for ; e != nil && e.Type == html.ElementNode; e = e.Parent {
		switch e.DataAtom {
		case atom.Html:
			steps = append(steps, "html")
		case atom.Body:
			steps = append(steps, "body")
		default:
			steps = append(steps, fmt.Sprintf("%s[%d]", e.Data, elementIndex(e)))
		}
	}
	// Reassemble root-first.
	var sb strings.Builder
	for i := len(steps) - 1; i >= 0; i-- {
		sb.WriteByte('/')
		sb.WriteString(steps[i])
	}
	return sb.String()
}

// elementIndex returns the 1-based position of n among its parent's
// element children. Indexing element children only keeps paths stable
// when surrounding text nodes churn.
func elementIndex(n *html.Node) int {
	if n.Parent == nil {
		return 1
	}
	i := 0
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			i++
			if s == n {
				return i
			}
		}
	}
	return 1
}

// ResolvePath walks a structural path from doc down to its element. An
// indexed step tag[i] takes the i-th element child and requires the tag
// to match; a bare step takes the first element child with that tag.
func ResolvePath(doc *html.Node, path string) (*html.Node, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", ErrBadPath)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrBadPath, path)
	}
	cur := doc
	for _, step := range strings.Split(path[1:], "/") {
		if step == "" {
			continue
		}
		tag, idx, err := parseStep(step)
		if err != nil {
			return nil, err
		}
		next, err := childForStep(cur, tag, idx)
		if err != nil {
			return nil, fmt.Errorf("%w: step %q in %q: %v", ErrBadPath, step, path, err)
		}
		cur = next
	}
	if cur == doc || cur.Type != html.ElementNode {
		return nil, fmt.Errorf("%w: %q resolves to no element", ErrBadPath, path)
	}
	return cur, nil
}

// parseStep parses "div" and "div[3]" forms.
func parseStep(step string) (string, int, error) {
	idx := strings.IndexByte(step, '[')
	if idx < 0 {
		return step, 0, nil
	}
	tag := step[:idx]
	predStr := strings.TrimRight(step[idx+1:], "]")
	n, err := strconv.Atoi(predStr)
	if err != nil || n < 1 || tag == "" {
		return "", 0, fmt.Errorf("%w: step %q", ErrBadPath, step)
	}
	return tag, n, nil
}

// childForStep selects the element child matching a path step. idx 0
// means unindexed: first element child with the tag.
func childForStep(parent *html.Node, tag string, idx int) (*html.Node, error) {
	i := 0
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		i++
		if idx == 0 {
			if c.Data == tag {
				return c, nil
			}
			continue
		}
		if i == idx {
			if c.Data != tag {
				return nil, fmt.Errorf("element %d is %q, want %q", idx, c.Data, tag)
			}
			return c, nil
		}
	}
	if idx == 0 {
		return nil, fmt.Errorf("no %q child", tag)
	}
	return nil, fmt.Errorf("no element child %d", idx)
}
