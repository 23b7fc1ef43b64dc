package dom

import "golang.org/x/net/html"

// Normalize merges runs of adjacent sibling text nodes and drops empty
// ones across the whole subtree, like Node.normalize. Repeated
// annotate/unannotate cycles fragment text nodes; normalizing after each
// removal keeps the tree from accumulating single-character shards.
// Returns the number of text nodes removed.
func Normalize(root *html.Node) int {
	removed := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; {
			if c.Type == html.TextNode {
				for c.NextSibling != nil && c.NextSibling.Type == html.TextNode {
					c.Data += c.NextSibling.Data
					n.RemoveChild(c.NextSibling)
					removed++
				}
				next := c.NextSibling
				if c.Data == "" {
					n.RemoveChild(c)
					removed++
				}
				c = next
				continue
			}
			walk(c)
			c = c.NextSibling
		}
	}
	if root != nil {
		walk(root)
	}
	return removed
}

// CountTextNodes reports the number of text nodes under root.
func CountTextNodes(root *html.Node) int {
	n := 0
	walkText(root, func(*html.Node) bool {
		n++
		return true
	})
	return n
}
