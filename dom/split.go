package dom

import "golang.org/x/net/html"

// Slice is one contiguous piece of a range within a single text node.
// Start and End are byte offsets into Node.Data, End exclusive.
type Slice struct {
	Node  *html.Node
	Start int
	End   int
}

// Text returns the slice's covered text.
func (s Slice) Text() string {
	return s.Node.Data[s.Start:s.End]
}

// Split decomposes a range into per-text-node slices, one for every text
// node the range intersects, clipped at the range's own boundaries and
// covering the full node extent in between. Slices come back in document
// order and zero-length slices are dropped, so the concatenation of
// slice texts equals r.Text(). Wrapping happens one text node at a time
// downstream, which is what keeps element boundaries intact no matter
// how the selection crosses the tree.
func Split(r *Range) []Slice {
	if r == nil {
		return nil
	}
	ca := r.CommonAncestor()
	if ca == nil {
		return nil
	}
	start, ok1 := textOffsetAt(ca, r.StartContainer, r.StartOffset)
	end, ok2 := textOffsetAt(ca, r.EndContainer, r.EndOffset)
	if !ok1 || !ok2 || end <= start {
		return nil
	}

	var slices []Slice
	acc := 0
	walkText(ca, func(t *html.Node) bool {
		n := len(t.Data)
		lo, hi := start-acc, end-acc
		if lo < 0 {
			lo = 0
		}
		if hi > n {
			hi = n
		}
		if lo < hi {
			slices = append(slices, Slice{Node: t, Start: lo, End: hi})
		}
		acc += n
		return acc < end
	})
	return slices
}
