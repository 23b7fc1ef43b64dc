package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector is a parsed simple CSS selector. Supported forms:
//   - tag: "mark", "div"
//   - .class: ".dommark-ui"
//   - #id: "#dommark-console"
//   - [attr] / [attr=val]: "[data-dommark-ui]"
//   - combinations: "div.panel", "span[data-x=y]"
//
// Enough for self-identification checks; no combinators.
type Selector struct {
	Tag     string
	ID      string
	Class   string
	AttrKey string
	AttrVal string
}

// ParseSelector parses a simple selector string.
func ParseSelector(sel string) Selector {
	var s Selector

	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.AttrKey = attrPart[:eqIdx]
			s.AttrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.AttrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.ID = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.Class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.Tag = sel
	return s
}

// Matches reports whether an element node matches the selector.
func (s Selector) Matches(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if s.Tag != "" && n.Data != s.Tag {
		return false
	}
	if s.ID != "" && GetAttr(n, "id") != s.ID {
		return false
	}
	if s.Class != "" {
		found := false
		for _, c := range strings.Fields(GetAttr(n, "class")) {
			if c == s.Class {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.AttrKey != "" {
		if s.AttrVal != "" {
			if GetAttr(n, s.AttrKey) != s.AttrVal {
				return false
			}
		} else if !HasAttr(n, s.AttrKey) {
			return false
		}
	}
	return true
}

// MatchesAny reports whether n matches at least one of the selectors.
func MatchesAny(n *html.Node, selectors []Selector) bool {
	for _, s := range selectors {
		if s.Matches(n) {
			return true
		}
	}
	return false
}

// Closest walks from n up through its ancestors and returns the first
// node matching any selector, nil if none does.
func Closest(n *html.Node, selectors []Selector) *html.Node {
	for ; n != nil; n = n.Parent {
		if MatchesAny(n, selectors) {
			return n
		}
	}
	return nil
}

// ParseSelectors parses a list of selector strings.
func ParseSelectors(raw []string) []Selector {
	out := make([]Selector, 0, len(raw))
	for _, r := range raw {
		out = append(out, ParseSelector(r))
	}
	return out
}
