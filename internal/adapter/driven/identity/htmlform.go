package identity

import (
	"bytes"

	"golang.org/x/net/html"
)

// The scraping surface of the whole package: two narrow extractors over
// parsed HTML. Provider markup drift lands here and nowhere else.

// extractHiddenField returns the value attribute of the first <input> whose
// name attribute equals name. The second return is false when the input or
// its value attribute is absent, or the page does not parse.
func extractHiddenField(page []byte, name string) (string, bool) {
	return extractAttr(page, "input", "name", name, "value")
}

// extractFormAction returns the action attribute of the first <form> whose
// name attribute equals name.
func extractFormAction(page []byte, name string) (string, bool) {
	return extractAttr(page, "form", "name", name, "action")
}

// extractAttr finds the first element of the given tag carrying
// matchAttr=matchValue and returns its wantAttr attribute.
func extractAttr(page []byte, tag, matchAttr, matchValue, wantAttr string) (string, bool) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	var walk func(*html.Node) (string, bool)
	walk = func(n *html.Node) (string, bool) {
		if n.Type == html.ElementNode && n.Data == tag {
			matched := false
			value := ""
			found := false
			for _, a := range n.Attr {
				switch a.Key {
				case matchAttr:
					matched = a.Val == matchValue
				case wantAttr:
					value = a.Val
					found = true
				}
			}
			if matched && found {
				return value, true
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if v, ok := walk(c); ok {
				return v, true
			}
		}
		return "", false
	}

	return walk(root)
}
