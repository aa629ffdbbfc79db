package oppocloud

import (
	"strings"

	"golang.org/x/net/html"
)

// parseDetailMarkup pulls the device fields out of a detail panel's
// markup. The panel is a small fragment, so a full parse is cheap and
// keeps the field lookups tolerant of wrapper elements moving around
// between console revisions.
func parseDetailMarkup(markup string) (rawDevice, error) {
	var raw rawDevice

	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return raw, wrapKind(ErrClient, "parsing device detail markup", err)
	}

	walkNodes(doc, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		switch {
		case hasClass(n, "device-name"):
			if span := lastChildElement(n, "span"); span != nil {
				raw.DeviceName = strings.TrimSpace(nodeText(span))
			}
		case hasClass(n, "device-dian"):
			if hasClass(n, "online") {
				raw.OnlineStatus = 1
			}
		case hasClass(n, "device-address"):
			raw.POI = strings.TrimSpace(nodeText(n))
		case hasClass(n, "device-battery"):
			raw.Battery = strings.TrimSpace(nodeText(n))
		case hasClass(n, "device-coordinate"):
			raw.Coordinate = strings.TrimSpace(nodeText(n))
		}
	})

	return raw, nil
}

func walkNodes(n *html.Node, visit func(*html.Node)) {
	visit(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkNodes(c, visit)
	}
}

func attrValue(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func lastChildElement(n *html.Node, tag string) *html.Node {
	var last *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			last = c
		}
	}
	return last
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	walkNodes(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	})
	return b.String()
}
