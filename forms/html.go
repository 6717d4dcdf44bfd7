package forms

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func isElement(node *html.Node, a atom.Atom) bool {
	return node != nil && node.Type == html.ElementNode && node.DataAtom == a
}

func isForm(node *html.Node) bool {
	return isElement(node, atom.Form)
}

func isInputNamed(names ...string) func(*html.Node) bool {
	return func(node *html.Node) bool {
		if !isElement(node, atom.Input) {
			return false
		}
		name := getAttr(node, "name")
		for _, n := range names {
			if name == n {
				return true
			}
		}
		return false
	}
}

// searchAll returns every node under (and including) node matching pred, in
// document order.
func searchAll(node *html.Node, pred func(*html.Node) bool) (results []*html.Node) {
	if pred(node) {
		results = append(results, node)
	}

	for child := node.FirstChild; child != nil; child = child.NextSibling {
		results = append(results, searchAll(child, pred)...)
	}

	return
}

func searchFirst(node *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(node) {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := searchFirst(child, pred); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(node *html.Node, attrName string) string {
	for _, attr := range node.Attr {
		if attr.Key == attrName {
			return attr.Val
		}
	}

	return ""
}

func hasAttr(node *html.Node, attrName string) bool {
	for _, attr := range node.Attr {
		if attr.Key == attrName {
			return true
		}
	}
	return false
}

func setAttr(node *html.Node, attrName, value string) {
	for i, attr := range node.Attr {
		if attr.Key == attrName {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: attrName, Val: value})
}

func detach(node *html.Node) {
	if node.Parent != nil {
		node.Parent.RemoveChild(node)
	}
}

func textOf(node *html.Node) string {
	if node.Type == html.TextNode {
		return node.Data
	}

	var b strings.Builder
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		b.WriteString(textOf(child))
	}
	return b.String()
}

// Action is the URL a form submits to, "/" when it has no action.
func Action(form *html.Node) string {
	if action := strings.TrimSpace(getAttr(form, "action")); action != "" {
		return action
	}
	return "/"
}
