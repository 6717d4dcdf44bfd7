// Package forms keeps a hidden session token field in every form of an
// HTML document, including forms inserted after the document was loaded.
package forms

import (
	"io"
	"sync"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is a parsed HTML tree with load and insertion notifications.
// Tree edits made through the Document are serialized; nodes must not be
// edited behind its back while a Sync is running.
type Document struct {
	mu        sync.Mutex
	root      *html.Node
	ready     bool
	readyFns  []func()
	observers map[int]func(*html.Node)
	nextObs   int
}

// NewDocument wraps root. The document is not ready until SetReady.
func NewDocument(root *html.Node) *Document {
	return &Document{
		root:      root,
		observers: make(map[int]func(*html.Node)),
	}
}

// Parse reads a complete document, which is ready immediately.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrapf(err, "forms.Parse")
	}
	d := NewDocument(root)
	d.ready = true
	return d, nil
}

// ParseFragment parses markup in the context of a <body> element, for
// inserting into a document.
func ParseFragment(r io.Reader) ([]*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, errors.Wrapf(err, "forms.ParseFragment")
	}
	return nodes, nil
}

func (d *Document) Root() *html.Node {
	return d.root
}

// WhenReady runs fn once the document has loaded, immediately if it
// already has.
func (d *Document) WhenReady(fn func()) {
	d.mu.Lock()
	if !d.ready {
		d.readyFns = append(d.readyFns, fn)
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()
	fn()
}

// SetReady marks the document loaded and runs the queued WhenReady
// callbacks.
func (d *Document) SetReady() {
	d.mu.Lock()
	if d.ready {
		d.mu.Unlock()
		return
	}
	d.ready = true
	fns := d.readyFns
	d.readyFns = nil
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// OnInsert registers fn to be called with every node added through
// AppendChild. The returned function unregisters it.
func (d *Document) OnInsert(fn func(*html.Node)) (cancel func()) {
	d.mu.Lock()
	id := d.nextObs
	d.nextObs++
	d.observers[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.observers, id)
		d.mu.Unlock()
	}
}

// AppendChild adds child under parent and notifies insert observers.
func (d *Document) AppendChild(parent, child *html.Node) {
	d.mu.Lock()
	detach(child)
	parent.AppendChild(child)
	observers := make([]func(*html.Node), 0, len(d.observers))
	for _, fn := range d.observers {
		observers = append(observers, fn)
	}
	d.mu.Unlock()

	for _, fn := range observers {
		fn(child)
	}
}

// RemoveChild detaches child from its parent.
func (d *Document) RemoveChild(child *html.Node) {
	d.mu.Lock()
	defer d.mu.Unlock()
	detach(child)
}

// Contains reports whether node is attached to the document.
func (d *Document) Contains(node *html.Node) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.containsLocked(node)
}

func (d *Document) containsLocked(node *html.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// Body returns the <body> element, or the root when there is none.
func (d *Document) Body() *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	if body := searchFirst(d.root, func(n *html.Node) bool { return isElement(n, atom.Body) }); body != nil {
		return body
	}
	return d.root
}

// Forms returns the document's forms in document order.
func (d *Document) Forms() []*html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return searchAll(d.root, isForm)
}

// FindForm returns the form with the given id attribute, or nil.
func (d *Document) FindForm(id string) *html.Node {
	d.mu.Lock()
	defer d.mu.Unlock()
	return searchFirst(d.root, func(n *html.Node) bool {
		return isForm(n) && getAttr(n, "id") == id
	})
}

// Edit runs fn with the tree locked.
func (d *Document) Edit(fn func(root *html.Node)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(d.root)
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return html.Render(w, d.root)
}
