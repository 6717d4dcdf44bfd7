package forms

import (
	"net/url"
	"strings"
	"sync"

	"github.com/jrsteele09/go-jwt-session/internal/errors"
	"github.com/jrsteele09/go-jwt-session/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	wiredAttr   = "data-jwt-wired"
	managedAttr = "data-jwt-managed"
)

// TokenSource supplies the token written into forms.
type TokenSource interface {
	Token() string
}

// Sync wires forms in a Document so each carries one managed hidden input
// holding the current session token.
type Sync struct {
	doc          *Document
	src          TokenSource
	fieldName    string
	legacyFields []string
	logger       zerolog.Logger

	mu           sync.Mutex
	forms        map[*html.Node]struct{}
	started      bool
	cancelInsert func()
}

type Option func(*Sync)

func WithFieldName(name string) Option {
	return func(s *Sync) {
		s.fieldName = name
	}
}

// WithLegacyFields names inputs removed from every wired form.
func WithLegacyFields(names ...string) Option {
	return func(s *Sync) {
		s.legacyFields = names
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Sync) {
		s.logger = logger
	}
}

// NewSync builds a Sync for doc. A nil doc is allowed; every operation is
// then a no-op.
func NewSync(doc *Document, src TokenSource, options ...Option) *Sync {
	s := &Sync{
		doc:          doc,
		src:          src,
		fieldName:    "jwt_token",
		legacyFields: []string{"moquiSessionToken", "SessionToken"},
		logger:       log.Logger,
		forms:        make(map[*html.Node]struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Start wires the document's forms once it is ready and every form inserted
// later. Calling Start twice has no further effect.
func (s *Sync) Start() {
	if s.doc == nil {
		return
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.doc.WhenReady(s.WireAll)
	cancel := s.doc.OnInsert(s.onInsert)

	s.mu.Lock()
	s.cancelInsert = cancel
	s.mu.Unlock()
}

// Stop ends insertion tracking.
func (s *Sync) Stop() {
	s.mu.Lock()
	cancel := s.cancelInsert
	s.cancelInsert = nil
	s.started = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (s *Sync) onInsert(node *html.Node) {
	if node.Type != html.ElementNode {
		return
	}
	for _, form := range searchAll(node, isForm) {
		s.Wire(form)
	}
}

// WireAll wires every form in the document then refreshes all tracked
// forms.
func (s *Sync) WireAll() {
	if s.doc == nil {
		return
	}
	for _, form := range s.doc.Forms() {
		s.Wire(form)
	}
	s.UpdateAll()
}

// Wire marks and tracks form, removes its legacy token inputs and makes sure
// it holds the managed input. A form that arrives already marked, as from a
// previously rendered page, is tracked and brought up to date too.
func (s *Sync) Wire(form *html.Node) {
	if s.doc == nil || !isForm(form) {
		return
	}
	token := s.src.Token()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Edit(func(*html.Node) {
		if getAttr(form, wiredAttr) != "true" {
			setAttr(form, wiredAttr, "true")
		}
		s.forms[form] = struct{}{}
		s.removeLegacyInputs(form)
		s.ensureInput(form, token)
	})
}

// UpdateAll drops tracked forms that are no longer in the document and
// writes the current token into the rest.
func (s *Sync) UpdateAll() {
	if s.doc == nil {
		return
	}
	token := s.src.Token()

	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	s.doc.Edit(func(*html.Node) {
		for form := range s.forms {
			if !s.doc.containsLocked(form) {
				delete(s.forms, form)
				pruned++
				continue
			}
			s.removeLegacyInputs(form)
			s.ensureInput(form, token)
		}
	})
	if pruned > 0 {
		s.logger.Debug().Int("pruned", pruned).Msg("Dropped detached forms")
	}
}

// OnTokenUpdate is a session.Listener that resyncs every form.
func (s *Sync) OnTokenUpdate(session.TokenUpdate) {
	s.UpdateAll()
}

// Submit prepares form the way a submit event would and returns the values
// the form would post. The form is wired if it was not already.
func (s *Sync) Submit(form *html.Node) (url.Values, error) {
	if s.doc == nil {
		return nil, errors.ErrNoDocument
	}
	if !isForm(form) {
		return nil, errors.Wrapf(errors.ErrInvalidRequest, "Sync.Submit: not a form element")
	}

	s.Wire(form)
	s.UpdateAll()

	var values url.Values
	s.doc.Edit(func(*html.Node) {
		values = serialize(form)
	})
	return values, nil
}

// Tracked is the number of forms currently tracked.
func (s *Sync) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.forms)
}

// removeLegacyInputs requires the document lock.
func (s *Sync) removeLegacyInputs(form *html.Node) {
	if len(s.legacyFields) == 0 {
		return
	}
	for _, input := range searchAll(form, isInputNamed(s.legacyFields...)) {
		detach(input)
	}
}

// ensureInput requires the document lock.
func (s *Sync) ensureInput(form *html.Node, token string) *html.Node {
	input := searchFirst(form, func(n *html.Node) bool {
		return isInputNamed(s.fieldName)(n) && getAttr(n, managedAttr) == "true"
	})
	if input == nil {
		input = &html.Node{
			Type:     html.ElementNode,
			Data:     "input",
			DataAtom: atom.Input,
			Attr: []html.Attribute{
				{Key: "type", Val: "hidden"},
				{Key: "name", Val: s.fieldName},
				{Key: managedAttr, Val: "true"},
			},
		}
		form.AppendChild(input)
	}
	setAttr(input, "value", token)
	return input
}

// serialize collects the successful controls of form.
func serialize(form *html.Node) url.Values {
	values := url.Values{}
	for _, control := range searchAll(form, func(n *html.Node) bool {
		return isElement(n, atom.Input) || isElement(n, atom.Textarea) || isElement(n, atom.Select)
	}) {
		name := getAttr(control, "name")
		if name == "" || hasAttr(control, "disabled") {
			continue
		}

		switch control.DataAtom {
		case atom.Textarea:
			values.Add(name, textOf(control))
		case atom.Select:
			for _, v := range selectedOptions(control) {
				values.Add(name, v)
			}
		default:
			switch strings.ToLower(getAttr(control, "type")) {
			case "submit", "button", "reset", "image", "file":
				continue
			case "checkbox", "radio":
				if !hasAttr(control, "checked") {
					continue
				}
				value := getAttr(control, "value")
				if !hasAttr(control, "value") {
					value = "on"
				}
				values.Add(name, value)
			default:
				values.Add(name, getAttr(control, "value"))
			}
		}
	}
	return values
}

func selectedOptions(sel *html.Node) []string {
	options := searchAll(sel, func(n *html.Node) bool { return isElement(n, atom.Option) })
	optionValue := func(n *html.Node) string {
		if hasAttr(n, "value") {
			return getAttr(n, "value")
		}
		return strings.TrimSpace(textOf(n))
	}

	var selected []string
	for _, opt := range options {
		if hasAttr(opt, "selected") {
			selected = append(selected, optionValue(opt))
		}
	}
	if len(selected) == 0 && len(options) > 0 && !hasAttr(sel, "multiple") {
		selected = append(selected, optionValue(options[0]))
	}
	return selected
}
