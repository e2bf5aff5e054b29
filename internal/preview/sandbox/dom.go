package sandbox

import (
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// DOM is a query proxy over the parsed preview markup
type DOM struct {
	doc *goquery.Document
	mu  sync.RWMutex
}

// Element is a snapshot handle on one node
type Element struct {
	sel *goquery.Selection
	dom *DOM
}

// NewDOM wraps a parsed document
func NewDOM(root *html.Node) *DOM {
	return &DOM{doc: goquery.NewDocumentFromNode(root)}
}

// Query returns every element matching a CSS selector.
// Invalid selectors match nothing.
func (d *DOM) Query(selector string) []*Element {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var out []*Element
	d.doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, &Element{sel: s, dom: d})
	})
	return out
}

// Title returns the document title
func (d *DOM) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.doc.Find("title").First().Text()
}

// Node returns the underlying markup node
func (e *Element) Node() *html.Node {
	return e.sel.Get(0)
}

// TagName returns the upper-cased tag, as browsers report it
func (e *Element) TagName() string {
	if n := e.sel.Get(0); n != nil {
		return strings.ToUpper(n.Data)
	}
	return ""
}

// ID returns the id attribute
func (e *Element) ID() string {
	return e.GetAttribute("id")
}

// ClassName returns the class attribute
func (e *Element) ClassName() string {
	return e.GetAttribute("class")
}

// TextContent returns the concatenated text of the element
func (e *Element) TextContent() string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	return e.sel.Text()
}

// InnerHTML returns the element's inner markup
func (e *Element) InnerHTML() string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	h, _ := e.sel.Html()
	return h
}

// GetAttribute retrieves attribute value
func (e *Element) GetAttribute(name string) string {
	e.dom.mu.RLock()
	defer e.dom.mu.RUnlock()
	v, _ := e.sel.Attr(name)
	return v
}

// SetAttribute sets attribute value
func (e *Element) SetAttribute(name, value string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	e.sel.SetAttr(name, value)
}

// SetTextContent replaces the element's children with text
func (e *Element) SetTextContent(text string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	e.sel.SetText(text)
}

// SetInnerHTML replaces the element's children with parsed markup
func (e *Element) SetInnerHTML(markup string) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	e.sel.SetHtml(markup)
}
