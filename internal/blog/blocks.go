// Package blog models rich blog content and renders it to HTML.
//
// A post's content is an ordered list of blocks. Each block kind is its own
// type; code that handles blocks implements Visitor, which has one method per
// kind, so a new kind cannot be added without every visitor being updated.
package blog

import (
	"encoding/json"
	"fmt"
)

type Kind string

const (
	KindSection  Kind = "section"
	KindImage    Kind = "image"
	KindQuote    Kind = "quote"
	KindList     Kind = "list"
	KindHTML     Kind = "html"
	KindMarkdown Kind = "markdown"
)

type Visitor interface {
	VisitSection(Section)
	VisitImage(Image)
	VisitQuote(Quote)
	VisitList(List)
	VisitHTML(HTML)
	VisitMarkdown(Markdown)
}

type Block interface {
	Kind() Kind
	Accept(Visitor)
}

type ListSpec struct {
	Ordered bool     `json:"ordered,omitempty"`
	Items   []string `json:"items"`
}

type ImageSpec struct {
	URL string `json:"url"`
	Alt string `json:"alt,omitempty"`
}

// Section is a run of paragraphs under an optional subheading, optionally followed by a list.
type Section struct {
	Subheading string
	Body       []string
	List       *ListSpec
}

type Image struct{ Image ImageSpec }

type Quote struct {
	Text string
	Cite string
}

type List struct {
	Subheading string
	List       ListSpec
}

// HTML is author-supplied markup. It is sanitized before rendering.
type HTML struct{ Source string }

type Markdown struct{ Source string }

func (Section) Kind() Kind  { return KindSection }
func (Image) Kind() Kind    { return KindImage }
func (Quote) Kind() Kind    { return KindQuote }
func (List) Kind() Kind     { return KindList }
func (HTML) Kind() Kind     { return KindHTML }
func (Markdown) Kind() Kind { return KindMarkdown }

func (b Section) Accept(v Visitor)  { v.VisitSection(b) }
func (b Image) Accept(v Visitor)    { v.VisitImage(b) }
func (b Quote) Accept(v Visitor)    { v.VisitQuote(b) }
func (b List) Accept(v Visitor)     { v.VisitList(b) }
func (b HTML) Accept(v Visitor)     { v.VisitHTML(b) }
func (b Markdown) Accept(v Visitor) { v.VisitMarkdown(b) }

// Blocks is the JSON form of a post's content: an array of objects
// discriminated by "type". Unknown types are dropped on decode.
type Blocks []Block

type wireBlock struct {
	Type       Kind       `json:"type"`
	Subheading string     `json:"subheading,omitempty"`
	Body       []string   `json:"body,omitempty"`
	List       *ListSpec  `json:"list,omitempty"`
	Image      *ImageSpec `json:"image,omitempty"`
	Quote      string     `json:"quote,omitempty"`
	Cite       string     `json:"cite,omitempty"`
	HTML       string     `json:"html,omitempty"`
	Markdown   string     `json:"markdown,omitempty"`
}

func (bs *Blocks) UnmarshalJSON(b []byte) error {
	var raw []wireBlock
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode content blocks: %w", err)
	}
	out := make(Blocks, 0, len(raw))
	for _, w := range raw {
		if blk, ok := w.block(); ok {
			out = append(out, blk)
		}
	}
	*bs = out
	return nil
}

func (w wireBlock) block() (Block, bool) {
	switch w.Type {
	case KindSection:
		return Section{Subheading: w.Subheading, Body: w.Body, List: w.List}, true
	case KindImage:
		var img ImageSpec
		if w.Image != nil {
			img = *w.Image
		}
		return Image{Image: img}, true
	case KindQuote:
		return Quote{Text: w.Quote, Cite: w.Cite}, true
	case KindList:
		var l ListSpec
		if w.List != nil {
			l = *w.List
		}
		return List{Subheading: w.Subheading, List: l}, true
	case KindHTML:
		return HTML{Source: w.HTML}, true
	case KindMarkdown:
		return Markdown{Source: w.Markdown}, true
	}
	return nil, false
}

func (bs Blocks) MarshalJSON() ([]byte, error) {
	enc := &wireEncoder{out: make([]wireBlock, 0, len(bs))}
	for _, b := range bs {
		b.Accept(enc)
	}
	return json.Marshal(enc.out)
}

type wireEncoder struct{ out []wireBlock }

func (e *wireEncoder) VisitSection(b Section) {
	e.out = append(e.out, wireBlock{Type: KindSection, Subheading: b.Subheading, Body: b.Body, List: b.List})
}

func (e *wireEncoder) VisitImage(b Image) {
	img := b.Image
	e.out = append(e.out, wireBlock{Type: KindImage, Image: &img})
}

func (e *wireEncoder) VisitQuote(b Quote) {
	e.out = append(e.out, wireBlock{Type: KindQuote, Quote: b.Text, Cite: b.Cite})
}

func (e *wireEncoder) VisitList(b List) {
	l := b.List
	e.out = append(e.out, wireBlock{Type: KindList, Subheading: b.Subheading, List: &l})
}

func (e *wireEncoder) VisitHTML(b HTML) {
	e.out = append(e.out, wireBlock{Type: KindHTML, HTML: b.Source})
}

func (e *wireEncoder) VisitMarkdown(b Markdown) {
	e.out = append(e.out, wireBlock{Type: KindMarkdown, Markdown: b.Source})
}
