package blog

import (
	"encoding/json"
	"html/template"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const wordsPerMinute = 220

// ReadMinutes estimates reading time for the given text. At least one minute
// is reported whenever there is any text at all; empty input gives 0.
func ReadMinutes(parts ...string) int {
	words := 0
	for _, p := range parts {
		words += len(strings.Fields(p))
	}
	if words == 0 {
		return 0
	}
	m := int(math.Round(float64(words) / wordsPerMinute))
	if m < 1 {
		m = 1
	}
	return m
}

// Text flattens the prose of blocks for reading-time estimates: section
// paragraphs, quotes and list block items.
func Text(bs Blocks) string {
	t := &textCollector{}
	for _, b := range bs {
		b.Accept(t)
	}
	return strings.Join(t.parts, " ")
}

type textCollector struct{ parts []string }

func (t *textCollector) VisitSection(b Section) { t.parts = append(t.parts, b.Body...) }

func (t *textCollector) VisitImage(Image) {}

func (t *textCollector) VisitQuote(b Quote) { t.parts = append(t.parts, b.Text) }

func (t *textCollector) VisitList(b List) { t.parts = append(t.parts, b.List.Items...) }

func (t *textCollector) VisitHTML(HTML) {}

func (t *textCollector) VisitMarkdown(Markdown) {}

var trailingPartialWord = regexp.MustCompile(`\s+\S*$`)

// Excerpt trims s to roughly lines*perLine characters, cutting back to the
// last whitespace and appending an ellipsis. Short input is returned as is.
func Excerpt(s string, lines, perLine int) string {
	s = strings.TrimSpace(s)
	limit := lines * perLine
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	cut := string([]rune(s)[:limit])
	if trimmed := trailingPartialWord.ReplaceAllString(cut, ""); trimmed != "" {
		cut = trimmed
	}
	return cut + "…"
}

// FormatDate renders t like "March 4, 2025" in loc. A nil time gives "".
func FormatDate(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("January 2, 2006")
}

const DefaultPublisher = "Futurefoodz Team"

// Article is the schema.org metadata emitted for a post page.
type Article struct {
	Headline      string
	Description   string
	Image         string
	Author        string // organization name; DefaultPublisher when empty
	URL           string
	DatePublished *time.Time
	DateModified  *time.Time // falls back to DatePublished
}

type ldArticle struct {
	Context       string   `json:"@context"`
	Type          string   `json:"@type"`
	Headline      string   `json:"headline"`
	Description   string   `json:"description,omitempty"`
	Image         []string `json:"image,omitempty"`
	DatePublished string   `json:"datePublished,omitempty"`
	DateModified  string   `json:"dateModified,omitempty"`
	Author        ldThing  `json:"author"`
	MainEntity    *ldPage  `json:"mainEntityOfPage,omitempty"`
}

type ldThing struct {
	Type string `json:"@type"`
	Name string `json:"name"`
}

type ldPage struct {
	Type string `json:"@type"`
	ID   string `json:"@id"`
}

// JSONLD encodes a as a JSON-LD Article suitable for a
// <script type="application/ld+json"> element.
func (a Article) JSONLD() (template.JS, error) {
	doc := ldArticle{
		Context:     "https://schema.org",
		Type:        "Article",
		Headline:    a.Headline,
		Description: a.Description,
		Author:      ldThing{Type: "Organization", Name: a.Author},
	}
	if doc.Author.Name == "" {
		doc.Author.Name = DefaultPublisher
	}
	if a.URL != "" {
		doc.MainEntity = &ldPage{Type: "WebPage", ID: a.URL}
	}
	if a.Image != "" {
		doc.Image = []string{a.Image}
	}
	modified := a.DateModified
	if modified == nil {
		modified = a.DatePublished
	}
	if a.DatePublished != nil {
		doc.DatePublished = a.DatePublished.UTC().Format(time.RFC3339)
	}
	if modified != nil {
		doc.DateModified = modified.UTC().Format(time.RFC3339)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}
