package blog

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var blockTemplates = template.Must(template.New("blocks").Parse(`
{{define "list"}}{{if .Ordered}}<ol>{{range .Items}}<li>{{.}}</li>{{end}}</ol>{{else}}<ul>{{range .Items}}<li>{{.}}</li>{{end}}</ul>{{end}}{{end}}
{{define "section"}}<section id="{{.ID}}" class="post-section">{{with .B.Subheading}}<h2>{{.}}</h2>{{end}}{{range .B.Body}}<p>{{.}}</p>{{end}}{{with .B.List}}{{template "list" .}}{{end}}</section>{{end}}
{{define "image"}}<figure class="post-figure"><img src="{{.Image.URL}}" alt="{{.Image.Alt}}" loading="lazy">{{with .Image.Alt}}<figcaption>{{.}}</figcaption>{{end}}</figure>{{end}}
{{define "quote"}}<blockquote class="post-quote"><p>{{.Text}}</p>{{with .Cite}}<cite>{{.}}</cite>{{end}}</blockquote>{{end}}
{{define "listblock"}}<div class="post-list">{{with .Subheading}}<h3>{{.}}</h3>{{end}}{{template "list" .List}}</div>{{end}}
{{define "raw"}}<div class="post-html">{{.}}</div>{{end}}
`))

// Renderer turns blocks into HTML. It is safe for concurrent use.
type Renderer struct {
	policy *bluemonday.Policy
	md     goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		policy: bluemonday.UGCPolicy(),
		md:     goldmark.New(),
	}
}

// Render writes every block in order. Author html and markdown output pass
// through the sanitizer; everything else is escaped by the templates.
func (r *Renderer) Render(bs Blocks) (template.HTML, error) {
	w := &htmlWriter{r: r}
	for i, b := range bs {
		w.index = i
		b.Accept(w)
		if w.err != nil {
			return "", w.err
		}
	}
	return template.HTML(w.buf.String()), nil
}

// Sanitize applies the UGC policy to untrusted markup.
func (r *Renderer) Sanitize(s string) template.HTML {
	return template.HTML(r.policy.Sanitize(s))
}

type htmlWriter struct {
	r     *Renderer
	buf   bytes.Buffer
	index int // position of the block being visited
	err   error
}

func (w *htmlWriter) exec(name string, data any) {
	if w.err != nil {
		return
	}
	w.err = blockTemplates.ExecuteTemplate(&w.buf, name, data)
}

func (w *htmlWriter) VisitSection(b Section) {
	w.exec("section", struct {
		ID string
		B  Section
	}{sectionID(w.index), b})
}

func (w *htmlWriter) VisitImage(b Image) {
	if b.Image.URL == "" {
		return
	}
	w.exec("image", b)
}

func (w *htmlWriter) VisitQuote(b Quote) { w.exec("quote", b) }

func (w *htmlWriter) VisitList(b List) { w.exec("listblock", b) }

func (w *htmlWriter) VisitHTML(b HTML) {
	w.exec("raw", w.r.Sanitize(b.Source))
}

func (w *htmlWriter) VisitMarkdown(b Markdown) {
	if w.err != nil {
		return
	}
	var out bytes.Buffer
	if err := w.r.md.Convert([]byte(b.Source), &out); err != nil {
		w.err = err
		return
	}
	w.exec("raw", w.r.Sanitize(out.String()))
}

func sectionID(index int) string { return "sec-" + strconv.Itoa(index) }

// Headings lists section subheadings with their anchor ids, in render order.
func Headings(bs Blocks) []Heading {
	c := &headingCollector{}
	for i, b := range bs {
		c.index = i
		b.Accept(c)
	}
	return c.out
}

type Heading struct {
	ID    string
	Title string
}

type headingCollector struct {
	out   []Heading
	index int
}

func (c *headingCollector) VisitSection(b Section) {
	if b.Subheading != "" {
		c.out = append(c.out, Heading{ID: sectionID(c.index), Title: b.Subheading})
	}
}

func (c *headingCollector) VisitImage(Image)       {}
func (c *headingCollector) VisitQuote(Quote)       {}
func (c *headingCollector) VisitList(List)         {}
func (c *headingCollector) VisitHTML(HTML)         {}
func (c *headingCollector) VisitMarkdown(Markdown) {}
