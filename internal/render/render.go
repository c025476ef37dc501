package render

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	gohumanize "github.com/dustin/go-humanize"

	"jvsview/internal/humanize"
	"jvsview/internal/models"
)

// dateLayout mirrors JavaScript's Date.prototype.toDateString.
const dateLayout = "Mon Jan 02 2006"

const invalidDate = "Invalid Date"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Row is one display line of the catalog table.
type Row struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Duration string `json:"duration"`
	Live     string `json:"live"`
	PlayID   string `json:"play_id"`
	Created  string `json:"created,omitempty"`
}

// PageData feeds the full catalog page.
type PageData struct {
	Title           string
	Rows            []Row
	RefreshInterval time.Duration
}

type Renderer struct {
	loc    *time.Location
	locale humanize.Locale
	now    func() time.Time
}

type Option func(*Renderer)

// WithLocation sets the time zone used to print creation dates.
func WithLocation(loc *time.Location) Option {
	return func(r *Renderer) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func WithLocale(tag string) Option {
	return func(r *Renderer) { r.locale, _ = humanize.Lookup(tag) }
}

func WithClock(now func() time.Time) Option {
	return func(r *Renderer) { r.now = now }
}

func New(opts ...Option) *Renderer {
	r := &Renderer{loc: time.UTC, now: time.Now}
	r.locale, _ = humanize.Lookup("en")
	for _, o := range opts {
		o(r)
	}
	return r
}

// Rows projects streams into display rows, one per entry, in input order.
func (r *Renderer) Rows(streams []models.StreamSummary) []Row {
	rows := make([]Row, 0, len(streams))
	for _, s := range streams {
		rows = append(rows, r.row(s))
	}
	return rows
}

func (r *Renderer) row(s models.StreamSummary) Row {
	live := "No"
	if s.IsLive {
		live = "Yes"
	}
	row := Row{
		ID:       s.ID,
		Title:    s.Title,
		Summary:  s.Description + " (" + r.date(s.CreationDate) + " / " + s.StreamType + ")",
		Duration: r.locale.Duration(s.Duration()),
		Live:     live,
		PlayID:   s.ID,
	}
	if !s.CreationDate.IsZero() {
		row.Created = "created " + gohumanize.RelTime(s.CreationDate, r.now(), "ago", "from now")
	}
	return row
}

func (r *Renderer) date(t time.Time) string {
	if t.IsZero() {
		return invalidDate
	}
	return t.In(r.loc).Format(dateLayout)
}

// Table writes the <tr> fragment for rows.
func (r *Renderer) Table(w io.Writer, rows []Row) error {
	return templates.ExecuteTemplate(w, "rows", rows)
}

// TableString renders the fragment to a string, for event payloads.
func (r *Renderer) TableString(rows []Row) (string, error) {
	var buf bytes.Buffer
	if err := r.Table(&buf, rows); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Page writes the complete catalog page.
func (r *Renderer) Page(w io.Writer, data PageData) error {
	return templates.ExecuteTemplate(w, "page", data)
}
