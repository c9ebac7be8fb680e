// Package parse extracts calendar rows from the two supported sources.
// Each source has a table and an inline layout; the layout actually present
// in a document is detected from marker substrings before parsing.
package parse

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/econ-calendar/internal/model"
)

// Source names.
const (
	SourceForexFactory = "forexfactory"
	SourceInvesting    = "investing"
)

var (
	// ErrNoRows is returned by a layout whose row container is absent.
	ErrNoRows = eris.New("parse: no rows for layout")
	// ErrUnknownSource is returned when no layout exists for a source.
	ErrUnknownSource = eris.New("parse: unknown source")
)

// Context carries per-document parse state shared by all layouts.
type Context struct {
	// Now anchors dates that omit the year.
	Now time.Time
}

// Layout extracts rows for one (source, markup variant) pair.
type Layout interface {
	Name() string
	Source() string
	// Detect reports whether the layout's marker substrings appear in html.
	Detect(html string) bool
	// Parse returns the accepted rows. Malformed rows are skipped; an error
	// means the layout's container was not found at all.
	Parse(doc *goquery.Document, pc Context) ([]model.RawEvent, error)
}

// Parser dispatches a document to the layouts it contains.
type Parser struct {
	layouts  []Layout
	defaults map[string]Layout
	nowFunc  func() time.Time
}

// New creates a Parser with all built-in layouts.
func New() *Parser {
	ffTable := &ffTableLayout{}
	invTable := &invTableLayout{}
	return &Parser{
		layouts: []Layout{ffTable, &ffInlineLayout{}, invTable, &invInlineLayout{}},
		defaults: map[string]Layout{
			SourceForexFactory: ffTable,
			SourceInvesting:    invTable,
		},
		nowFunc: time.Now,
	}
}

// Layouts returns the registered layouts.
func (p *Parser) Layouts() []Layout { return p.layouts }

// DetectSource guesses which source produced html from layout markers.
// Returns "" when no layout matches.
func (p *Parser) DetectSource(html string) string {
	for _, l := range p.layouts {
		if l.Detect(html) {
			return l.Source()
		}
	}
	return ""
}

// Parse extracts rows for the given source. Layouts whose markers appear in
// the document are preferred; the source default is used only when none do.
func (p *Parser) Parse(source, html string) ([]model.RawEvent, error) {
	var candidates []Layout
	for _, l := range p.layouts {
		if l.Source() == source && l.Detect(html) {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		def, ok := p.defaults[source]
		if !ok {
			return nil, eris.Wrapf(ErrUnknownSource, "source %q", source)
		}
		candidates = []Layout{def}
	}
	return p.run(html, candidates)
}

// ParseAny parses a document of unknown origin with every layout whose
// markers it contains.
func (p *Parser) ParseAny(html string) ([]model.RawEvent, error) {
	var candidates []Layout
	for _, l := range p.layouts {
		if l.Detect(html) {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return nil, eris.New("parse: no known calendar layout in document")
	}
	return p.run(html, candidates)
}

func (p *Parser) run(html string, layouts []Layout) ([]model.RawEvent, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "parse: read document")
	}
	pc := Context{Now: p.nowFunc().UTC()}

	var (
		rows    []model.RawEvent
		lastErr error
		okCount int
	)
	for _, l := range layouts {
		got, err := l.Parse(doc, pc)
		if err != nil {
			zap.L().Debug("parse: layout produced no rows",
				zap.String("layout", l.Name()),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		okCount++
		zap.L().Debug("parse: layout parsed",
			zap.String("layout", l.Name()),
			zap.Int("rows", len(got)),
		)
		rows = append(rows, got...)
	}
	if okCount == 0 {
		return nil, lastErr
	}
	return rows, nil
}

// eachRow runs fn for every selection, isolating failures so one malformed
// row never aborts the scan.
func eachRow(sel *goquery.Selection, layout string, fn func(*goquery.Selection)) {
	sel.Each(func(i int, s *goquery.Selection) {
		defer func() {
			if r := recover(); r != nil {
				zap.L().Debug("parse: skipped malformed row",
					zap.String("layout", layout),
					zap.Int("index", i),
					zap.Any("panic", r),
				)
			}
		}()
		fn(s)
	})
}
