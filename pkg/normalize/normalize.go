package normalize

import (
	"regexp"
	"strings"
)

// Pass names, reported in Result.Applied.
const (
	PassTruncate   = "truncate"
	PassDate       = "date"
	PassTimestamp  = "timestamp"
	PassDirectives = "directives"
	PassLooker     = "looker"
	PassTemplates  = "templates"
)

var (
	dateWord      = regexp.MustCompile(`(?i)\bdate\b`)
	timestampWord = regexp.MustCompile(`(?i)\btimestamp\b`)
	spacedDate    = regexp.MustCompile(`\sdate\s`)
	encodeClause  = regexp.MustCompile(`(?i)\sencode [a-zA-Z]*`)
	placeholder   = regexp.MustCompile(`\$\{([^}]+)\}`)
)

// Options toggles individual passes.
type Options struct {
	// Truncate cuts the text at the first TruncateMarkers match.
	Truncate        bool
	TruncateMarkers []string

	// ReservedWords escapes whole-word date and timestamp.
	ReservedWords bool

	// SpacedDateOnly restricts escaping to whitespace-delimited lower-case
	// date and leaves timestamp alone.
	SpacedDateOnly bool

	StripDirectives bool
	Templates       bool
}

// DefaultOptions enables every pass.
func DefaultOptions() Options {
	return Options{
		Truncate:        true,
		TruncateMarkers: []string{defaultTruncMarker},
		ReservedWords:   true,
		StripDirectives: true,
		Templates:       true,
	}
}

// LightOptions is the reduced pass set used ahead of the token-scan parser.
func LightOptions() Options {
	return Options{
		Truncate:        true,
		TruncateMarkers: []string{defaultTruncMarker},
		ReservedWords:   true,
		SpacedDateOnly:  true,
		StripDirectives: true,
	}
}

// Pass is a single text rewrite.
type Pass interface {
	Name() string
	// Apply returns the rewritten text, recording any sentinel it introduced.
	Apply(sql string, tokens *TokenMap) string
}

// Result is the outcome of running a Pipeline.
type Result struct {
	SQL    string
	Tokens *TokenMap
	// Applied lists the passes that changed the text, in order.
	Applied []string
}

// Rewritten reports whether any pass changed the text.
func (r Result) Rewritten() bool {
	return len(r.Applied) > 0
}

// Truncated reports whether the truncate pass fired.
func (r Result) Truncated() bool {
	for _, name := range r.Applied {
		if name == PassTruncate {
			return true
		}
	}
	return false
}

// Pipeline runs passes in order.
type Pipeline struct {
	passes []Pass
}

// NewPipeline builds the pass list described by opts.
func NewPipeline(opts Options) *Pipeline {
	p := &Pipeline{}
	if opts.Truncate {
		if pass := newTruncatePass(opts.TruncateMarkers); pass != nil {
			p.passes = append(p.passes, pass)
		}
	}
	if opts.ReservedWords {
		if opts.SpacedDateOnly {
			p.passes = append(p.passes, &wordPass{name: PassDate, re: spacedDate, sentinel: " " + DateSentinel + " ", token: DateSentinel, original: "date"})
		} else {
			p.passes = append(p.passes,
				&wordPass{name: PassDate, re: dateWord, sentinel: DateSentinel, token: DateSentinel, original: "date"},
				&wordPass{name: PassTimestamp, re: timestampWord, sentinel: TimestampSentinel, token: TimestampSentinel, original: "timestamp"},
			)
		}
	}
	if opts.StripDirectives {
		p.passes = append(p.passes, directivePass{})
	}
	if opts.Templates {
		p.passes = append(p.passes, lookerPass{}, templatePass{})
	}
	return p
}

// Passes returns the names of the configured passes.
func (p *Pipeline) Passes() []string {
	names := make([]string, len(p.passes))
	for i, pass := range p.passes {
		names[i] = pass.Name()
	}
	return names
}

// Run applies every pass to sql.
func (p *Pipeline) Run(sql string) Result {
	res := Result{SQL: sql, Tokens: NewTokenMap()}
	for _, pass := range p.passes {
		out := pass.Apply(res.SQL, res.Tokens)
		if out != res.SQL {
			res.Applied = append(res.Applied, pass.Name())
			res.SQL = out
		}
	}
	return res
}

// Normalize runs the pipeline described by opts over sql.
func Normalize(sql string, opts Options) (string, *TokenMap) {
	res := NewPipeline(opts).Run(sql)
	return res.SQL, res.Tokens
}

type truncatePass struct {
	markers []*regexp.Regexp
}

func newTruncatePass(markers []string) *truncatePass {
	pass := &truncatePass{}
	for _, m := range markers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		pass.markers = append(pass.markers, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(m)))
	}
	if len(pass.markers) == 0 {
		return nil
	}
	return pass
}

func (*truncatePass) Name() string { return PassTruncate }

// Apply cuts at the earliest marker match across all markers.
func (t *truncatePass) Apply(sql string, _ *TokenMap) string {
	cut := -1
	for _, re := range t.markers {
		if loc := re.FindStringIndex(sql); loc != nil && (cut < 0 || loc[0] < cut) {
			cut = loc[0]
		}
	}
	if cut < 0 {
		return sql
	}
	return sql[:cut]
}

type wordPass struct {
	name     string
	re       *regexp.Regexp
	sentinel string // replacement text
	token    string // sentinel as it appears in extracted names
	original string
}

func (w *wordPass) Name() string { return w.name }

func (w *wordPass) Apply(sql string, tokens *TokenMap) string {
	if !w.re.MatchString(sql) {
		return sql
	}
	tokens.Record(w.token, w.original)
	return w.re.ReplaceAllLiteralString(sql, w.sentinel)
}

type directivePass struct{}

func (directivePass) Name() string { return PassDirectives }

func (directivePass) Apply(sql string, _ *TokenMap) string {
	return encodeClause.ReplaceAllLiteralString(sql, "")
}

type lookerPass struct{}

func (lookerPass) Name() string { return PassLooker }

func (lookerPass) Apply(sql string, tokens *TokenMap) string {
	if !strings.Contains(sql, lookerPlaceholder) {
		return sql
	}
	tokens.Record(LookerSentinel, LookerTableName)
	return strings.ReplaceAll(sql, lookerPlaceholder, LookerSentinel)
}

type templatePass struct{}

func (templatePass) Name() string { return PassTemplates }

func (templatePass) Apply(sql string, _ *TokenMap) string {
	return placeholder.ReplaceAllString(sql, "${1}")
}
