// Package sanitize strips word-processor artifacts from text extracted out of
// uploaded documents: control bytes, embedded-object markers, field codes,
// bookmark names and stray markup. The pipeline is a fixed, ordered list of
// regular-expression rules, repeated until the text stops changing so that
// cleaning already clean text is a no-op.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Rule is a single named replacement.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Replace string
}

// Report records how often each rule matched and how much text was removed.
type Report struct {
	Rules        map[string]int `json:"rules"`
	RemovedChars int            `json:"removedChars"`
}

// Total returns the number of matches across all rules.
func (r Report) Total() int {
	n := 0
	for _, v := range r.Rules {
		n += v
	}
	return n
}

// Pipeline applies rules in order.
type Pipeline struct {
	rules []Rule
}

// New builds a pipeline from rules, applied in the given order.
func New(rules ...Rule) *Pipeline {
	return &Pipeline{rules: append([]Rule(nil), rules...)}
}

// Rules returns a copy of the pipeline's rules.
func (p *Pipeline) Rules() []Rule {
	return append([]Rule(nil), p.rules...)
}

// maxPasses bounds Apply for rule sets that never settle.
const maxPasses = 8

// Apply runs the rules in order and trims the result, repeating the pass
// while it still changes the text. Removing one artifact can join the pieces
// of another, and the next pass catches those.
func (p *Pipeline) Apply(text string) (string, Report) {
	report := Report{Rules: make(map[string]int)}
	before := utf8.RuneCountInString(text)
	out := text
	for pass := 0; pass < maxPasses; pass++ {
		next := p.pass(out, report)
		if next == out {
			break
		}
		out = next
	}
	if removed := before - utf8.RuneCountInString(out); removed > 0 {
		report.RemovedChars = removed
	}
	return out, report
}

func (p *Pipeline) pass(text string, report Report) string {
	for _, rule := range p.rules {
		matches := rule.Pattern.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		report.Rules[rule.Name] += len(matches)
		text = rule.Pattern.ReplaceAllString(text, rule.Replace)
	}
	return strings.TrimSpace(text)
}

var defaultPipeline = New(DefaultRules()...)

// Clean applies the default pipeline.
func Clean(text string) (string, Report) {
	return defaultPipeline.Apply(text)
}

// fieldSwitch matches one switch trailing a field instruction, for example
// \h, \* MERGEFORMAT, \@ "MMMM yyyy", \o "1-3" or \s 10.
const fieldSwitch = `\s*\\(?:[*@#!](?:\s*[A-Za-z]+)?|s\s+\d+|[a-z])(?:\s+"[^"\n]*")?`

// fieldWithSwitches lists field instructions that only count as artifacts when
// followed by at least one switch, so prose such as "PAGE" survives.
const fieldWithSwitches = `PAGEREF\s+_[A-Za-z]+\d+|REF\s+_[A-Za-z]+\d+|MERGEFIELD\s+"?[\w.-]+"?|SEQ\s+\w+|SYMBOL\s+\d+|TOC|NUMPAGES|PAGE|DATE|TIME|FILENAME`

// DefaultRules returns the ordered rule list used by Clean.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:    "line_endings",
			Pattern: regexp.MustCompile(`\r\n?`),
			Replace: "\n",
		},
		{
			// Control bytes, including the ones in a leaked zip local-file header.
			Name:    "null_bytes",
			Pattern: regexp.MustCompile(`PK\x{3}\x{4}|[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]+`),
		},
		{
			// Private-use glyphs from symbol fonts, except the two bullet code
			// points handled by the bullets rule.
			Name:    "binary_markers",
			Pattern: regexp.MustCompile(`[\x{FFFD}\x{FFFC}\x{E000}-\x{F0A6}\x{F0A8}-\x{F0B6}\x{F0B8}-\x{F8FF}]+`),
		},
		{
			Name:    "zero_width",
			Pattern: regexp.MustCompile(`[\x{200B}-\x{200D}\x{2060}\x{FEFF}\x{00AD}]+`),
		},
		{
			Name:    "ole_markers",
			Pattern: regexp.MustCompile(`(?i)\bEMBED\s+(?:Word\.(?:Picture|Document)|Excel\.Sheet|Equation|MSGraph\.Chart|Package|PBrush)(?:\.\d+)?\b(?:\s*\\s)?|\bOLE_LINK\d+\b|\\obj(?:data|emb|class)[ \t]*[0-9a-fA-F]*`),
		},
		{
			Name:    "field_hyperlink",
			Pattern: regexp.MustCompile(`\bHYPERLINK\s+(?:\\l\s+)?"[^"\n]*"(?:` + fieldSwitch + `)*`),
		},
		{
			Name:    "field_codes",
			Pattern: regexp.MustCompile(`\b(?:` + fieldWithSwitches + `)(?:` + fieldSwitch + `)+|\b(?:FORMTEXT|FORMCHECKBOX|FORMDROPDOWN|MERGEFORMAT)\b`),
		},
		{
			Name:    "field_braces",
			Pattern: regexp.MustCompile(`\{\s*\}|\{\s*(?:PAGE|NUMPAGES|DATE|TIME|TOC|FILENAME)\s*\}`),
		},
		{
			Name:    "bookmarks",
			Pattern: regexp.MustCompile(`\b_(?:Toc|Hlk|Ref|GoBack)\d*\b`),
		},
		{
			Name:    "xml_residue",
			Pattern: regexp.MustCompile(`</?(?:w|wp|a|pic|v|o|m|mc|w14|w15):[^>\n]{0,200}>`),
		},
		{
			Name:    "bullets",
			Pattern: regexp.MustCompile(`(?m)^[ \t]*[•▪◦●○■□‣⁃·∙\x{F0B7}\x{F0A7}][ \t]*`),
			Replace: "- ",
		},
		{
			Name:    "spaces",
			Pattern: regexp.MustCompile(`[ \t\x{00A0}]{2,}|[\t\x{00A0}]`),
			Replace: " ",
		},
		{
			Name:    "edge_spaces",
			Pattern: regexp.MustCompile(`(?m)^ +| +$`),
		},
		{
			Name:    "blank_lines",
			Pattern: regexp.MustCompile(`\n{3,}`),
			Replace: "\n\n",
		},
	}
}
