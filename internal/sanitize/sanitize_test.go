package sanitize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanWordArtifacts(t *testing.T) {
	in := "Ada Lovelace\x00\x01\r\n" +
		" HYPERLINK \"mailto:ada@example.com\" ada@example.com\n\n\n\n" +
		"EXPERIENCE\n" +
		"\uF0B7\tLed team of 5\n" +
		"• Shipped   product\n" +
		"TOC \\o \"1-3\" \\h \\z \\u\n" +
		"Skills\u200B: Go, SQL _Toc123456\n" +
		"<w:t>Go</w:t>"

	got, report := Clean(in)

	want := "Ada Lovelace\nada@example.com\n\nEXPERIENCE\n- Led team of 5\n- Shipped product\n\nSkills: Go, SQL\nGo"
	assert.Equal(t, want, got)
	for _, rule := range []string{"line_endings", "null_bytes", "field_hyperlink", "field_codes", "bookmarks", "xml_residue", "zero_width", "bullets", "spaces", "blank_lines"} {
		assert.Positive(t, report.Rules[rule], "rule %s should have matched", rule)
	}
	assert.Positive(t, report.RemovedChars)
	assert.GreaterOrEqual(t, report.Total(), 10)
}

func TestCleanFieldCodes(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"pageref", "Introduction PAGEREF _Toc48211 \\h 3", "Introduction 3"},
		{"mergefield", "Dear MERGEFIELD FirstName \\* MERGEFORMAT,", "Dear ,"},
		{"date picture", "Updated DATE \\@ \"MMMM yyyy\" today", "Updated today"},
		{"page in braces", "Page { PAGE \\* MERGEFORMAT } of 2", "Page of 2"},
		{"hyperlink anchor", "See HYPERLINK \\l \"_Toc1\" \\o \"Jump\" Projects", "See Projects"},
		{"form fields", "Name: FORMTEXT Ada", "Name: Ada"},
		{"symbol", "SYMBOL 183 \\f \"Symbol\" \\s 10 Go", "Go"},
		{"ole", "Chart EMBED Excel.Sheet.12 OLE_LINK1 here", "Chart here"},
		{"prose keeps words", "PAGE design and DATE fields", "PAGE design and DATE fields"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Clean(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCleanBinaryMarkers(t *testing.T) {
	in := "Ada\uFFFD\uFFFD\uE001 Lovelace\x7F\x0B"
	got, report := Clean(in)
	assert.Equal(t, "Ada Lovelace", got)
	assert.Equal(t, 1, report.Rules["binary_markers"])
	assert.Equal(t, 1, report.Rules["null_bytes"])
}

func TestCleanIsIdempotent(t *testing.T) {
	inputs := []string{
		"  •  Led\t\tteam  \n\n\n\n\nTOC \\o \"1-3\" \\h\n_GoBack",
		"Plain text with nothing to strip.",
		"\uFEFFHeader\r\n\r\n\r\n\u00A0\u00A0Body",
		"Intro EM\x00BED Package tail",
		"see _To\u200bc123456 here",
		"HYPER{ }LINK \"https://example.com\" site",
		"_Hl\u200Bk12 PK\x03\x04 OLE_\u00ADLINK2 end",
	}
	for _, in := range inputs {
		once, _ := Clean(in)
		twice, report := Clean(once)
		assert.Equal(t, once, twice)
		assert.Zero(t, report.Total(), "second pass should not match anything for %q", in)
	}
}

func TestCleanSplitArtifacts(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"control byte inside marker", "Intro EM\x00BED Package tail", "Intro tail"},
		{"zero width inside bookmark", "see _To\u200bc123456 here", "see here"},
		{"soft hyphen inside field", "Contents TO\u00ADC \\o \"1-3\" \\h page", "Contents page"},
		{"braces joining a field", "HYPER{ }LINK \"https://example.com\" site", "site"},
		{"zip header", "PK\x03\x04word/document.xml", "word/document.xml"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := Clean(tc.in)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCleanLeavesOrdinaryTextAlone(t *testing.T) {
	in := "Senior Engineer at Acme (2019-04 to 2023-01)\n- Built {things} with C# and Go"
	got, report := Clean(in)
	assert.Equal(t, in, got)
	assert.Zero(t, report.Total())
	assert.Zero(t, report.RemovedChars)
}

func TestPipelineCustomRules(t *testing.T) {
	p := New(Rule{Name: "digits", Pattern: regexp.MustCompile(`\d+`), Replace: "#"})
	got, report := p.Apply(" call 555 0100 ")
	require.Equal(t, "call # #", got)
	assert.Equal(t, 2, report.Rules["digits"])

	rules := p.Rules()
	rules[0].Name = "changed"
	assert.Equal(t, "digits", p.Rules()[0].Name)
}

func TestDefaultRulesAreNamedUniquely(t *testing.T) {
	seen := map[string]bool{}
	for _, r := range DefaultRules() {
		require.False(t, seen[r.Name], "duplicate rule %s", r.Name)
		require.NotEmpty(t, strings.TrimSpace(r.Name))
		seen[r.Name] = true
	}
}
