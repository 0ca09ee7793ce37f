/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

import (
	"reflect"
	"strings"
	"testing"
)

const minimalDoc = `---
title: Ninnukori Yunnanura
raga: mohanam
tala: "+234+0+0"
---

[pallavi]
G G | R - ||
ni nnu | ko - ||
`

func mustParse(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Parse(text)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return doc
}

// expectParseError asserts that parsing fails with the given kind on the
// given 1-based line.
func expectParseError(t *testing.T, text string, kind ParseErrorKind, line int) *ParseError {
	t.Helper()
	_, err := Parse(text)
	if err == nil {
		t.Fatalf("Parse succeeded, want %s", kind)
	}
	pe, ok := AsParseError(err)
	if !ok {
		t.Fatalf("Parse returned %T, want *ParseError", err)
	}
	if pe.Kind != kind {
		t.Fatalf("Parse failed with %s (%s), want %s", pe.Kind, pe.Message, kind)
	}
	if pe.Line != line {
		t.Fatalf("%s reported on line %d, want %d", kind, pe.Line, line)
	}
	return pe
}

func TestParseMinimalDocument(t *testing.T) {
	doc := mustParse(t, minimalDoc)

	if doc.Metadata.Title != "Ninnukori Yunnanura" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	if doc.Metadata.Raga != "mohanam" {
		t.Errorf("raga = %q", doc.Metadata.Raga)
	}
	if doc.Metadata.Tala != "+234+0+0" {
		t.Errorf("tala = %q", doc.Metadata.Tala)
	}
	if len(doc.Sections) != 1 {
		t.Fatalf("sections = %d, want 1", len(doc.Sections))
	}

	sec := doc.Sections[0]
	if sec.Name != "pallavi" || sec.LineNumber != 7 {
		t.Errorf("section = %q at line %d, want pallavi at 7", sec.Name, sec.LineNumber)
	}
	if len(sec.Phrases) != 1 {
		t.Fatalf("phrases = %d, want 1", len(sec.Phrases))
	}

	ph := sec.Phrases[0]
	if ph.LineNumber != 8 {
		t.Errorf("phrase line = %d, want 8", ph.LineNumber)
	}
	if want := []string{"G", "G", "R", "-"}; !reflect.DeepEqual(ph.Swaras, want) {
		t.Errorf("swaras = %q, want %q", ph.Swaras, want)
	}
	if want := []string{"ni", "nnu", "ko", "-"}; !reflect.DeepEqual(ph.Sahitya, want) {
		t.Errorf("sahitya = %q, want %q", ph.Sahitya, want)
	}
	if want := []int{2}; !reflect.DeepEqual(ph.BeatPositions, want) {
		t.Errorf("beat positions = %v, want %v", ph.BeatPositions, want)
	}
}

func TestParseFullMetadata(t *testing.T) {
	doc := mustParse(t, `---
title: Marugelara
raga: jayantasri
tala: "+234+0+0"
type: kriti
tempo: 72
composer: Tyagaraja
language: telugu
key: C#
gati: 4
default_octave: "4"
arohanam: S G M D N S'
avarohanam: S' N D M G S
---

[pallavi]
S | R ||
ma | ru ||
`)
	md := doc.Metadata
	if md.CompositionType != "kriti" {
		t.Errorf("type = %q", md.CompositionType)
	}
	if md.Tempo == nil || *md.Tempo != 72 {
		t.Errorf("tempo = %v, want 72", md.Tempo)
	}
	if md.Composer != "Tyagaraja" || md.Language != "telugu" || md.Key != "C#" {
		t.Errorf("composer/language/key = %q/%q/%q", md.Composer, md.Language, md.Key)
	}
	if md.Gati == nil || *md.Gati != 4 {
		t.Errorf("gati = %v, want 4", md.Gati)
	}
	if md.DefaultOctave != "4" {
		t.Errorf("default_octave = %q", md.DefaultOctave)
	}
	if md.Arohanam != "S G M D N S'" || md.Avarohanam != "S' N D M G S" {
		t.Errorf("arohanam/avarohanam = %q/%q", md.Arohanam, md.Avarohanam)
	}
}

func TestParseAcceptsLeadingBlankLines(t *testing.T) {
	doc := mustParse(t, "\n\n"+minimalDoc)
	if doc.Metadata.Title != "Ninnukori Yunnanura" {
		t.Errorf("title = %q", doc.Metadata.Title)
	}
	// Line numbers shift with the prologue.
	if got := doc.Sections[0].LineNumber; got != 9 {
		t.Errorf("section line = %d, want 9", got)
	}
}

func TestParseCarriageReturns(t *testing.T) {
	crlf := strings.ReplaceAll(minimalDoc, "\n", "\r\n")
	a := mustParse(t, minimalDoc)
	b := mustParse(t, crlf)
	if !reflect.DeepEqual(a, b) {
		t.Error("CRLF document parsed differently from LF document")
	}
}

// Token and beat-marker spacing is free-form; only the token sequence and
// the token counts at beat boundaries matter.
func TestParseWhitespaceInsensitive(t *testing.T) {
	spaced := `---
title: Ninnukori Yunnanura
raga: mohanam
tala: "+234+0+0"
---

[pallavi]
   G     G |   R -   ||
  ni   nnu |  ko -   ||
`
	a := mustParse(t, minimalDoc).Sections[0].Phrases[0]
	b := mustParse(t, spaced).Sections[0].Phrases[0]
	if !reflect.DeepEqual(a.Swaras, b.Swaras) || !reflect.DeepEqual(a.Sahitya, b.Sahitya) ||
		!reflect.DeepEqual(a.BeatPositions, b.BeatPositions) {
		t.Errorf("respaced phrase parsed differently: %+v vs %+v", a, b)
	}
}

func TestParseComments(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+0+0"
---
# composed in 1838
# for the Thanjavur court

[pallavi]
# sing slowly
S | R ||
sa | ra ||
# end of pallavi

[anupallavi]
S | R ||
sa | ra ||
`)
	if len(doc.Comments) != 2 || doc.Comments[0].Type != CommentLine {
		t.Fatalf("document comments = %+v", doc.Comments)
	}
	if doc.Comments[0].Text != "composed in 1838" || doc.Comments[0].LineNumber != 6 {
		t.Errorf("first comment = %+v", doc.Comments[0])
	}

	pallavi := doc.Sections[0]
	if len(pallavi.Phrases) != 1 {
		t.Fatalf("pallavi phrases = %d", len(pallavi.Phrases))
	}
	pre := pallavi.Phrases[0].PrecedingComments
	if len(pre) != 1 || pre[0].Type != CommentPerformance || pre[0].Text != "sing slowly" {
		t.Errorf("performance comments = %+v", pre)
	}
	if len(pallavi.Comments) != 1 || pallavi.Comments[0].Type != CommentSection ||
		pallavi.Comments[0].Text != "end of pallavi" {
		t.Errorf("section comments = %+v", pallavi.Comments)
	}
	if len(doc.Sections) != 2 || doc.Sections[1].Name != "anupallavi" {
		t.Errorf("second section missing: %+v", doc.Sections)
	}
}

// An annotation run binds to the phrase when a melodic line follows it
// directly, and to the section otherwise.
func TestParseAnnotationScope(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+234+0+0"
---
[madhyamakala]
@gati: 6
# twice the speed from here
S R G | M P D ||
sa ra ga | ma pa da ||

@tala: "+0+0"
@gati: 5
S | R ||
sa | ra ||
`)
	sec := doc.Sections[0]
	if sec.Gati == nil || *sec.Gati != 6 {
		t.Fatalf("section gati = %v, want 6", sec.Gati)
	}
	if sec.Tala != "" {
		t.Errorf("section tala = %q, want unset", sec.Tala)
	}
	if len(sec.Phrases) != 2 {
		t.Fatalf("phrases = %d, want 2", len(sec.Phrases))
	}

	first := sec.Phrases[0]
	if first.Gati != nil || first.Tala != "" {
		t.Errorf("first phrase has overrides: %+v", first)
	}
	second := sec.Phrases[1]
	if second.Gati == nil || *second.Gati != 5 {
		t.Errorf("second phrase gati = %v, want 5", second.Gati)
	}
	if second.Tala != "+0+0" {
		t.Errorf("second phrase tala = %q, want +0+0", second.Tala)
	}
}

func TestParseSectionAnnotationAtEnd(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+234+0+0"
---
[coda]
@tala: "+0+0"
`)
	sec := doc.Sections[0]
	if sec.Tala != "+0+0" {
		t.Errorf("section tala = %q, want +0+0", sec.Tala)
	}
	if len(sec.Phrases) != 0 {
		t.Errorf("phrases = %d, want 0", len(sec.Phrases))
	}
}

func TestParseEffectiveGatiAndTala(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+234+0+0"
gati: 3
---
[a]
S | R ||
sa | ra ||

[b]
@gati: 5
@tala: "+0+0"
S | R ||
sa | ra ||
`)
	a, b := &doc.Sections[0], &doc.Sections[1]
	if got := doc.GatiFor(a, &a.Phrases[0]); got != 3 {
		t.Errorf("gati in [a] = %d, want 3", got)
	}
	if got := doc.GatiFor(b, &b.Phrases[0]); got != 5 {
		t.Errorf("gati in [b] = %d, want 5", got)
	}
	if got := doc.TalaFor(a, &a.Phrases[0]); got != "+234+0+0" {
		t.Errorf("tala in [a] = %q", got)
	}
	if got := doc.TalaFor(b, &b.Phrases[0]); got != "+0+0" {
		t.Errorf("tala in [b] = %q", got)
	}
	if got := doc.GatiFor(nil, nil); got != 3 {
		t.Errorf("document gati = %d, want 3", got)
	}
}

func TestParsePhraseAnalysis(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+0+0"
---
[pallavi]
S R | G M ||
sa ra | ga ma ||
phrases = (__) (__)

S | R ||
sa | ra ||
`)
	sec := doc.Sections[0]
	if got := sec.Phrases[0].PhraseAnalysis; got != "(__) (__)" {
		t.Errorf("analysis = %q", got)
	}
	if got := sec.Phrases[1].PhraseAnalysis; got != "" {
		t.Errorf("second phrase analysis = %q, want empty", got)
	}
}

func TestParseKeepsGatiSuffixInToken(t *testing.T) {
	doc := mustParse(t, `---
title: t
raga: r
tala: "+0+0"
---
[pallavi]
SRG:3 M | P ||
sarigam - | pa ||
`)
	ph := doc.Sections[0].Phrases[0]
	if ph.Swaras[0] != "SRG:3" {
		t.Errorf("swara token = %q, want SRG:3", ph.Swaras[0])
	}
}

func TestParseMissingFrontmatter(t *testing.T) {
	expectParseError(t, "title: x\nraga: y\n", ErrMissingFrontmatter, 1)
	expectParseError(t, "", ErrMissingFrontmatter, 1)
}

func TestParseEmptyFrontmatter(t *testing.T) {
	expectParseError(t, "---\n\n---\n[p]\n", ErrEmptyFrontmatter, 1)
}

func TestParseMalformedMetadata(t *testing.T) {
	expectParseError(t, "---\ntitle: [unclosed\n---\n", ErrMalformedMetadata, 1)
	// default_octave is a string field; a bare number is a type error.
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\ndefault_octave: 4\n---\n", ErrMalformedMetadata, 1)
	// Same for the other string fields.
	expectParseError(t, "---\ntitle: 42\nraga: r\ntala: x\n---\n", ErrMalformedMetadata, 1)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\nkey: true\n---\n", ErrMalformedMetadata, 1)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\ntempo: -10\n---\n", ErrMalformedMetadata, 1)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\ngati: 300\n---\n", ErrMalformedMetadata, 1)
}

func TestParseQuotedNumberIsAString(t *testing.T) {
	doc := mustParse(t, "---\ntitle: t\nraga: r\ntala: \"+0+0\"\ndefault_octave: \"4\"\n---\n")
	if doc.Metadata.DefaultOctave != "4" {
		t.Errorf("default_octave = %q, want \"4\"", doc.Metadata.DefaultOctave)
	}
}

func TestParseMissingRequiredField(t *testing.T) {
	pe := expectParseError(t, "---\ntitle: t\ntala: x\n---\n", ErrMissingRequiredField, 1)
	if !strings.Contains(pe.Message, "raga") {
		t.Errorf("message %q does not name the missing field", pe.Message)
	}
}

func TestParseUnexpectedContent(t *testing.T) {
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\nstray text\n", ErrUnexpectedContent, 6)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\nstray text\n", ErrUnexpectedContent, 7)
}

func TestParseIncompletePhrase(t *testing.T) {
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\nS R | G ||", ErrIncompletePhrase, 7)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\nS R | G ||\n", ErrIncompletePhrase, 7)
}

func TestParseMissingBeatMarkersOnLyricLine(t *testing.T) {
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\nS R | G ||\nsa ri ga\n", ErrMissingBeatMarkers, 8)
}

func TestParseInvalidGati(t *testing.T) {
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\n@gati: abc\nS | R ||\nsa | ra ||\n", ErrInvalidGati, 7)
	expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\n@gati: 999\nS | R ||\nsa | ra ||\n", ErrInvalidGati, 7)
}

func TestParseBeatMisalignment(t *testing.T) {
	pe := expectParseError(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\nS R | G ||\nsa | ra ga ||\n", ErrBeatMisalignment, 7)
	if !strings.Contains(pe.Message, "[2]") || !strings.Contains(pe.Message, "[1]") {
		t.Errorf("message %q does not show both boundary counts", pe.Message)
	}
}

func TestParseBeatBoundaryBeforeFirstToken(t *testing.T) {
	doc := mustParse(t, "---\ntitle: t\nraga: r\ntala: x\n---\n[p]\n| S R ||\n| sa ra ||\n")
	ph := doc.Sections[0].Phrases[0]
	if len(ph.BeatPositions) != 0 {
		t.Errorf("beat positions = %v, want none before the first token", ph.BeatPositions)
	}
	if want := []string{"S", "R"}; !reflect.DeepEqual(ph.Swaras, want) {
		t.Errorf("swaras = %q", ph.Swaras)
	}
}

func TestParseErrorStringFormat(t *testing.T) {
	_, err := Parse("no frontmatter")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.HasPrefix(got, "line 1: ") {
		t.Errorf("error text = %q, want line-prefixed", got)
	}
	pe, _ := AsParseError(err)
	if pe.Kind.String() != "missing_frontmatter" {
		t.Errorf("kind code = %q", pe.Kind.String())
	}
}

func TestParseDeterministic(t *testing.T) {
	first := mustParse(t, minimalDoc)
	for i := 0; i < 3; i++ {
		if got := mustParse(t, minimalDoc); !reflect.DeepEqual(got, first) {
			t.Fatal("repeated parses of the same input differ")
		}
	}
}
