/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"vna/internal/sahitya"
)

// Stable issue codes for editor tooling. The set is closed; the strings
// are the external identifiers only, never internal control flow.
const (
	CodeUnusualTempo          = "unusual_tempo"
	CodeUnusualGati           = "unusual_gati"
	CodeEmptyTitle            = "empty_title"
	CodeEmptyRaga             = "empty_raga"
	CodeEmptyTala             = "empty_tala"
	CodeInvalidTalaPattern    = "invalid_tala_pattern"
	CodeUncommonTalaPattern   = "uncommon_tala_pattern"
	CodeEmptySectionName      = "empty_section_name"
	CodeEmptySwaraLine        = "empty_swara_line"
	CodeEmptySahityaLine      = "empty_sahitya_line"
	CodeTokenCountMismatch    = "token_count_mismatch"
	CodeUnusualTokenGati      = "unusual_token_gati"
	CodeInvalidTokenGati      = "invalid_token_gati"
	CodeTokenUnitMismatch     = "token_unit_mismatch"
	CodeInvalidPhraseAnalysis = "invalid_phrase_analysis"
	CodeMixedCaseSwara        = "mixed_case_swara"
)

// knownTalas maps canonical tala patterns to their names. Patterns use +
// for a clap, 0 for a wave, and 2-9 for finger counts.
var knownTalas = []struct{ Pattern, Name string }{
	{"+234+0+0", "Adi"},
	{"0++234", "Rupaka"},
	{"+230+00", "Misra Chapu"},
	{"+23+0+0", "Triputa"},
	{"+0+0", "Khanda Chapu"},
	{"++++++++", "All claps"},
}

// TalaName returns the canonical name for a known tala pattern.
func TalaName(pattern string) (string, bool) {
	for _, t := range knownTalas {
		if t.Pattern == pattern {
			return t.Name, true
		}
	}
	return "", false
}

// Validate walks a parsed document and returns every structural and
// alignment finding as an ordered issue list. No rule aborts validation;
// the only short-circuit is within a single phrase after a token-count
// mismatch, where per-token checks would just repeat the same misalignment.
// Output is deterministic for identical input.
func Validate(doc *Document) []ValidationIssue {
	v := &validator{language: doc.Metadata.Language}
	v.metadata(&doc.Metadata)
	for i := range doc.Sections {
		v.section(&doc.Sections[i])
	}
	return v.issues
}

type validator struct {
	issues   []ValidationIssue
	language string
}

func (v *validator) add(sev Severity, line int, code, format string, args ...any) {
	v.issues = append(v.issues, ValidationIssue{
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
		Code:     code,
	})
}

func (v *validator) metadata(md *Metadata) {
	if md.Tempo != nil && (*md.Tempo < 20 || *md.Tempo > 300) {
		v.add(SeverityWarning, 1, CodeUnusualTempo, "Unusual tempo: %d BPM (typical range: 20-300)", *md.Tempo)
	}
	if md.Gati != nil && !canonicalGati(*md.Gati) {
		v.add(SeverityWarning, 1, CodeUnusualGati, "Unusual gati value: %d (typical values: 3, 4, 5, 7, 9)", *md.Gati)
	}

	// The parser rejects empty required fields; these rules still run so
	// hand-built documents are diagnosed too.
	if strings.TrimSpace(md.Title) == "" {
		v.add(SeverityError, 1, CodeEmptyTitle, "Title cannot be empty")
	}
	if strings.TrimSpace(md.Raga) == "" {
		v.add(SeverityError, 1, CodeEmptyRaga, "Raga cannot be empty")
	}
	if strings.TrimSpace(md.Tala) == "" {
		v.add(SeverityError, 1, CodeEmptyTala, "Tala cannot be empty")
	}

	v.talaPattern(md.Tala, 1)
}

func (v *validator) section(sec *Section) {
	if strings.TrimSpace(sec.Name) == "" {
		v.add(SeverityError, sec.LineNumber, CodeEmptySectionName, "Section name cannot be empty")
	}
	if sec.Gati != nil && !canonicalGati(*sec.Gati) {
		v.add(SeverityWarning, sec.LineNumber, CodeUnusualGati, "Unusual gati value: %d (typical values: 3, 4, 5, 7, 9)", *sec.Gati)
	}
	if sec.Tala != "" {
		v.talaPattern(sec.Tala, sec.LineNumber)
	}
	for i := range sec.Phrases {
		v.phrase(&sec.Phrases[i])
	}
}

func (v *validator) phrase(ph *Phrase) {
	if ph.Gati != nil && !canonicalGati(*ph.Gati) {
		v.add(SeverityWarning, ph.LineNumber, CodeUnusualGati, "Unusual gati value: %d (typical values: 3, 4, 5, 7, 9)", *ph.Gati)
	}
	if ph.Tala != "" {
		v.talaPattern(ph.Tala, ph.LineNumber)
	}

	if len(ph.Swaras) == 0 {
		v.add(SeverityError, ph.LineNumber, CodeEmptySwaraLine, "Swara line cannot be empty")
	}
	if len(ph.Sahitya) == 0 {
		v.add(SeverityError, ph.LineNumber+1, CodeEmptySahityaLine, "Sahitya line cannot be empty")
	}

	if len(ph.Swaras) != len(ph.Sahitya) {
		v.add(SeverityError, ph.LineNumber+1, CodeTokenCountMismatch,
			"Token count mismatch: swara line has %d tokens, sahitya line has %d", len(ph.Swaras), len(ph.Sahitya))
		// Per-token checks would only echo the same misalignment.
		return
	}

	for i, swara := range ph.Swaras {
		text, override, hasOverride := StripGati(swara)
		if hasOverride {
			if g, err := strconv.Atoi(override); err == nil && g >= 0 && g <= 255 {
				if !canonicalGati(g) {
					v.add(SeverityWarning, ph.LineNumber, CodeUnusualTokenGati,
						"Unusual gati value in token '%s': %d (typical values: 3, 4, 5, 7, 9)", swara, g)
				}
			} else {
				v.add(SeverityError, ph.LineNumber, CodeInvalidTokenGati,
					"Invalid gati notation in token '%s': expected number after colon", swara)
			}
		}

		swaraUnits := MelodicUnits(text)
		sahityaUnits := sahitya.Units(ph.Sahitya[i], v.language)
		if len(swaraUnits) != len(sahityaUnits) {
			v.add(SeverityError, ph.LineNumber+1, CodeTokenUnitMismatch,
				"Token unit mismatch at position %d: swara '%s' (%d units) vs sahitya '%s' (%d units)",
				i+1, text, len(swaraUnits), ph.Sahitya[i], len(sahityaUnits))
		}
	}

	for i, ch := range []rune(ph.PhraseAnalysis) {
		switch ch {
		case '_', '*', '(', ')', ' ':
		default:
			v.add(SeverityWarning, ph.LineNumber+2, CodeInvalidPhraseAnalysis,
				"Invalid character %q in phrase analysis at position %d", ch, i+1)
		}
	}

	for i, swara := range ph.Swaras {
		if strings.ContainsFunc(swara, unicode.IsLower) && strings.ContainsFunc(swara, unicode.IsUpper) {
			v.add(SeverityWarning, ph.LineNumber, CodeMixedCaseSwara,
				"Mixed case in swara '%s' at position %d", swara, i+1)
		}
	}
}

func (v *validator) talaPattern(pattern string, line int) {
	for i, ch := range []rune(pattern) {
		switch {
		case ch == '+' || ch == '0':
		case ch >= '2' && ch <= '9':
		default:
			v.add(SeverityError, line, CodeInvalidTalaPattern,
				"Invalid character %q in tala pattern at position %d: valid characters are +, 0, and 2-9", ch, i+1)
		}
	}

	if _, known := TalaName(pattern); !known && pattern != "" {
		names := make([]string, len(knownTalas))
		for i, t := range knownTalas {
			names[i] = fmt.Sprintf("%s (%s)", t.Pattern, t.Name)
		}
		v.add(SeverityInfo, line, CodeUncommonTalaPattern,
			"Uncommon tala pattern '%s'. Common patterns include: %s", pattern, strings.Join(names, ", "))
	}
}

func canonicalGati(g int) bool {
	switch g {
	case 3, 4, 5, 7, 9:
		return true
	}
	return false
}
