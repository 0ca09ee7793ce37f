/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"fmt"
	"strconv"
	"strings"

	"vna/internal/notation"
	"vna/internal/sahitya"
)

var metadataHelp = map[string]string{
	"title":          "Composition title (required).",
	"raga":           "Melodic framework of the composition (required).",
	"tala":           "Rhythmic cycle pattern (required): + clap, 0 wave, digits 2-9 finger counts.",
	"type":           "Composition form, e.g. varnam, kriti, tillana.",
	"tempo":          "Beats per minute; typical range 20-300.",
	"composer":       "Composer attribution.",
	"language":       "Lyric language hint used for syllable splitting.",
	"key":            "Tonic pitch, e.g. C# or D.",
	"gati":           "Default subdivision per beat. Canonical values: 3, 4, 5, 7, 9.",
	"default_octave": "Octave assumed for notes without octave marks.",
	"arohanam":       "Ascending scale of the raga.",
	"avarohanam":     "Descending scale of the raga.",
}

var sectionHelp = map[string]string{
	"pallavi":           "Opening section carrying the main theme.",
	"anupallavi":        "Second section, developing the theme.",
	"charanam":          "Concluding section; longer forms repeat it with new text.",
	"muktayi swaram":    "Concluding swara passage of a varnam's first half.",
	"chittaswaram":      "Fixed swara passage sung after the anupallavi or charanam.",
	"chitta swaram":     "Fixed swara passage sung after the anupallavi or charanam.",
	"samashti charanam": "Single combined section replacing anupallavi and charanam.",
}

// swaraNames maps note letter plus variant digit to the full name.
var swaraNames = map[string]string{
	"S":  "Shadja",
	"R1": "Shuddha Rishabha",
	"R2": "Chatushruti Rishabha",
	"R3": "Shatshruti Rishabha",
	"G1": "Shuddha Gandhara",
	"G2": "Sadharana Gandhara",
	"G3": "Antara Gandhara",
	"M1": "Shuddha Madhyama",
	"M2": "Prati Madhyama",
	"P":  "Panchama",
	"D1": "Shuddha Dhaivata",
	"D2": "Chatushruti Dhaivata",
	"D3": "Shatshruti Dhaivata",
	"N1": "Shuddha Nishada",
	"N2": "Kaisika Nishada",
	"N3": "Kakali Nishada",
}

// swaraBase names a bare letter when no variant digit narrows it down.
var swaraBase = map[byte]string{
	'S': "Shadja",
	'R': "Rishabha",
	'G': "Gandhara",
	'M': "Madhyama",
	'P': "Panchama",
	'D': "Dhaivata",
	'N': "Nishada",
}

var gatiNames = map[int]string{
	3: "tisra",
	4: "chatusra",
	5: "khanda",
	7: "misra",
	9: "sankirna",
}

// Hover explains whatever sits under the cursor: metadata keys, section
// headers, override lines, melodic tokens, lyric tokens and beat markers.
// Line and character are 0-based wire coordinates.
func Hover(e *Entry, line, character int) (string, *Range, bool) {
	lines := strings.Split(e.Text, "\n")
	if line < 0 || line >= len(lines) {
		return "", nil, false
	}
	lineText := lines[line]
	trimmed := strings.TrimSpace(lineText)

	if inFrontmatter(lines, line) {
		if key, help, ok := metadataHover(trimmed); ok {
			contents := fmt.Sprintf("%s — %s", key, help)
			if key == "tala" {
				if v := metadataValue(trimmed); v != "" {
					contents += "\n" + describeTala(v)
				}
			}
			return contents, nil, true
		}
		return "", nil, false
	}

	switch {
	case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
		return sectionHover(e, trimmed, line)
	case strings.HasPrefix(trimmed, "@gati:"):
		return gatiHover(strings.TrimSpace(strings.TrimPrefix(trimmed, "@gati:")))
	case strings.HasPrefix(trimmed, "@tala:"):
		v := strings.Trim(strings.TrimSpace(strings.TrimPrefix(trimmed, "@tala:")), `"`)
		contents := "Tala override for the following scope (whole section, or just the next phrase when placed immediately above it)."
		if v != "" {
			contents += "\n" + describeTala(v)
		}
		return contents, nil, true
	case strings.HasPrefix(trimmed, "phrases ="):
		return "Phrase analysis — melodic grouping of the phrase above. Characters: _ held movement, * accent, ( ) grouping.", nil, true
	case strings.HasPrefix(trimmed, "#"):
		return "", nil, false
	}

	return tokenHover(e, lines, line, character)
}

// inFrontmatter reports whether the wire line sits strictly inside the
// opening metadata block.
func inFrontmatter(lines []string, line int) bool {
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != "---" {
		return false
	}
	if line == 0 {
		return false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return line < i
		}
	}
	return false
}

func metadataHover(trimmed string) (key, help string, ok bool) {
	i := strings.IndexByte(trimmed, ':')
	if i < 0 {
		return "", "", false
	}
	key = strings.TrimSpace(trimmed[:i])
	help, ok = metadataHelp[key]
	return key, help, ok
}

func metadataValue(trimmed string) string {
	i := strings.IndexByte(trimmed, ':')
	if i < 0 {
		return ""
	}
	return strings.Trim(strings.TrimSpace(trimmed[i+1:]), `"`)
}

func sectionHover(e *Entry, trimmed string, line int) (string, *Range, bool) {
	name := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(trimmed, "["), "]"))
	contents := fmt.Sprintf("Section [%s]", name)
	if help, ok := sectionHelp[strings.ToLower(name)]; ok {
		contents += " — " + help
	}
	if e.Doc != nil {
		for i := range e.Doc.Sections {
			sec := &e.Doc.Sections[i]
			if sec.LineNumber == line+1 {
				contents += fmt.Sprintf("\n%d phrase(s)", len(sec.Phrases))
				if sec.Gati != nil {
					contents += fmt.Sprintf(", gati %d", *sec.Gati)
				}
				if sec.Tala != "" {
					contents += ", tala override " + sec.Tala
				}
				break
			}
		}
	}
	return contents, nil, true
}

func gatiHover(value string) (string, *Range, bool) {
	contents := "Gati override for the following scope (whole section, or just the next phrase when placed immediately above it)."
	if g, err := strconv.Atoi(value); err == nil {
		if name, ok := gatiNames[g]; ok {
			contents += fmt.Sprintf("\n%d = %s: %d units per beat.", g, name, g)
		} else {
			contents += fmt.Sprintf("\n%d units per beat (canonical values: 3, 4, 5, 7, 9).", g)
		}
	}
	return contents, nil, true
}

// tokenHover resolves the token under the cursor on a melodic or lyric
// line, using the parsed document to tell the two apart.
func tokenHover(e *Entry, lines []string, line, character int) (string, *Range, bool) {
	token, start, end, ok := tokenAt(lines[line], character)
	if !ok {
		return "", nil, false
	}
	rng := &Range{Start: Position{Line: line, Character: start}, End: Position{Line: line, Character: end}}

	switch token {
	case "|":
		return "Beat separator.", rng, true
	case "||":
		return "Phrase end marker.", rng, true
	}

	if e.Doc == nil {
		return "", nil, false
	}
	sec, ph, kind := locatePhrase(e.Doc, line+1)
	if ph == nil {
		return "", nil, false
	}
	switch kind {
	case lineSwara:
		scope := e.Doc.GatiFor(sec, ph)
		return describeMelodicToken(token, scope), rng, true
	case lineSahitya:
		units := sahitya.Units(token, e.Doc.Metadata.Language)
		if len(units) == 0 {
			return "", nil, false
		}
		return fmt.Sprintf("Lyric token %q — %d unit(s): %s", token, len(units), strings.Join(units, " · ")), rng, true
	}
	return "", nil, false
}

type phraseLineKind int

const (
	lineOther phraseLineKind = iota
	lineSwara
	lineSahitya
)

// locatePhrase finds the phrase owning a 1-based source line and whether
// that line is its melodic or lyric row.
func locatePhrase(doc *notation.Document, srcLine int) (*notation.Section, *notation.Phrase, phraseLineKind) {
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		for j := range sec.Phrases {
			ph := &sec.Phrases[j]
			switch srcLine {
			case ph.LineNumber:
				return sec, ph, lineSwara
			case ph.LineNumber + 1:
				return sec, ph, lineSahitya
			}
		}
	}
	return nil, nil, lineOther
}

func describeMelodicToken(token string, scopeGati int) string {
	text, _, _ := notation.StripGati(token)
	units := notation.MelodicUnits(text)
	g := notation.TokenGati(token, scopeGati)

	var b strings.Builder
	fmt.Fprintf(&b, "Melodic token %q — %d unit(s), gati %d", text, len(units), g)
	if name, ok := gatiNames[g]; ok {
		b.WriteString(" (" + name + ")")
	}
	for _, u := range units {
		b.WriteString("\n  " + describeUnit(u))
	}
	return b.String()
}

func describeUnit(u string) string {
	switch u {
	case ",":
		return ", — sustain (extends the previous note)"
	case "-":
		return "- — rest"
	}
	base := u
	var octave string
	if n := strings.Count(base, "'"); n > 0 {
		octave = " (upper octave)"
		base = strings.ReplaceAll(base, "'", "")
	}
	if n := strings.Count(base, "."); n > 0 {
		octave = " (lower octave)"
		base = strings.ReplaceAll(base, ".", "")
	}
	name, ok := swaraNames[base]
	if !ok && len(base) > 0 {
		name, ok = swaraBase[base[0]], swaraBase[base[0]] != ""
	}
	if !ok {
		return u
	}
	return u + " — " + name + octave
}

// describeTala expands a pattern into its beat gestures.
func describeTala(pattern string) string {
	parts := make([]string, 0, len(pattern))
	for _, ch := range pattern {
		switch {
		case ch == '+':
			parts = append(parts, "clap")
		case ch == '0':
			parts = append(parts, "wave")
		case ch >= '2' && ch <= '9':
			parts = append(parts, "count "+string(ch))
		default:
			parts = append(parts, fmt.Sprintf("invalid %q", ch))
		}
	}
	desc := fmt.Sprintf("%d beats: %s", len(parts), strings.Join(parts, ", "))
	if name, ok := notation.TalaName(pattern); ok {
		return name + " tala — " + desc
	}
	return "Tala pattern — " + desc
}

// tokenAt returns the whitespace-delimited token covering a 0-based rune
// offset, with its start and end offsets.
func tokenAt(lineText string, character int) (token string, start, end int, ok bool) {
	rs := []rune(lineText)
	if character < 0 || character >= len(rs) || rs[character] == ' ' || rs[character] == '\t' {
		return "", 0, 0, false
	}
	start = character
	for start > 0 && rs[start-1] != ' ' && rs[start-1] != '\t' {
		start--
	}
	end = character
	for end < len(rs) && rs[end] != ' ' && rs[end] != '\t' {
		end++
	}
	return string(rs[start:end]), start, end, true
}
