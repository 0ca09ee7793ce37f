/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package notation implements the .vna plain-text format for Carnatic
// compositions: a line-oriented parser producing a document tree, a
// melodic-unit tokenizer, a structural validator and a canonical formatter.
//
// A document starts with a YAML frontmatter block (--- delimited) holding at
// least title, raga and tala. The body holds # comments, [name] section
// headers, @gati:/@tala: overrides, and phrases: a melodic line over a lyric
// line, both divided by | beat markers and ended by ||, optionally followed
// by a "phrases = ..." analysis line.
package notation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Parse turns source text into a Document. It is fail-fast: the first
// structural problem aborts with a *ParseError carrying the offending
// 1-based line. Parsing never mutates its input and holds no state between
// calls, so concurrent calls on different inputs need no coordination.
func Parse(text string) (*Document, error) {
	lines := strings.Split(text, "\n")
	// A trailing newline is not an extra (empty) source line.
	if n := len(lines); n > 1 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	p := &parser{lines: lines}
	md, err := p.parseMetadata()
	if err != nil {
		return nil, err
	}
	doc := &Document{Metadata: md}
	if err := p.parseBody(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

type parser struct {
	lines []string
	pos   int
}

func (p *parser) atEnd() bool { return p.pos >= len(p.lines) }

// trimmed returns the current line with surrounding whitespace (and any
// carriage return) removed.
func (p *parser) trimmed() string {
	if p.atEnd() {
		return ""
	}
	return strings.TrimSpace(p.lines[p.pos])
}

func (p *parser) trimmedAt(i int) string {
	if i >= len(p.lines) {
		return ""
	}
	return strings.TrimSpace(p.lines[i])
}

func (p *parser) parseMetadata() (Metadata, error) {
	for !p.atEnd() && p.trimmed() == "" {
		p.pos++
	}
	if p.atEnd() || p.trimmed() != "---" {
		line := p.pos + 1
		if p.atEnd() {
			line = len(p.lines)
		}
		return Metadata{}, parseErrorf(ErrMissingFrontmatter, line, "document must begin with a YAML frontmatter block (---)")
	}
	openLine := p.pos + 1
	p.pos++

	var yamlLines []string
	for !p.atEnd() {
		if p.trimmed() == "---" {
			p.pos++
			break
		}
		yamlLines = append(yamlLines, strings.TrimSuffix(p.lines[p.pos], "\r"))
		p.pos++
	}

	body := strings.TrimSpace(strings.Join(yamlLines, "\n"))
	if body == "" {
		return Metadata{}, parseErrorf(ErrEmptyFrontmatter, openLine, "empty YAML frontmatter")
	}

	var md Metadata
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &md); err != nil {
		return Metadata{}, parseErrorf(ErrMalformedMetadata, openLine, "invalid YAML metadata: %v", err)
	}
	if err := checkMetadataScalarTypes([]byte(strings.Join(yamlLines, "\n"))); err != nil {
		return Metadata{}, parseErrorf(ErrMalformedMetadata, openLine, "invalid YAML metadata: %v", err)
	}
	if md.Tempo != nil && *md.Tempo < 0 {
		return Metadata{}, parseErrorf(ErrMalformedMetadata, openLine, "invalid YAML metadata: tempo must not be negative")
	}
	if md.Gati != nil && (*md.Gati < 0 || *md.Gati > 255) {
		return Metadata{}, parseErrorf(ErrMalformedMetadata, openLine, "invalid YAML metadata: gati out of range")
	}

	for _, f := range []struct{ name, value string }{
		{"title", md.Title},
		{"raga", md.Raga},
		{"tala", md.Tala},
	} {
		if f.value == "" {
			return Metadata{}, parseErrorf(ErrMissingRequiredField, openLine, "missing required field: %s", f.name)
		}
	}
	return md, nil
}

// stringMetadataKeys are the frontmatter keys declared as strings in
// Metadata. yaml.v3 would silently coerce a bare number or boolean into
// them; the format treats that as a type error.
var stringMetadataKeys = map[string]bool{
	"title": true, "raga": true, "tala": true, "type": true,
	"composer": true, "language": true, "key": true,
	"default_octave": true, "arohanam": true, "avarohanam": true,
}

// checkMetadataScalarTypes re-reads the frontmatter as a node tree and
// rejects non-string scalars in string-valued fields. A null (key with
// no value) passes; it decodes as the empty string, same as an absent
// key.
func checkMetadataScalarTypes(body []byte) error {
	var root yaml.Node
	if err := yaml.Unmarshal(body, &root); err != nil {
		return err
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil
	}
	m := root.Content[0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		key, val := m.Content[i], m.Content[i+1]
		if !stringMetadataKeys[key.Value] {
			continue
		}
		if val.Kind == yaml.ScalarNode && val.Tag != "!!str" && val.Tag != "!!null" {
			return fmt.Errorf("field %s must be a string, got a %s value",
				key.Value, strings.TrimPrefix(val.Tag, "!!"))
		}
	}
	return nil
}

func (p *parser) parseBody(doc *Document) error {
	for !p.atEnd() {
		t := p.trimmed()
		switch {
		case t == "":
			p.pos++
		case strings.HasPrefix(t, "#"):
			doc.Comments = append(doc.Comments, Comment{
				Text:       strings.TrimSpace(t[1:]),
				LineNumber: p.pos + 1,
				Type:       CommentLine,
			})
			p.pos++
		case strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"):
			sec, err := p.parseSection(t)
			if err != nil {
				return err
			}
			doc.Sections = append(doc.Sections, sec)
		default:
			return parseErrorf(ErrUnexpectedContent, p.pos+1, "unexpected content outside a section: %s", t)
		}
	}
	return nil
}

func (p *parser) parseSection(header string) (Section, error) {
	sec := Section{
		Name:       header[1 : len(header)-1],
		LineNumber: p.pos + 1,
	}
	p.pos++

	var pending []Comment
	for !p.atEnd() {
		t := p.trimmed()
		switch {
		case t == "":
			p.pos++

		case strings.HasPrefix(t, "#"):
			pending = append(pending, Comment{
				Text:       strings.TrimSpace(t[1:]),
				LineNumber: p.pos + 1,
				Type:       CommentSection,
			})
			p.pos++

		case strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"):
			// Next section; trailing comments stay with this one.
			sec.Comments = append(sec.Comments, pending...)
			return sec, nil

		case isAnnotation(t):
			if p.annotationRunPrecedesPhrase() {
				ph, err := p.parsePhrase(pending)
				if err != nil {
					return Section{}, err
				}
				pending = nil
				sec.Phrases = append(sec.Phrases, ph)
				continue
			}
			if strings.HasPrefix(t, "@gati:") {
				v, err := p.parseGatiValue(t)
				if err != nil {
					return Section{}, err
				}
				sec.Gati = &v
			} else {
				sec.Tala = talaValue(t)
			}
			p.pos++

		case strings.Contains(t, "|"):
			ph, err := p.parsePhrase(pending)
			if err != nil {
				return Section{}, err
			}
			pending = nil
			sec.Phrases = append(sec.Phrases, ph)

		default:
			return Section{}, parseErrorf(ErrUnexpectedContent, p.pos+1, "unexpected content in section [%s]: %s", sec.Name, t)
		}
	}
	sec.Comments = append(sec.Comments, pending...)
	return sec, nil
}

func isAnnotation(t string) bool {
	return strings.HasPrefix(t, "@gati:") || strings.HasPrefix(t, "@tala:")
}

// annotationRunPrecedesPhrase looks one line past the contiguous run of
// annotation lines at the cursor: when a melodic line follows directly, the
// run is phrase-scoped and parsePhrase consumes it; otherwise the
// annotations bind to the enclosing section.
func (p *parser) annotationRunPrecedesPhrase() bool {
	i := p.pos
	for i < len(p.lines) && isAnnotation(p.trimmedAt(i)) {
		i++
	}
	return i < len(p.lines) && strings.Contains(p.trimmedAt(i), "|")
}

func (p *parser) parseGatiValue(t string) (int, error) {
	raw := strings.TrimSpace(t[len("@gati:"):])
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 || v > 255 {
		return 0, parseErrorf(ErrInvalidGati, p.pos+1, "invalid gati value %q: expected a small positive integer", raw)
	}
	return v, nil
}

func talaValue(t string) string {
	return strings.Trim(strings.TrimSpace(t[len("@tala:"):]), `"`)
}

func (p *parser) parsePhrase(pending []Comment) (Phrase, error) {
	ph := Phrase{}
	for i := range pending {
		pending[i].Type = CommentPerformance
	}
	ph.PrecedingComments = pending

	// Phrase-scoped overrides directly above the melodic line.
	for !p.atEnd() {
		t := p.trimmed()
		if strings.HasPrefix(t, "@gati:") {
			v, err := p.parseGatiValue(t)
			if err != nil {
				return Phrase{}, err
			}
			ph.Gati = &v
			p.pos++
			continue
		}
		if strings.HasPrefix(t, "@tala:") {
			ph.Tala = talaValue(t)
			p.pos++
			continue
		}
		break
	}

	if p.pos+1 >= len(p.lines) {
		return Phrase{}, parseErrorf(ErrIncompletePhrase, p.pos+1, "incomplete phrase: a melodic line and a lyric line are required")
	}

	swaraLine := p.trimmed()
	if !strings.Contains(swaraLine, "|") {
		return Phrase{}, parseErrorf(ErrMissingBeatMarkers, p.pos+1, "melodic line has no beat markers")
	}
	ph.LineNumber = p.pos + 1
	ph.Swaras, ph.BeatPositions = splitBeatLine(swaraLine)
	p.pos++

	sahityaLine := p.trimmed()
	if !strings.Contains(sahityaLine, "|") {
		return Phrase{}, parseErrorf(ErrMissingBeatMarkers, p.pos+1, "lyric line has no beat markers")
	}
	var sahityaBeats []int
	ph.Sahitya, sahityaBeats = splitBeatLine(sahityaLine)
	p.pos++

	if !p.atEnd() {
		if t := p.trimmed(); strings.HasPrefix(t, "phrases = ") {
			ph.PhraseAnalysis = t[len("phrases = "):]
			p.pos++
		}
	}

	if !slices.Equal(ph.BeatPositions, sahityaBeats) {
		return Phrase{}, parseErrorf(ErrBeatMisalignment, ph.LineNumber,
			"beat markers misaligned between melodic and lyric lines: %v vs %v", ph.BeatPositions, sahityaBeats)
	}
	return ph, nil
}

// splitBeatLine tokenizes a notation line that has already been trimmed.
// One trailing || is stripped, the line is split on |, each segment is
// split on whitespace, and the running token count is recorded at every
// internal beat boundary (a boundary before any token is not recorded).
func splitBeatLine(line string) (tokens []string, beatPositions []int) {
	clean := strings.TrimSpace(strings.TrimSuffix(line, "||"))
	beats := strings.Split(clean, "|")
	for i, beat := range beats {
		tokens = append(tokens, strings.Fields(beat)...)
		if i < len(beats)-1 && len(tokens) > 0 {
			beatPositions = append(beatPositions, len(tokens))
		}
	}
	return tokens, beatPositions
}
