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
	"strings"
	"unicode/utf8"
)

// Format renders a document as canonical .vna text: quoted metadata in a
// fixed field order, swara and sahitya tokens padded to a shared column
// width so beat markers line up vertically, one trailing newline per
// line. Formatting a parsed document and reparsing preserves all content,
// and Format is idempotent on its own output.
func Format(doc *Document) string {
	var b strings.Builder
	formatMetadata(&b, &doc.Metadata)
	b.WriteByte('\n')

	for _, c := range doc.Comments {
		fmt.Fprintf(&b, "# %s\n", c.Text)
	}
	if len(doc.Comments) > 0 {
		b.WriteByte('\n')
	}

	for i := range doc.Sections {
		if i > 0 {
			b.WriteByte('\n')
		}
		formatSection(&b, &doc.Sections[i])
	}
	return b.String()
}

func formatMetadata(b *strings.Builder, md *Metadata) {
	b.WriteString("---\n")
	fmt.Fprintf(b, "title: %q\n", md.Title)
	fmt.Fprintf(b, "raga: %q\n", md.Raga)
	fmt.Fprintf(b, "tala: %q\n", md.Tala)
	if md.Composer != "" {
		fmt.Fprintf(b, "composer: %q\n", md.Composer)
	}
	if md.Language != "" {
		fmt.Fprintf(b, "language: %q\n", md.Language)
	}
	if md.Tempo != nil {
		fmt.Fprintf(b, "tempo: %d\n", *md.Tempo)
	}
	if md.Gati != nil {
		fmt.Fprintf(b, "gati: %d\n", *md.Gati)
	}
	if md.CompositionType != "" {
		fmt.Fprintf(b, "type: %q\n", md.CompositionType)
	}
	if md.Key != "" {
		fmt.Fprintf(b, "key: %q\n", md.Key)
	}
	if md.DefaultOctave != "" {
		fmt.Fprintf(b, "default_octave: %q\n", md.DefaultOctave)
	}
	if md.Arohanam != "" {
		fmt.Fprintf(b, "arohanam: %q\n", md.Arohanam)
	}
	if md.Avarohanam != "" {
		fmt.Fprintf(b, "avarohanam: %q\n", md.Avarohanam)
	}
	b.WriteString("---\n")
}

func formatSection(b *strings.Builder, sec *Section) {
	fmt.Fprintf(b, "[%s]\n", sec.Name)
	if sec.Gati != nil {
		fmt.Fprintf(b, "@gati: %d\n", *sec.Gati)
	}
	if sec.Tala != "" {
		fmt.Fprintf(b, "@tala: %q\n", sec.Tala)
	}
	// A blank line keeps section-scoped annotations from reading as
	// phrase-scoped when the output is parsed again.
	if (sec.Gati != nil || sec.Tala != "") && len(sec.Phrases) > 0 {
		b.WriteByte('\n')
	}
	for _, c := range sec.Comments {
		fmt.Fprintf(b, "# %s\n", c.Text)
	}
	for i := range sec.Phrases {
		ph := &sec.Phrases[i]
		for _, c := range ph.PrecedingComments {
			fmt.Fprintf(b, "# %s\n", c.Text)
		}
		if i > 0 && len(ph.PrecedingComments) == 0 {
			b.WriteByte('\n')
		}
		formatPhrase(b, ph)
	}
}

func formatPhrase(b *strings.Builder, ph *Phrase) {
	if ph.Gati != nil {
		fmt.Fprintf(b, "@gati: %d\n", *ph.Gati)
	}
	if ph.Tala != "" {
		fmt.Fprintf(b, "@tala: %q\n", ph.Tala)
	}

	widths := make([]int, len(ph.Swaras))
	for i := range ph.Swaras {
		widths[i] = utf8.RuneCountInString(ph.Swaras[i])
		if i < len(ph.Sahitya) {
			if w := utf8.RuneCountInString(ph.Sahitya[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	formatNotationLine(b, ph.Swaras, widths, ph.BeatPositions)
	formatNotationLine(b, ph.Sahitya, widths, ph.BeatPositions)

	if ph.PhraseAnalysis != "" {
		fmt.Fprintf(b, "phrases = %s\n", ph.PhraseAnalysis)
	}
}

// formatNotationLine pads every token to its column width, reinserting a
// beat marker after each recorded boundary count. The trailing || sits
// one space after the last (padded) column so it aligns across the pair
// of lines.
func formatNotationLine(b *strings.Builder, tokens []string, widths, beatPositions []int) {
	var parts []string
	beatIdx := 0
	for i, tok := range tokens {
		n := utf8.RuneCountInString(tok)
		w := n
		if i < len(widths) && widths[i] > n {
			w = widths[i]
		}
		parts = append(parts, tok+strings.Repeat(" ", w-n))
		if beatIdx < len(beatPositions) && i+1 == beatPositions[beatIdx] {
			parts = append(parts, "|")
			beatIdx++
		}
	}
	b.WriteString(strings.Join(parts, " "))
	b.WriteString(" ||\n")
}
