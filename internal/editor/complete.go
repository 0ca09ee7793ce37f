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

import "strings"

// CompletionItem is one completion candidate. Kind is "field", "section",
// "annotation" or "note"; clients filter by the typed prefix themselves.
type CompletionItem struct {
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// metadataKeys fixes the completion order of frontmatter fields; required
// keys come first.
var metadataKeys = []string{
	"title", "raga", "tala",
	"type", "tempo", "composer", "language", "key", "gati",
	"default_octave", "arohanam", "avarohanam",
}

var canonicalSections = []string{
	"pallavi", "anupallavi", "charanam",
	"muktayi swaram", "chittaswaram", "samashti charanam",
}

// Completions proposes candidates for the cursor context: frontmatter
// keys inside the metadata block, section names after an opening bracket,
// override annotations after @, and note tokens inside phrase lines.
func Completions(e *Entry, line, character int) []CompletionItem {
	lines := strings.Split(e.Text, "\n")
	if line < 0 || line >= len(lines) {
		return []CompletionItem{}
	}
	lineText := lines[line]
	if character < 0 {
		character = 0
	}
	if character > len([]rune(lineText)) {
		character = len([]rune(lineText))
	}
	prefix := strings.TrimLeft(string([]rune(lineText)[:character]), " \t")

	if inFrontmatter(lines, line) {
		return fieldCompletions(lines)
	}
	switch {
	case strings.HasPrefix(prefix, "["):
		return sectionCompletions()
	case strings.HasPrefix(prefix, "@"):
		return []CompletionItem{
			{Label: "@gati: ", Detail: "Subdivision override for the next section or phrase", Kind: "annotation"},
			{Label: "@tala: ", Detail: "Tala override for the next section or phrase", Kind: "annotation"},
		}
	}
	return noteCompletions()
}

// fieldCompletions lists frontmatter keys not yet present.
func fieldCompletions(lines []string) []CompletionItem {
	present := map[string]bool{}
	for i := 1; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if t == "---" {
			break
		}
		if j := strings.IndexByte(t, ':'); j > 0 {
			present[strings.TrimSpace(t[:j])] = true
		}
	}
	items := make([]CompletionItem, 0, len(metadataKeys))
	for _, key := range metadataKeys {
		if present[key] {
			continue
		}
		items = append(items, CompletionItem{Label: key + ": ", Detail: metadataHelp[key], Kind: "field"})
	}
	return items
}

func sectionCompletions() []CompletionItem {
	items := make([]CompletionItem, 0, len(canonicalSections))
	for _, name := range canonicalSections {
		items = append(items, CompletionItem{Label: name, Detail: sectionHelp[name], Kind: "section"})
	}
	return items
}

func noteCompletions() []CompletionItem {
	items := make([]CompletionItem, 0, 11)
	for _, letter := range []byte("SRGMPDN") {
		items = append(items, CompletionItem{Label: string(letter), Detail: swaraBase[letter], Kind: "note"})
	}
	items = append(items,
		CompletionItem{Label: ",", Detail: "Sustain previous note", Kind: "note"},
		CompletionItem{Label: "-", Detail: "Rest", Kind: "note"},
		CompletionItem{Label: "|", Detail: "Beat separator", Kind: "note"},
		CompletionItem{Label: "||", Detail: "Phrase end marker", Kind: "note"},
	)
	return items
}
