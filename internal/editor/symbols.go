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
	"strings"

	"vna/internal/notation"
)

// Symbol is one outline node; sections nest their phrases as children.
// Ranges are 0-based with an exclusive end line.
type Symbol struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Range    Range    `json:"range"`
	Children []Symbol `json:"children,omitempty"`
}

// Symbols builds the document outline: one node per section, one child
// per phrase.
func Symbols(doc *notation.Document) []Symbol {
	out := make([]Symbol, 0, len(doc.Sections))
	for i := range doc.Sections {
		sec := &doc.Sections[i]
		node := Symbol{
			Name: sec.Name,
			Kind: "section",
			Range: Range{
				Start: Position{Line: zeroBased(sec.LineNumber)},
				End:   Position{Line: sec.LineNumber},
			},
		}
		for j := range sec.Phrases {
			ph := &sec.Phrases[j]
			last := phraseLastLine(ph)
			node.Children = append(node.Children, Symbol{
				Name: phraseLabel(ph),
				Kind: "phrase",
				Range: Range{
					Start: Position{Line: zeroBased(ph.LineNumber)},
					End:   Position{Line: last},
				},
			})
			if last > node.Range.End.Line {
				node.Range.End.Line = last
			}
		}
		out = append(out, node)
	}
	return out
}

// phraseLastLine is the 1-based last source line of a phrase, which as a
// 0-based exclusive end is the same number.
func phraseLastLine(ph *notation.Phrase) int {
	last := ph.LineNumber + 1
	if ph.PhraseAnalysis != "" {
		last++
	}
	return last
}

// phraseLabel summarizes a phrase by its opening swara tokens.
func phraseLabel(ph *notation.Phrase) string {
	const max = 4
	if len(ph.Swaras) <= max {
		return strings.Join(ph.Swaras, " ")
	}
	return strings.Join(ph.Swaras[:max], " ") + " …"
}
