/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package translit

import (
	"github.com/apparentlymart/go-textseg/v15/textseg"
)

// Clusters splits native-script text into the grapheme clusters a singer
// treats as syllables. On top of UAX #29 segmentation it merges conjunct
// sequences: a cluster ending in the scheme's virama joins the following
// consonant cluster, so न + ् + न becomes the single unit न्न rather than
// two. Dangling viramas at the end of the text stay where they are and
// read back as bare consonants.
func (s *Scheme) Clusters(text string) []string {
	raw, err := textseg.AllTokens([]byte(text), textseg.ScanGraphemeClusters)
	if err != nil {
		return []string{text}
	}
	var out []string
	for _, tok := range raw {
		c := string(tok)
		if len(out) > 0 && s.endsWithVirama(out[len(out)-1]) && s.startsWithConsonant(c) {
			out[len(out)-1] += c
			continue
		}
		out = append(out, c)
	}
	return out
}

func (s *Scheme) endsWithVirama(cluster string) bool {
	runes := []rune(cluster)
	return len(runes) > 0 && runes[len(runes)-1] == s.Virama
}

func (s *Scheme) startsWithConsonant(cluster string) bool {
	for _, r := range cluster {
		_, ok := s.latinConsonant[r]
		return ok
	}
	return false
}
