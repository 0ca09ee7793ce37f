/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package sahitya splits lyric tokens into the time units that must line
// up one-to-one with melodic units. A dash is one unit of sustain. A
// backtick anywhere in a token switches it to explicit mode, where the
// author's backtick boundaries are the only syllable splits. Without
// backticks the token is syllabified automatically: each dash-free run
// is converted to a native Indic script, split on grapheme clusters and
// converted back, falling back to a vowel heuristic when the run cannot
// be represented in the script.
package sahitya

import (
	"strings"

	"vna/internal/translit"
)

// Units splits a sahitya token into sung units. language comes from the
// document metadata and selects the script used for automatic
// syllabification; it may be empty. The result is fully determined by
// the two arguments.
func Units(token, language string) []string {
	if strings.Contains(token, "`") {
		return explicitUnits(token)
	}
	return autoUnits(token, language)
}

// explicitUnits honors backtick boundaries verbatim. Dashes inside a
// backtick segment still count one unit each, so "yun`---" is four
// units; the automatic engine never sees the text.
func explicitUnits(token string) []string {
	var units []string
	for _, part := range strings.Split(token, "`") {
		units = append(units, splitDashes(part)...)
	}
	return units
}

func autoUnits(token, language string) []string {
	var units []string
	var run strings.Builder
	flush := func() {
		if run.Len() > 0 {
			units = append(units, syllables(run.String(), language)...)
			run.Reset()
		}
	}
	for _, r := range token {
		if r == '-' {
			flush()
			units = append(units, "-")
			continue
		}
		run.WriteRune(r)
	}
	flush()
	return units
}

func splitDashes(segment string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range segment {
		if r == '-' {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			out = append(out, "-")
			continue
		}
		cur.WriteRune(r)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// syllables splits one dash-free run. The native-script round trip is
// lossless by construction, so the concatenation of the returned
// syllables always reproduces the run (modulo Unicode normalization);
// any conversion failure drops the run down to the heuristic instead.
func syllables(run, language string) []string {
	if run == "" {
		return nil
	}
	scheme := translit.ForLanguage(language)
	native, err := scheme.FromLatin(run)
	if err != nil {
		return heuristicSyllables(run)
	}
	var out []string
	for _, cluster := range scheme.Clusters(native) {
		latin, err := scheme.ToLatin(cluster)
		if err != nil {
			return heuristicSyllables(run)
		}
		out = append(out, latin)
	}
	return out
}
