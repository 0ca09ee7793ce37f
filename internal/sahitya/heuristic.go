/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package sahitya

// heuristicSyllables is the script-free fallback for runs the
// transliteration tables cannot express. It closes a syllable at each
// vowel, with two exceptions: a doubled or lengthened vowel stays in the
// open syllable, and a consonant that is not followed by a vowel (closing
// consonant of a cluster, or word-final) is pulled into the syllable
// before it closes. A run with no recognizable vowel comes back whole.
func heuristicSyllables(run string) []string {
	runes := []rune(run)
	var out []string
	var cur []rune
	for i := 0; i < len(runes); i++ {
		cur = append(cur, runes[i])
		if !isVowel(runes[i]) {
			continue
		}
		if i+1 < len(runes) {
			next := runes[i+1]
			if isVowel(next) {
				if longVowelPair(runes[i], next) {
					continue
				}
			} else if i+2 >= len(runes) || !isVowel(runes[i+2]) {
				cur = append(cur, next)
				i++
			}
		}
		out = append(out, string(cur))
		cur = nil
	}
	if len(cur) > 0 {
		out = append(out, string(cur))
	}
	if len(out) == 0 {
		return []string{run}
	}
	return out
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'ā', 'i', 'ī', 'u', 'ū', 'e', 'ē', 'o', 'ō',
		'A', 'I', 'U', 'E', 'O':
		return true
	}
	return false
}

// longVowelPair reports whether two adjacent vowels spell one long
// vowel, i.e. a doubled letter or a plain letter next to its macron
// form.
func longVowelPair(first, second rune) bool {
	switch [2]rune{first, second} {
	case [2]rune{'a', 'a'}, [2]rune{'a', 'ā'}, [2]rune{'ā', 'a'},
		[2]rune{'i', 'i'}, [2]rune{'i', 'ī'}, [2]rune{'ī', 'i'},
		[2]rune{'u', 'u'}, [2]rune{'u', 'ū'}, [2]rune{'ū', 'u'},
		[2]rune{'e', 'e'}, [2]rune{'e', 'ē'}, [2]rune{'ē', 'e'},
		[2]rune{'o', 'o'}, [2]rune{'o', 'ō'}, [2]rune{'ō', 'o'}:
		return true
	}
	return false
}
