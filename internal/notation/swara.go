/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

import (
	"strconv"
	"strings"
)

// noteLetters are the seven swara letters of the sargam system.
const noteLetters = "SRGMPDN"

// MelodicUnits decomposes a melodic token into its atomic units, scanning
// left to right: a comma (sustain) or dash (rest) is its own one-character
// unit; a note letter absorbs one optional variant digit 1-3 and any
// following octave markers (. for lower, ' for upper) into a single unit.
// Unrecognized characters are skipped — annotation characters may appear in
// tokens and do not count as units. Never fails; an empty result is legal.
func MelodicUnits(token string) []string {
	var units []string
	rs := []rune(token)
	for i := 0; i < len(rs); i++ {
		switch ch := rs[i]; {
		case ch == ',':
			units = append(units, ",")
		case ch == '-':
			units = append(units, "-")
		case strings.ContainsRune(noteLetters, ch):
			j := i + 1
			if j < len(rs) && rs[j] >= '1' && rs[j] <= '3' {
				j++
			}
			for j < len(rs) && (rs[j] == '.' || rs[j] == '\'') {
				j++
			}
			units = append(units, string(rs[i:j]))
			i = j - 1
		}
	}
	return units
}

// StripGati splits an optional token-level gati override off a melodic
// token. For "SRG:3" it returns ("SRG", "3", true); without a colon it
// returns the token unchanged and ok false. The override text is not
// validated here — the validator reports non-numeric overrides, and
// TokenGati falls back past them.
func StripGati(token string) (text, override string, ok bool) {
	if i := strings.IndexByte(token, ':'); i >= 0 {
		return token[:i], token[i+1:], true
	}
	return token, "", false
}

// TokenGati resolves the subdivision for a single melodic token: a valid
// :n override wins, anything else falls back to the given scope value.
func TokenGati(token string, fallback int) int {
	_, override, ok := StripGati(token)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(override)
	if err != nil || v < 0 || v > 255 {
		return fallback
	}
	return v
}
