/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package translit converts between ISO 15919 romanization and the Indic
// scripts used for Carnatic lyrics. Every mapping is a bijection per
// scheme, so a round trip through a native script reproduces the Latin
// input exactly; text outside a scheme's table is reported as an error
// rather than approximated. Native-script output groups into grapheme
// clusters that match sung syllables, which is what the syllabifier
// relies on.
package translit

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scheme is one script's bidirectional transliteration table.
type Scheme struct {
	Name   string
	Virama rune

	vowels     map[string]rune // independent vowel letters
	matras     map[string]rune // dependent vowel signs, "a" is inherent
	consonants map[string]rune
	signs      map[string]rune // anusvara, visarga

	latinVowel     map[rune]string
	latinMatra     map[rune]string
	latinConsonant map[rune]string
	latinSign      map[rune]string

	maxKey int // longest Latin key, in runes
}

type mapping struct {
	latin  string
	native rune
}

func newScheme(name string, virama rune, vowels, matras, consonants, signs []mapping) *Scheme {
	s := &Scheme{
		Name:           name,
		Virama:         virama,
		vowels:         make(map[string]rune),
		matras:         make(map[string]rune),
		consonants:     make(map[string]rune),
		signs:          make(map[string]rune),
		latinVowel:     make(map[rune]string),
		latinMatra:     make(map[rune]string),
		latinConsonant: make(map[rune]string),
		latinSign:      make(map[rune]string),
	}
	load := func(ms []mapping, fwd map[string]rune, rev map[rune]string) {
		for _, m := range ms {
			fwd[m.latin] = m.native
			rev[m.native] = m.latin
			if n := len([]rune(m.latin)); n > s.maxKey {
				s.maxKey = n
			}
		}
	}
	load(vowels, s.vowels, s.latinVowel)
	load(matras, s.matras, s.latinMatra)
	load(consonants, s.consonants, s.latinConsonant)
	load(signs, s.signs, s.latinSign)
	return s
}

// ForLanguage selects the scheme for a composition language. Telugu and
// Tamil have their own scripts; Sanskrit, Hindi and everything else fall
// back to Devanagari, which also covers the unset case.
func ForLanguage(language string) *Scheme {
	switch language {
	case "telugu":
		return Telugu
	case "tamil":
		return Tamil
	default:
		return Devanagari
	}
}

// FromLatin converts ISO 15919 text to the scheme's native script.
// Input is NFC-normalized first so combining-mark spellings of ā, ṅ and
// friends match the composed table keys. Unknown characters fail the
// whole conversion.
func (s *Scheme) FromLatin(text string) (string, error) {
	runes := []rune(norm.NFC.String(text))
	var out strings.Builder
	afterConsonant := false
	for i := 0; i < len(runes); {
		tok, n := s.matchLatin(runes[i:])
		if n == 0 {
			return "", fmt.Errorf("no %s mapping for %q", s.Name, runes[i])
		}
		if s.has(s.consonants, tok) && i+n < len(runes) && runes[i+n] == 'h' {
			// The scheme has no letter for this aspirated stop, so the
			// digraph must fail as a unit instead of splitting into
			// stop + h.
			if dig := tok + "h"; aspirates[dig] && !s.has(s.consonants, dig) {
				return "", fmt.Errorf("no %s mapping for %q", s.Name, dig)
			}
		}
		switch {
		case s.has(s.consonants, tok):
			if afterConsonant {
				out.WriteRune(s.Virama)
			}
			out.WriteRune(s.consonants[tok])
			afterConsonant = true
		case s.has(s.vowels, tok):
			if afterConsonant {
				if tok != "a" {
					out.WriteRune(s.matras[tok])
				}
			} else {
				out.WriteRune(s.vowels[tok])
			}
			afterConsonant = false
		default:
			if afterConsonant {
				out.WriteRune(s.Virama)
				afterConsonant = false
			}
			out.WriteRune(s.signs[tok])
		}
		i += n
	}
	if afterConsonant {
		out.WriteRune(s.Virama)
	}
	return out.String(), nil
}

// ToLatin converts native-script text back to ISO 15919. A consonant
// followed by neither a virama nor a vowel sign carries the inherent a.
func (s *Scheme) ToLatin(text string) (string, error) {
	runes := []rune(text)
	var out strings.Builder
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if lat, ok := s.latinConsonant[r]; ok {
			out.WriteString(lat)
			if i+1 < len(runes) {
				if runes[i+1] == s.Virama {
					i++
					continue
				}
				if m, ok := s.latinMatra[runes[i+1]]; ok {
					out.WriteString(m)
					i++
					continue
				}
			}
			out.WriteString("a")
			continue
		}
		if lat, ok := s.latinVowel[r]; ok {
			out.WriteString(lat)
			continue
		}
		if lat, ok := s.latinSign[r]; ok {
			out.WriteString(lat)
			continue
		}
		return "", fmt.Errorf("no %s mapping for %q", s.Name, r)
	}
	return out.String(), nil
}

// aspirates lists the ISO 15919 aspirated stop digraphs. Devanagari and
// Telugu carry letters for all of them; Tamil carries none.
var aspirates = map[string]bool{
	"kh": true, "gh": true, "ch": true, "jh": true, "ṭh": true,
	"ḍh": true, "th": true, "dh": true, "ph": true, "bh": true,
}

func (s *Scheme) matchLatin(runes []rune) (string, int) {
	for n := s.maxKey; n >= 1; n-- {
		if n > len(runes) {
			continue
		}
		tok := string(runes[:n])
		if s.has(s.consonants, tok) || s.has(s.vowels, tok) || s.has(s.signs, tok) {
			return tok, n
		}
	}
	return "", 0
}

func (s *Scheme) has(m map[string]rune, key string) bool {
	_, ok := m[key]
	return ok
}

// Devanagari distinguishes short e/o (ऎ/ऒ) from long ē/ō (ए/ओ) so that
// Dravidian-language lyrics round-trip; plain Sanskrit text never emits
// the short forms.
var Devanagari = newScheme("devanagari", '्',
	[]mapping{
		{"a", 'अ'}, {"ā", 'आ'}, {"i", 'इ'}, {"ī", 'ई'}, {"u", 'उ'}, {"ū", 'ऊ'},
		{"r̥", 'ऋ'}, {"e", 'ऎ'}, {"ē", 'ए'}, {"ai", 'ऐ'}, {"o", 'ऒ'}, {"ō", 'ओ'}, {"au", 'औ'},
	},
	[]mapping{
		{"ā", 'ा'}, {"i", 'ि'}, {"ī", 'ी'}, {"u", 'ु'}, {"ū", 'ू'},
		{"r̥", 'ृ'}, {"e", 'ॆ'}, {"ē", 'े'}, {"ai", 'ै'}, {"o", 'ॊ'}, {"ō", 'ो'}, {"au", 'ौ'},
	},
	[]mapping{
		{"k", 'क'}, {"kh", 'ख'}, {"g", 'ग'}, {"gh", 'घ'}, {"ṅ", 'ङ'},
		{"c", 'च'}, {"ch", 'छ'}, {"j", 'ज'}, {"jh", 'झ'}, {"ñ", 'ञ'},
		{"ṭ", 'ट'}, {"ṭh", 'ठ'}, {"ḍ", 'ड'}, {"ḍh", 'ढ'}, {"ṇ", 'ण'},
		{"t", 'त'}, {"th", 'थ'}, {"d", 'द'}, {"dh", 'ध'}, {"n", 'न'},
		{"p", 'प'}, {"ph", 'फ'}, {"b", 'ब'}, {"bh", 'भ'}, {"m", 'म'},
		{"y", 'य'}, {"r", 'र'}, {"l", 'ल'}, {"v", 'व'},
		{"ś", 'श'}, {"ṣ", 'ष'}, {"s", 'स'}, {"h", 'ह'},
		{"ḷ", 'ळ'}, {"ḻ", 'ऴ'}, {"ṟ", 'ऱ'}, {"ṉ", 'ऩ'},
	},
	[]mapping{{"ṁ", 'ं'}, {"ḥ", 'ः'}},
)

var Telugu = newScheme("telugu", '్',
	[]mapping{
		{"a", 'అ'}, {"ā", 'ఆ'}, {"i", 'ఇ'}, {"ī", 'ఈ'}, {"u", 'ఉ'}, {"ū", 'ఊ'},
		{"r̥", 'ఋ'}, {"e", 'ఎ'}, {"ē", 'ఏ'}, {"ai", 'ఐ'}, {"o", 'ఒ'}, {"ō", 'ఓ'}, {"au", 'ఔ'},
	},
	[]mapping{
		{"ā", 'ా'}, {"i", 'ి'}, {"ī", 'ీ'}, {"u", 'ు'}, {"ū", 'ూ'},
		{"r̥", 'ృ'}, {"e", 'ె'}, {"ē", 'ే'}, {"ai", 'ై'}, {"o", 'ొ'}, {"ō", 'ో'}, {"au", 'ౌ'},
	},
	[]mapping{
		{"k", 'క'}, {"kh", 'ఖ'}, {"g", 'గ'}, {"gh", 'ఘ'}, {"ṅ", 'ఙ'},
		{"c", 'చ'}, {"ch", 'ఛ'}, {"j", 'జ'}, {"jh", 'ఝ'}, {"ñ", 'ఞ'},
		{"ṭ", 'ట'}, {"ṭh", 'ఠ'}, {"ḍ", 'డ'}, {"ḍh", 'ఢ'}, {"ṇ", 'ణ'},
		{"t", 'త'}, {"th", 'థ'}, {"d", 'ద'}, {"dh", 'ధ'}, {"n", 'న'},
		{"p", 'ప'}, {"ph", 'ఫ'}, {"b", 'బ'}, {"bh", 'భ'}, {"m", 'మ'},
		{"y", 'య'}, {"r", 'ర'}, {"l", 'ల'}, {"v", 'వ'},
		{"ś", 'శ'}, {"ṣ", 'ష'}, {"s", 'స'}, {"h", 'హ'},
		{"ḷ", 'ళ'}, {"ṟ", 'ఱ'},
	},
	[]mapping{{"ṁ", 'ం'}, {"ḥ", 'ః'}},
)

// Tamil has no voiced or aspirated stop letters, so tokens like gīta or
// khi fail conversion there and the caller falls back to heuristics.
var Tamil = newScheme("tamil", '்',
	[]mapping{
		{"a", 'அ'}, {"ā", 'ஆ'}, {"i", 'இ'}, {"ī", 'ஈ'}, {"u", 'உ'}, {"ū", 'ஊ'},
		{"e", 'எ'}, {"ē", 'ஏ'}, {"ai", 'ஐ'}, {"o", 'ஒ'}, {"ō", 'ஓ'}, {"au", 'ஔ'},
	},
	[]mapping{
		{"ā", 'ா'}, {"i", 'ி'}, {"ī", 'ீ'}, {"u", 'ு'}, {"ū", 'ூ'},
		{"e", 'ெ'}, {"ē", 'ே'}, {"ai", 'ை'}, {"o", 'ொ'}, {"ō", 'ோ'}, {"au", 'ௌ'},
	},
	[]mapping{
		{"k", 'க'}, {"ṅ", 'ங'}, {"c", 'ச'}, {"ñ", 'ஞ'}, {"ṭ", 'ட'}, {"ṇ", 'ண'},
		{"t", 'த'}, {"n", 'ந'}, {"p", 'ப'}, {"m", 'ம'},
		{"y", 'ய'}, {"r", 'ர'}, {"l", 'ல'}, {"v", 'வ'},
		{"ḻ", 'ழ'}, {"ḷ", 'ள'}, {"ṟ", 'ற'}, {"ṉ", 'ன'},
		{"j", 'ஜ'}, {"ś", 'ஶ'}, {"ṣ", 'ஷ'}, {"s", 'ஸ'}, {"h", 'ஹ'},
	},
	[]mapping{{"ṁ", 'ஂ'}, {"ḥ", 'ஃ'}},
)
