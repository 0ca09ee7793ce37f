/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package translit

import (
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestForLanguage(t *testing.T) {
	cases := []struct {
		language string
		want     *Scheme
	}{
		{"telugu", Telugu},
		{"tamil", Tamil},
		{"sanskrit", Devanagari},
		{"hindi", Devanagari},
		{"kannada", Devanagari},
		{"malayalam", Devanagari},
		{"", Devanagari},
	}
	for _, c := range cases {
		if got := ForLanguage(c.language); got != c.want {
			t.Errorf("ForLanguage(%q) = %s, want %s", c.language, got.Name, c.want.Name)
		}
	}
}

func TestFromLatinDevanagari(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"ninnukori", "निन्नुकॊरि"},
		{"saṅgīta", "सङ्गीत"},
		{"nin", "निन्"},
		{"nā", "ना"},
		{"uko", "उकॊ"},
		{"ukō", "उको"},
	}
	for _, c := range cases {
		got, err := Devanagari.FromLatin(c.in)
		if err != nil {
			t.Fatalf("FromLatin(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("FromLatin(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFromLatinNormalizesCombiningMarks(t *testing.T) {
	// "nā" spelled with a combining macron instead of the precomposed ā.
	got, err := Devanagari.FromLatin("nā")
	if err != nil {
		t.Fatalf("FromLatin: %v", err)
	}
	if got != "ना" {
		t.Errorf("FromLatin(decomposed nā) = %q, want %q", got, "ना")
	}
}

func TestFromLatinUnknownCharacter(t *testing.T) {
	if _, err := Devanagari.FromLatin("fizz"); err == nil {
		t.Fatal("expected error for unmapped character f")
	}
	// Tamil lacks voiced and aspirated stops entirely.
	if _, err := Tamil.FromLatin("gīta"); err == nil {
		t.Fatal("expected error for g in tamil")
	}
	if _, err := Tamil.FromLatin("khi"); err == nil {
		t.Fatal("expected error for kh in tamil")
	}
	// kh may not silently split into k + Grantha ஹ; the same goes for
	// the other aspirates whose base stop Tamil does have.
	for _, in := range []string{"tha", "ṭhi", "pha", "chi"} {
		if _, err := Tamil.FromLatin(in); err == nil {
			t.Errorf("expected error for aspirate in %q in tamil", in)
		}
	}
	// Standalone h is the Grantha letter and stays valid.
	if got, err := Tamil.FromLatin("hari"); err != nil || got != "ஹரி" {
		t.Errorf("FromLatin(hari) = %q, %v", got, err)
	}
	// Schemes that have the aspirate letters are unaffected.
	if got, err := Devanagari.FromLatin("khi"); err != nil || got != "खि" {
		t.Errorf("FromLatin(khi) = %q, %v", got, err)
	}
}

func TestToLatinInherentVowelAndVirama(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"क", "ka"},
		{"न्", "n"},
		{"न्नु", "nnu"},
		{"ङ्गी", "ṅgī"},
		{"उ", "u"},
		{"सं", "saṁ"},
	}
	for _, c := range cases {
		got, err := Devanagari.ToLatin(c.in)
		if err != nil {
			t.Fatalf("ToLatin(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Errorf("ToLatin(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToLatinRejectsForeignText(t *testing.T) {
	if _, err := Devanagari.ToLatin("abc"); err == nil {
		t.Fatal("expected error for latin input")
	}
	if _, err := Telugu.ToLatin("निन्"); err == nil {
		t.Fatal("expected error for devanagari input on telugu scheme")
	}
}

func TestClustersJoinConjuncts(t *testing.T) {
	cases := []struct {
		scheme *Scheme
		in     string
		want   []string
	}{
		{Devanagari, "निन्नुकॊरि", []string{"नि", "न्नु", "कॊ", "रि"}},
		{Devanagari, "सङ्गीत", []string{"स", "ङ्गी", "त"}},
		{Devanagari, "निन्", []string{"नि", "न्"}},
		{Devanagari, "रि", []string{"रि"}},
		{Telugu, "ఉకొ", []string{"ఉ", "కొ"}},
	}
	for _, c := range cases {
		got := c.scheme.Clusters(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("Clusters(%q) = %q, want %q", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Errorf("Clusters(%q)[%d] = %q, want %q", c.in, i, got[i], c.want[i])
			}
		}
	}
}

// Conversion through the native script and back must reproduce the Latin
// input, since syllable counting depends on nothing being lost or
// respelled along the way.
func TestRoundTripPreservesInput(t *testing.T) {
	words := []string{
		"ninnukori", "saṅgīta", "nā", "yun", "vañcana", "ukō",
		"marugēlarā", "rāma", "kr̥ṣṇa", "tyāgarāja", "jagadānandakāraka",
	}
	for _, scheme := range []*Scheme{Devanagari, Telugu} {
		for _, w := range words {
			native, err := scheme.FromLatin(w)
			if err != nil {
				t.Fatalf("%s FromLatin(%q): %v", scheme.Name, w, err)
			}
			var back strings.Builder
			for _, cluster := range scheme.Clusters(native) {
				lat, err := scheme.ToLatin(cluster)
				if err != nil {
					t.Fatalf("%s ToLatin(%q): %v", scheme.Name, cluster, err)
				}
				back.WriteString(lat)
			}
			if got, want := back.String(), norm.NFC.String(w); got != want {
				t.Errorf("%s round trip of %q = %q", scheme.Name, w, got)
			}
		}
	}
}
