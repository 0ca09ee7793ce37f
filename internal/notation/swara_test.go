/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package notation

import (
	"reflect"
	"testing"
)

func TestMelodicUnits(t *testing.T) {
	cases := []struct {
		token string
		want  []string
	}{
		{"S", []string{"S"}},
		{"SRG", []string{"S", "R", "G"}},
		{"R2", []string{"R2"}},
		{"R2.", []string{"R2."}},
		{"S'", []string{"S'"}},
		{"N3..", []string{"N3.."}},
		{"S,,", []string{"S", ",", ","}},
		{"-", []string{"-"}},
		{"S-R", []string{"S", "-", "R"}},
		{"G,G", []string{"G", ",", "G"}},
		{"M1'P", []string{"M1'", "P"}},
		// The variant digit range is 1-3; other digits are ignored.
		{"S4", []string{"S"}},
		// Unknown characters contribute nothing.
		{"(S)", []string{"S"}},
		{"s r g", nil},
		{"", nil},
	}
	for _, c := range cases {
		got := MelodicUnits(c.token)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("MelodicUnits(%q) = %q, want %q", c.token, got, c.want)
		}
	}
}

func TestStripGati(t *testing.T) {
	cases := []struct {
		token, text, override string
		ok                    bool
	}{
		{"SRG:3", "SRG", "3", true},
		{"S", "S", "", false},
		{"S:", "S", "", true},
		{":3", "", "3", true},
		{"S:3:4", "S", "3:4", true},
	}
	for _, c := range cases {
		text, override, ok := StripGati(c.token)
		if text != c.text || override != c.override || ok != c.ok {
			t.Errorf("StripGati(%q) = (%q, %q, %v), want (%q, %q, %v)",
				c.token, text, override, ok, c.text, c.override, c.ok)
		}
	}
}

func TestTokenGati(t *testing.T) {
	cases := []struct {
		token    string
		fallback int
		want     int
	}{
		{"SRG:3", 4, 3},
		{"S", 4, 4},
		{"S:abc", 4, 4},
		{"S:300", 4, 4},
		{"S:0", 4, 0},
		{"S:7", 5, 7},
	}
	for _, c := range cases {
		if got := TokenGati(c.token, c.fallback); got != c.want {
			t.Errorf("TokenGati(%q, %d) = %d, want %d", c.token, c.fallback, got, c.want)
		}
	}
}
