/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0
 */

package export

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Preset is a named PDF layout, loadable from a JSON document so users
// can ship their own sheet styles alongside an archive.
type Preset struct {
	Name          string  `json:"name"`
	PageSize      string  `json:"page_size"`
	MarginPt      float64 `json:"margin_pt,omitempty"`
	RowHeightPt   float64 `json:"row_height_pt,omitempty"`
	TitleSizePt   float64 `json:"title_size_pt,omitempty"`
	BodySizePt    float64 `json:"body_size_pt,omitempty"`
	DrawBeatRules bool    `json:"draw_beat_rules"`
	PageNumbers   bool    `json:"page_numbers"`
}

// PresetSchema validates user-supplied preset JSON before it is applied.
const PresetSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "vna layout preset",
  "type": "object",
  "required": ["name", "page_size"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "page_size": {"enum": ["a4", "letter"]},
    "margin_pt": {"type": "number", "minimum": 0},
    "row_height_pt": {"type": "number", "exclusiveMinimum": 0},
    "title_size_pt": {"type": "number", "exclusiveMinimum": 0},
    "body_size_pt": {"type": "number", "exclusiveMinimum": 0},
    "draw_beat_rules": {"type": "boolean"},
    "page_numbers": {"type": "boolean"}
  },
  "additionalProperties": false
}`

// Built-in presets. "concert" is the full-size default; "compact" packs
// more phrases per page for rehearsal copies.
var builtinPresets = map[string]Preset{
	"concert": {
		Name:          "concert",
		PageSize:      "a4",
		MarginPt:      54,
		RowHeightPt:   48,
		TitleSizePt:   18,
		BodySizePt:    11,
		DrawBeatRules: true,
		PageNumbers:   true,
	},
	"compact": {
		Name:          "compact",
		PageSize:      "a4",
		MarginPt:      36,
		RowHeightPt:   36,
		TitleSizePt:   14,
		BodySizePt:    9,
		DrawBeatRules: false,
		PageNumbers:   true,
	},
}

// PresetNames lists built-in preset names, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(builtinPresets))
	for name := range builtinPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetByName resolves a built-in preset.
func PresetByName(name string) (Preset, error) {
	p, ok := builtinPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q: available presets are %s", name, strings.Join(PresetNames(), ", "))
	}
	return p, nil
}

// LoadPreset reads a preset JSON file, validates it against PresetSchema,
// and fills unset numeric fields from the "concert" defaults.
func LoadPreset(path string) (Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Preset{}, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ParsePreset validates and decodes preset JSON.
func ParsePreset(data []byte) (Preset, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(PresetSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return Preset{}, fmt.Errorf("validate preset: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Preset{}, fmt.Errorf("invalid preset: %s", strings.Join(msgs, "; "))
	}
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return Preset{}, fmt.Errorf("decode preset: %w", err)
	}
	base := builtinPresets["concert"]
	if p.MarginPt == 0 {
		p.MarginPt = base.MarginPt
	}
	if p.RowHeightPt == 0 {
		p.RowHeightPt = base.RowHeightPt
	}
	if p.TitleSizePt == 0 {
		p.TitleSizePt = base.TitleSizePt
	}
	if p.BodySizePt == 0 {
		p.BodySizePt = base.BodySizePt
	}
	return p, nil
}

// Options converts the preset into typesetting options.
func (p Preset) Options() Options {
	return Options{
		PageSize:      p.PageSize,
		MarginPt:      p.MarginPt,
		RowHeightPt:   p.RowHeightPt,
		TitleSizePt:   p.TitleSizePt,
		BodySizePt:    p.BodySizePt,
		DrawBeatRules: p.DrawBeatRules,
		PageNumbers:   p.PageNumbers,
	}
}
