// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package upstream

import (
	"strconv"
	"strings"
)

// fieldAliases is the provider-drift table: one canonical field name per
// row, with the payload keys that may carry it in preference order. All
// extraction goes through this table; call sites never probe raw keys.
var fieldAliases = map[string][]string{
	"price":               {"price", "close", "last"},
	"open":                {"open"},
	"high":                {"high"},
	"low":                 {"low"},
	"close":               {"close"},
	"volume":              {"volume"},
	"change_percent":      {"change_percent", "percent_change", "change"},
	"fifty_two_week_high": {"fifty_two_week_high", "52_week_high"},
	"fifty_two_week_low":  {"fifty_two_week_low", "52_week_low"},
	"rate":                {"rate", "exchange_rate"},
	"result":              {"result", "amount"},
	"candles":             {"values", "candles", "data"},
	"indicator_values":    {"values", "data"},
}

// aliasesFor returns the alias chain for name, falling back to the name
// itself for fields with no table row.
func aliasesFor(name string) []string {
	if aliases, ok := fieldAliases[name]; ok {
		return aliases
	}
	return []string{name}
}

// Float extracts the canonical field name from data, walking the alias
// chain. A zero, empty, or unparsable value falls through to the next
// alias; providers zero-fill fields they cannot serve. Returns nil when no
// alias yields a usable value.
func Float(data map[string]any, name string) *float64 {
	for _, alias := range aliasesFor(name) {
		value, ok := data[alias]
		if !ok {
			continue
		}
		f, ok := toFloat(value)
		if !ok || f == 0 {
			continue
		}
		return &f
	}
	return nil
}

// Int extracts the canonical field name as an integer, with the same alias
// walk and fall-through rules as Float. Fractional values truncate.
func Int(data map[string]any, name string) *int64 {
	f := Float(data, name)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

// List extracts the canonical field name as an array. Empty arrays fall
// through to the next alias; returns nil when no alias holds a non-empty
// array.
func List(data map[string]any, name string) []any {
	for _, alias := range aliasesFor(name) {
		value, ok := data[alias]
		if !ok {
			continue
		}
		list, ok := value.([]any)
		if !ok || len(list) == 0 {
			continue
		}
		return list
	}
	return nil
}

// String extracts the canonical field name as a string, skipping empty
// values along the alias chain.
func String(data map[string]any, name string) string {
	for _, alias := range aliasesFor(name) {
		value, ok := data[alias]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}
		return s
	}
	return ""
}

// toFloat coerces JSON scalar shapes to float64: numbers pass through,
// numeric strings parse, everything else fails.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
