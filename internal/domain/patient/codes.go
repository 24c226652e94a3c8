package patient

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Boundary contract for report code fields: cpt_codes and icd9_codes arrive
// as either a JSON string array or a single comma-separated string;
// procedure_pairs as an array of two-element numeric arrays or a JSON-encoded
// string of the same shape; lab_events as a structured array of string groups
// or a comma-separated string split into groups. Malformed input is a
// per-field error, never a silently stored partial structure.

// labEventGroupSize is how many positional values make up one lab event
// (code, value, flag, reference) when parsing the flat comma-separated form.
const labEventGroupSize = 4

// normalizeCodeList accepts a JSON string array or a single comma-separated
// string and returns the trimmed, non-empty code values.
func normalizeCodeList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return trimNonEmpty(list), nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return trimNonEmpty(strings.Split(single, ",")), nil
	}

	return nil, fmt.Errorf("expected a string array or comma-separated string")
}

// normalizeProcedurePairs accepts an array of [code, units] pairs or a
// JSON-encoded string of the same shape.
func normalizeProcedurePairs(raw json.RawMessage) ([][2]int64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	// A JSON string holding the encoded array.
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if strings.TrimSpace(encoded) == "" {
			return nil, nil
		}
		raw = json.RawMessage(encoded)
	}

	var rows [][]int64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("expected an array of [code, units] pairs: %v", err)
	}

	pairs := make([][2]int64, 0, len(rows))
	for i, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("element %d has %d values, want 2", i, len(row))
		}
		pairs = append(pairs, [2]int64{row[0], row[1]})
	}
	return pairs, nil
}

// normalizeLabEvents accepts a structured array of string groups or a flat
// comma-separated string split into groups of labEventGroupSize.
func normalizeLabEvents(raw json.RawMessage) ([][]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var groups [][]string
	if err := json.Unmarshal(raw, &groups); err == nil {
		for i, g := range groups {
			if len(g) == 0 {
				return nil, fmt.Errorf("group %d is empty", i)
			}
		}
		return groups, nil
	}

	var flat string
	if err := json.Unmarshal(raw, &flat); err == nil {
		values := trimNonEmpty(strings.Split(flat, ","))
		if len(values) == 0 {
			return nil, nil
		}
		if len(values)%labEventGroupSize != 0 {
			return nil, fmt.Errorf("%d values do not divide into groups of %d", len(values), labEventGroupSize)
		}
		grouped := make([][]string, 0, len(values)/labEventGroupSize)
		for i := 0; i < len(values); i += labEventGroupSize {
			grouped = append(grouped, values[i:i+labEventGroupSize])
		}
		return grouped, nil
	}

	return nil, fmt.Errorf("expected an array of string groups or comma-separated string")
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
