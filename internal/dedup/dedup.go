// Package dedup removes duplicate option entries from exported daily records.
package dedup

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kaptinlin/jsonrepair"
	"github.com/tidwall/pretty"
)

// Entry is one option entry as exported. Fields are kept as decoded so that
// unknown keys survive the round trip.
type Entry = map[string]any

// Record is one exported DailyRecord-shaped object.
type Record = map[string]any

var outputOptions = &pretty.Options{Width: 80, Indent: "    "}

// Options drops entries whose fields equal an entry seen later in the list:
// it reverses the list, keeps the first of each duplicate group and reverses
// back, so the survivor sits at the position of the last occurrence. Field
// equality ignores key order.
func Options(opts []Entry) ([]Entry, error) {
	seen := make(map[string]struct{}, len(opts))
	out := make([]Entry, 0, len(opts))
	for i := len(opts) - 1; i >= 0; i-- {
		key, err := canonical(opts[i])
		if err != nil {
			return nil, err
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, opts[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// Records applies Options to the "options" list of every record. Records
// without a list are left untouched. It returns the number of removed entries.
func Records(recs []Record) (int, error) {
	removed := 0
	for i, rec := range recs {
		raw, ok := rec["options"].([]any)
		if !ok {
			continue
		}
		entries := make([]Entry, 0, len(raw))
		for _, v := range raw {
			e, ok := v.(map[string]any)
			if !ok {
				return removed, fmt.Errorf("record %d: option entry is %T, not an object", i, v)
			}
			entries = append(entries, e)
		}
		kept, err := Options(entries)
		if err != nil {
			return removed, fmt.Errorf("record %d: %w", i, err)
		}
		removed += len(entries) - len(kept)

		list := make([]any, len(kept))
		for j, e := range kept {
			list[j] = e
		}
		rec["options"] = list
	}
	return removed, nil
}

// Decode parses an exported snapshot, repairing malformed JSON if needed.
func Decode(data []byte) ([]Record, error) {
	recs, err := decode(data)
	if err == nil {
		return recs, nil
	}
	repaired, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return decode([]byte(repaired))
}

func decode(data []byte) ([]Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var recs []Record
	if err := dec.Decode(&recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Encode renders records with four-space indentation. Object keys come out
// sorted.
func Encode(recs []Record) ([]byte, error) {
	data, err := json.Marshal(recs)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return pretty.PrettyOptions(data, outputOptions), nil
}

// File deduplicates the snapshot at in and writes the result to out.
func File(in, out string) (int, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", in, err)
	}
	recs, err := Decode(data)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", in, err)
	}
	removed, err := Records(recs)
	if err != nil {
		return 0, err
	}
	body, err := Encode(recs)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(out, body, 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", out, err)
	}
	return removed, nil
}

func canonical(e Entry) (string, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("canonical entry: %w", err)
	}
	return string(b), nil
}
