package dedup

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id string, v float64) Entry {
	return Entry{"id": id, "v": v}
}

func TestOptions_KeepsOneOfEach(t *testing.T) {
	in := []Entry{entry("A", 1), entry("A", 1), entry("B", 2)}

	out, err := Options(in)
	require.NoError(t, err)
	assert.Equal(t, []Entry{entry("A", 1), entry("B", 2)}, out)

	again, err := Options(out)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestOptions_DifferentValuesAreDistinct(t *testing.T) {
	in := []Entry{entry("A", 1), entry("B", 2), entry("A", 3), entry("B", 2)}

	out, err := Options(in)
	require.NoError(t, err)
	assert.Equal(t, []Entry{entry("A", 1), entry("A", 3), entry("B", 2)}, out)
}

func TestOptions_SurvivorTakesLastPosition(t *testing.T) {
	in := []Entry{entry("B", 2), entry("A", 1), entry("B", 2)}

	out, err := Options(in)
	require.NoError(t, err)
	assert.Equal(t, []Entry{entry("A", 1), entry("B", 2)}, out)
}

func TestFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "options_data.json")
	out := filepath.Join(dir, "options_data_clean.json")
	again := filepath.Join(dir, "options_data_clean2.json")

	// trailing comma exercises the repair path
	raw := `[
  {"date": "2024-03-04", "options": [
    {"id": "AMD $180.0 Call 2024-03-08", "percentage": 12.5, "time": "2024-03-03 23:00:00"},
    {"id": "AMD $180.0 Call 2024-03-08", "percentage": 12.5, "time": "2024-03-03 23:00:00"},
    {"id": "TSLA $200.0 Call 2024-03-08", "percentage": 0},
  ]},
  {"date": "2024-03-05"}
]`
	require.NoError(t, os.WriteFile(in, []byte(raw), 0o644))

	removed, err := File(in, out)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	recs, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Len(t, recs[0]["options"], 2)
	assert.Contains(t, string(data), "\n    {")

	removed, err = File(out, again)
	require.NoError(t, err)
	assert.Zero(t, removed)
	second, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(second))
}

func TestDecode_Unrepairable(t *testing.T) {
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}
