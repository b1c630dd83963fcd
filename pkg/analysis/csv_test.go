package analysis

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
)

// TestWriteRecords verifies the column schema, value formatting and the
// empty-field rendering of absent subtracted statistics.
func TestWriteRecords(t *testing.T) {
	sub := 150.0
	records := []Record{
		{
			RoiID: 1, RoiName: "pb-1",
			NPixels: 25, NBackgroundPixels: 40,
			MeanRaw: 200, MedianRaw: 198.5,
			Background:     50,
			BackgroundMean: 51.2, BackgroundStd: 4.5,
			MeanBgSubtracted: &sub, MedianBgSubtracted: &sub,
		},
		{
			RoiID: 2, RoiName: "pb-2",
			NPixels: 10, NBackgroundPixels: 12,
			MeanRaw: 20, MedianRaw: 19,
			Background:     30,
			BackgroundMean: 31, BackgroundStd: 2,
		},
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	if err := WriteRecords(path, records); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d rows", len(rows))
	}

	wantHeader := []string{
		"roi_id", "roi_name", "n_pixels", "n_background_pixels",
		"mean_raw", "median_raw", "background",
		"mean_bg_subtracted", "median_bg_subtracted",
		"background_mean", "background_std",
	}
	for i, col := range wantHeader {
		if rows[0][i] != col {
			t.Errorf("header column %d: expected %q, got %q", i, col, rows[0][i])
		}
	}

	if rows[1][0] != "1" || rows[1][1] != "pb-1" || rows[1][7] != "150" {
		t.Errorf("row 1 rendered wrong: %v", rows[1])
	}
	if rows[1][5] != "198.5" {
		t.Errorf("expected median_raw 198.5, got %q", rows[1][5])
	}

	// Negative subtractions are withheld: empty fields, never 0 or NaN.
	if rows[2][7] != "" || rows[2][8] != "" {
		t.Errorf("expected empty subtracted fields, got %q and %q", rows[2][7], rows[2][8])
	}
}

// TestWriteRecordsEmpty verifies that an empty record set still produces a
// parseable header-only table.
func TestWriteRecordsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := WriteRecords(path, nil); err != nil {
		t.Fatalf("WriteRecords failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("opening output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("parsing output: %v", err)
	}
	if len(rows) != 1 || len(rows[0]) != len(columns) {
		t.Errorf("expected a single header row with %d columns, got %v", len(columns), rows)
	}
}

// TestWriteRecordsBadPath verifies the error path for an unwritable target.
func TestWriteRecordsBadPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.csv")
	if err := WriteRecords(path, nil); err == nil {
		t.Errorf("expected an error for a nonexistent directory")
	}
}
