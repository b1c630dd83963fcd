package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"enrichquant/pkg/config"
)

// seedDir creates a condition directory populated with empty files of the
// given names.
func seedDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("seeding %s: %v", name, err)
		}
	}
	return dir
}

func testConfiguration() config.Configuration {
	return config.Configuration{
		Name:             "cap_pbody",
		ChannelKeywords:  []string{"Cap", "Intensity"},
		ParticleKeywords: []string{"PB", "Mask"},
		DilatedKeywords:  []string{"PB", "Dilated", "Mask"},
	}
}

// TestResolveUnique checks the happy path: one intensity image and the two
// archives, matched case-insensitively.
func TestResolveUnique(t *testing.T) {
	dir := seedDir(t,
		"cap_intensity_c1.tif",
		"G3BP1_Intensity_c2.tif",
		"pb_mask_rois.zip",
		"PB_Dilated_Mask_rois.zip",
		"SG_Mask_rois.zip",
		"SG_Dilated_Mask_rois.zip",
	)

	got, err := NewKeywordResolver().Resolve(dir, testConfiguration())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(got.IntensityPath) != "cap_intensity_c1.tif" {
		t.Errorf("wrong intensity image: %s", got.IntensityPath)
	}
	if filepath.Base(got.ParticleROIPath) != "pb_mask_rois.zip" {
		t.Errorf("wrong particle archive: %s", got.ParticleROIPath)
	}
	if filepath.Base(got.DilatedROIPath) != "PB_Dilated_Mask_rois.zip" {
		t.Errorf("wrong dilated archive: %s", got.DilatedROIPath)
	}
}

// TestResolveParticleExcludesDilated verifies that the particle selector
// never matches the dilated archive even though the dilated filename
// contains all particle keywords.
func TestResolveParticleExcludesDilated(t *testing.T) {
	dir := seedDir(t,
		"Cap_Intensity.tif",
		"PB_Mask.zip",
		"PB_Dilated_Mask.zip",
	)

	got, err := NewKeywordResolver().Resolve(dir, testConfiguration())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if filepath.Base(got.ParticleROIPath) != "PB_Mask.zip" {
		t.Errorf("particle selector matched the dilated archive: %s", got.ParticleROIPath)
	}
}

// TestResolveMissing verifies the zero-match error with the selector named.
func TestResolveMissing(t *testing.T) {
	dir := seedDir(t, "Cap_Intensity.tif", "PB_Dilated_Mask.zip")

	_, err := NewKeywordResolver().Resolve(dir, testConfiguration())
	merr, ok := err.(*MissingInputError)
	if !ok {
		t.Fatalf("expected *MissingInputError, got %v", err)
	}
	if merr.Selector != "particle" || merr.Matches != 0 {
		t.Errorf("expected zero particle matches, got %+v", merr)
	}
}

// TestResolveAmbiguous verifies the multiple-match error.
func TestResolveAmbiguous(t *testing.T) {
	dir := seedDir(t,
		"Cap_Intensity_a.tif",
		"Cap_Intensity_b.tif",
		"PB_Mask.zip",
		"PB_Dilated_Mask.zip",
	)

	_, err := NewKeywordResolver().Resolve(dir, testConfiguration())
	merr, ok := err.(*MissingInputError)
	if !ok {
		t.Fatalf("expected *MissingInputError, got %v", err)
	}
	if merr.Selector != "channel" || merr.Matches != 2 {
		t.Errorf("expected two channel matches, got %+v", merr)
	}
}

// TestResolveIgnoresUnrelatedFiles checks that only image and zip
// extensions enter the match pools.
func TestResolveIgnoresUnrelatedFiles(t *testing.T) {
	dir := seedDir(t,
		"Cap_Intensity.tif",
		"Cap_Intensity_notes.txt",
		"Cap_Intensity.csv",
		"PB_Mask.zip",
		"PB_Dilated_Mask.zip",
	)

	if _, err := NewKeywordResolver().Resolve(dir, testConfiguration()); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
}

// TestResolveMissingDirectory verifies the error for an unreadable
// condition directory.
func TestResolveMissingDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gone")
	if _, err := NewKeywordResolver().Resolve(dir, testConfiguration()); err == nil {
		t.Errorf("expected an error for a missing condition directory")
	}
}
