// Package resolve maps a condition directory to the concrete input files of
// one analysis configuration. The core pipeline consumes only resolved,
// typed input sets; all filename heuristics live here.
package resolve

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"enrichquant/internal/models"
	"enrichquant/pkg/config"
)

// MissingInputError reports that a required input file could not be uniquely
// resolved for a configuration. The configuration is skipped for that
// condition; processing of other configurations continues.
type MissingInputError struct {
	// Selector names the input that failed (channel, particle, dilated)
	Selector string

	// Keywords are the keywords that were searched for
	Keywords []string

	// Matches is the number of files that matched (0 or >1)
	Matches int
}

func (e *MissingInputError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no file matches %s keywords %v", e.Selector, e.Keywords)
	}
	return fmt.Sprintf("%d files match %s keywords %v, need exactly one", e.Matches, e.Selector, e.Keywords)
}

// Resolver resolves the inputs of one configuration within a condition
// directory, or reports a missing result.
type Resolver interface {
	Resolve(dir string, cfg config.Configuration) (models.ResolvedInputs, error)
}

// KeywordResolver matches files whose names contain every keyword of a
// selector, case-insensitively. Intensity images are matched among image
// files, ROI archives among zip files. Exactly one match is required per
// selector.
type KeywordResolver struct{}

// NewKeywordResolver creates the default resolver.
func NewKeywordResolver() *KeywordResolver {
	return &KeywordResolver{}
}

// Resolve implements Resolver.
func (r *KeywordResolver) Resolve(dir string, cfg config.Configuration) (models.ResolvedInputs, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.ResolvedInputs{}, errors.Wrapf(err, "reading condition directory %s", dir)
	}

	var images, archives []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".tif", ".tiff", ".png":
			images = append(images, e.Name())
		case ".zip":
			archives = append(archives, e.Name())
		}
	}
	sort.Strings(images)
	sort.Strings(archives)

	intensity, err := matchOne("channel", images, cfg.ChannelKeywords, nil)
	if err != nil {
		return models.ResolvedInputs{}, err
	}

	// The particle selector must not pick up the dilated archive: any
	// keyword unique to the dilated selector acts as an exclusion.
	exclude := keywordsOnlyIn(cfg.DilatedKeywords, cfg.ParticleKeywords)
	particle, err := matchOne("particle", archives, cfg.ParticleKeywords, exclude)
	if err != nil {
		return models.ResolvedInputs{}, err
	}

	dilated, err := matchOne("dilated", archives, cfg.DilatedKeywords, nil)
	if err != nil {
		return models.ResolvedInputs{}, err
	}

	return models.ResolvedInputs{
		IntensityPath:   filepath.Join(dir, intensity),
		ParticleROIPath: filepath.Join(dir, particle),
		DilatedROIPath:  filepath.Join(dir, dilated),
	}, nil
}

func matchOne(selector string, names, keywords, exclude []string) (string, error) {
	var matches []string
	for _, name := range names {
		if containsAll(name, keywords) && !containsAny(name, exclude) {
			matches = append(matches, name)
		}
	}
	if len(matches) != 1 {
		return "", &MissingInputError{Selector: selector, Keywords: keywords, Matches: len(matches)}
	}
	return matches[0], nil
}

func containsAll(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if !strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}
	return true
}

func containsAny(name string, keywords []string) bool {
	lower := strings.ToLower(name)
	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// keywordsOnlyIn returns the keywords of a that do not appear in b.
func keywordsOnlyIn(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, kw := range b {
		inB[strings.ToLower(kw)] = true
	}
	var out []string
	for _, kw := range a {
		if !inB[strings.ToLower(kw)] {
			out = append(out, kw)
		}
	}
	return out
}
