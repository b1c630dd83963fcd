package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"enrichquant/internal/models"
	"enrichquant/pkg/background"
	"enrichquant/pkg/config"
	"enrichquant/pkg/imgio"
	"enrichquant/pkg/mask"
	"enrichquant/pkg/raster"
	"enrichquant/pkg/resolve"
	"enrichquant/pkg/roi"
)

// Orchestrator iterates conditions × configurations, resolves inputs,
// runs the per-ROI pipeline and writes one output table per emitted pair.
//
// Failures are scoped to the smallest unit that can fail: a malformed ROI or
// a degenerate ring skips that ROI; a missing input or a set mismatch skips
// that (condition, configuration) pair; nothing in the pipeline aborts the
// run. The pipeline is embarrassingly parallel across pairs, so pairs are
// distributed over a worker pool and reassembled by index, which keeps the
// output order deterministic regardless of scheduling: condition first,
// configuration second, ROI index third.
type Orchestrator struct {
	baseDir  string
	cfg      *config.Config
	resolver resolve.Resolver
	log      zerolog.Logger
}

// pair is one unit of work.
type pair struct {
	index         int
	conditionDir  string
	condition     string
	configuration config.Configuration
}

// NewOrchestrator creates an orchestrator over the given base directory.
// Each subdirectory of baseDir is one condition.
func NewOrchestrator(baseDir string, cfg *config.Config, resolver resolve.Resolver, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		baseDir:  baseDir,
		cfg:      cfg,
		resolver: resolver,
		log:      log,
	}
}

// Run processes every (condition, configuration) pair and returns the run
// summary. Only an inaccessible base directory is fatal; everything else is
// reported per pair.
func (o *Orchestrator) Run() (*models.RunSummary, error) {
	conditions, err := o.listConditions()
	if err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, errors.Errorf("no condition directories found in %s", o.baseDir)
	}

	pairs := make([]pair, 0, len(conditions)*len(o.cfg.Configurations))
	for _, cond := range conditions {
		for _, conf := range o.cfg.Configurations {
			pairs = append(pairs, pair{
				index:         len(pairs),
				conditionDir:  filepath.Join(o.baseDir, cond),
				condition:     cond,
				configuration: conf,
			})
		}
	}

	o.log.Info().
		Int("conditions", len(conditions)).
		Int("configurations", len(o.cfg.Configurations)).
		Int("workers", o.cfg.Processing.Workers).
		Msg("starting analysis run")

	summaries := make([]models.PairSummary, len(pairs))
	jobs := make(chan pair)

	var wg sync.WaitGroup
	for w := 0; w < o.cfg.Processing.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				summaries[p.index] = o.processPair(p)
			}
		}()
	}
	for _, p := range pairs {
		jobs <- p
	}
	close(jobs)
	wg.Wait()

	return &models.RunSummary{
		Conditions: len(conditions),
		Pairs:      summaries,
	}, nil
}

// listConditions returns the sorted condition directory names.
func (o *Orchestrator) listConditions() ([]string, error) {
	entries, err := os.ReadDir(o.baseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading base directory %s", o.baseDir)
	}
	var conditions []string
	for _, e := range entries {
		if e.IsDir() {
			conditions = append(conditions, e.Name())
		}
	}
	sort.Strings(conditions)
	return conditions, nil
}

// processPair runs the state machine of one (condition, configuration)
// pair: Pending → InputsResolved | Skipped → RecordsEmitted.
func (o *Orchestrator) processPair(p pair) models.PairSummary {
	summary := models.PairSummary{
		Condition:     p.condition,
		Configuration: p.configuration.Name,
		Status:        models.Pending,
	}
	log := o.log.With().
		Str("condition", p.condition).
		Str("configuration", p.configuration.Name).
		Logger()

	inputs, err := o.resolver.Resolve(p.conditionDir, p.configuration)
	if err != nil {
		summary.Status = models.Skipped
		summary.SkipReason = err.Error()
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}
	summary.Status = models.InputsResolved

	img, err := imgio.LoadIntensity(inputs.IntensityPath)
	if err != nil {
		summary.Status = models.Skipped
		summary.SkipReason = err.Error()
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}

	particles, err := roi.ReadArchive(inputs.ParticleROIPath)
	if err != nil {
		summary.Status = models.Skipped
		summary.SkipReason = err.Error()
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}
	dilated, err := roi.ReadArchive(inputs.DilatedROIPath)
	if err != nil {
		summary.Status = models.Skipped
		summary.SkipReason = err.Error()
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}

	if len(particles) != len(dilated) {
		cerr := &CorrespondenceError{ParticleCount: len(particles), DilatedCount: len(dilated)}
		summary.Status = models.Skipped
		summary.SkipReason = cerr.Error()
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}

	records, rings, violated := o.processROIs(log, img, particles, dilated, &summary)

	// When an explicit max-background contract is violated by every ROI
	// that survived geometry checks, the configuration cannot produce a
	// single trustworthy record.
	if len(records) == 0 && violated > 0 {
		summary.Status = models.Skipped
		summary.SkipReason = fmt.Sprintf("max background contract violated by all %d rois", violated)
		log.Warn().Str("reason", summary.SkipReason).Msg("configuration skipped")
		return summary
	}

	outPath := filepath.Join(p.conditionDir,
		fmt.Sprintf("%s_%s_enrichment.csv", p.condition, p.configuration.Name))
	if err := WriteRecords(outPath, records); err != nil {
		summary.Status = models.Skipped
		summary.SkipReason = err.Error()
		log.Error().Err(err).Msg("failed to write output table")
		return summary
	}

	if o.cfg.Output.WriteRingMasks && len(rings) > 0 {
		ringPath := filepath.Join(p.conditionDir,
			fmt.Sprintf("%s_%s_rings.tif", p.condition, p.configuration.Name))
		if err := imgio.WriteMaskTIFF(ringPath, rings, img.Width, img.Height); err != nil {
			log.Warn().Err(err).Msg("failed to write ring mask image")
		}
	}

	summary.Status = models.RecordsEmitted
	summary.Records = len(records)
	log.Info().
		Int("records", summary.Records).
		Int("skipped_rois", summary.SkippedROIs).
		Int("enriched", summary.Enriched).
		Msg("configuration complete")
	return summary
}

// processROIs runs the per-ROI pipeline: rasterize both masks, optionally
// enlarge the dilated mask, derive the ring, estimate the background and
// compute the record. Per-ROI failures skip only that ROI.
func (o *Orchestrator) processROIs(log zerolog.Logger, img *models.Image,
	particles, dilatedSet roi.Set, summary *models.PairSummary) ([]Record, []*mask.Mask, int) {

	estimator := background.NewEstimator(background.Params{
		MaxBackground: o.cfg.Processing.MaxBackground,
	})

	var (
		records  []Record
		rings    []*mask.Mask
		violated int
	)

	for i := range particles {
		particleROI := particles[i]
		dilatedROI := dilatedSet[i]

		particleMask, err := raster.Rasterize(particleROI, img.Width, img.Height)
		if err != nil {
			summary.SkippedROIs++
			log.Debug().Err(err).Int("roi", particleROI.Index).Msg("roi skipped")
			continue
		}
		dilatedMask, err := raster.Rasterize(dilatedROI, img.Width, img.Height)
		if err != nil {
			summary.SkippedROIs++
			log.Debug().Err(err).Int("roi", particleROI.Index).Msg("roi skipped")
			continue
		}

		if n := o.cfg.Processing.AdditionalEnlargement; n > 0 {
			dilatedMask = mask.Dilate(dilatedMask, n)
		}

		ring, err := mask.Ring(particleMask, dilatedMask)
		if err != nil {
			summary.SkippedROIs++
			log.Debug().Err(err).Int("roi", particleROI.Index).Msg("roi skipped")
			continue
		}

		particleValues := particleMask.Values(img.Pixels)
		ringValues := ring.Values(img.Pixels)
		if len(particleValues) == 0 || len(ringValues) == 0 {
			// Degenerate ring: the dilation did not extend beyond the
			// particle. Reported, never treated as zero background.
			summary.SkippedROIs++
			log.Debug().Int("roi", particleROI.Index).Msg("degenerate ring, roi skipped")
			continue
		}

		est, _ := estimator.Estimate(ringValues)
		if est.Violated {
			violated++
			summary.SkippedROIs++
			log.Debug().Int("roi", particleROI.Index).
				Float64("background", est.Value).
				Msg("background above configured maximum, roi skipped")
			continue
		}

		rec := ComputeRecord(particleROI.Index, particleROI.Name, particleValues, ringValues, est.Value)
		if rec.MeanBgSubtracted != nil && *rec.MeanBgSubtracted > 0 {
			summary.Enriched++
		}
		records = append(records, rec)
		rings = append(rings, ring)
	}

	return records, rings, violated
}
