// Package analysis combines rasterized masks, ring-based background
// estimates and raw intensities into per-particle records, and orchestrates
// the condition × configuration pipeline that produces them.
package analysis

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Record is the per-ROI analysis result for one configuration: one row of
// the output table. Records are immutable after creation.
type Record struct {
	// RoiID is the 1-based ROI index within its set
	RoiID int

	// RoiName is the label copied from the ROI entry
	RoiName string

	// NPixels is the number of particle pixels
	NPixels int

	// NBackgroundPixels is the number of ring pixels used for the
	// background estimate
	NBackgroundPixels int

	// MeanRaw and MedianRaw summarize the raw particle intensities
	MeanRaw   float64
	MedianRaw float64

	// Background is the estimated local background value
	Background float64

	// MeanBgSubtracted and MedianBgSubtracted are the background-
	// subtracted statistics. A nil value marks the statistic as absent:
	// a negative subtraction means the estimate is noisy near zero, not
	// that the structure is dimmer than its background.
	MeanBgSubtracted   *float64
	MedianBgSubtracted *float64

	// BackgroundMean and BackgroundStd summarize the ring intensities
	BackgroundMean float64
	BackgroundStd  float64
}

// ComputeRecord builds the analysis record for one ROI from its particle
// intensities, ring intensities and estimated background. Both intensity
// slices must be non-empty.
func ComputeRecord(roiID int, roiName string, particle, ring []float64, background float64) Record {
	meanRaw := stat.Mean(particle, nil)
	medianRaw := median(particle)

	rec := Record{
		RoiID:             roiID,
		RoiName:           roiName,
		NPixels:           len(particle),
		NBackgroundPixels: len(ring),
		MeanRaw:           meanRaw,
		MedianRaw:         medianRaw,
		Background:        background,
		BackgroundMean:    stat.Mean(ring, nil),
		BackgroundStd:     stat.PopStdDev(ring, nil),
	}

	if v := meanRaw - background; v >= 0 {
		rec.MeanBgSubtracted = &v
	}
	if v := medianRaw - background; v >= 0 {
		rec.MedianBgSubtracted = &v
	}

	return rec
}

// median returns the middle value of the samples, averaging the two middle
// values for even-length input. The input is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
