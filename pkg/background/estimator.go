// Package background estimates the local background intensity of a particle
// from the samples of its background ring. The estimator builds a smoothed
// histogram of the ring values, detects prominent peaks and selects the
// background mode under a documented policy. Estimation is deterministic and
// never fails: degenerate inputs resolve through a fallback chain.
package background

import (
	"math"
)

// NumBins is the fixed histogram bin count over [0, max(ring values)].
const NumBins = 50

// SmoothingSigma is the standard deviation, in bins, of the Gaussian kernel
// applied to the histogram counts before peak detection.
const SmoothingSigma = 2.0

// ProminenceFraction is the minimum peak prominence, as a fraction of the
// maximum smoothed count. Lower thresholds pick up noise bins as spurious
// peaks; higher thresholds can merge the background and contamination modes.
const ProminenceFraction = 0.15

// Params holds the background-selection policy parameters, applied uniformly
// per run or per named configuration.
type Params struct {
	// MaxBackground, when non-nil, restricts candidate peaks to bin
	// centers below its value
	MaxBackground *float64
}

// Peak is one detected local maximum of the smoothed histogram.
type Peak struct {
	// Bin is the bin index of the maximum
	Bin int

	// Center is the intensity value at the bin center
	Center float64

	// Prominence is the height of the peak above the higher of its two
	// flanking valleys
	Prominence float64
}

// Snapshot is the read-only diagnostic view of one estimation: the raw and
// smoothed histograms, the detected peaks and the selected value. It is a
// copy; mutating it has no effect on the estimator.
type Snapshot struct {
	// BinCenters holds the intensity value at the center of each bin
	BinCenters []float64

	// Counts is the raw histogram
	Counts []float64

	// Smoothed is the Gaussian-smoothed histogram
	Smoothed []float64

	// Peaks are the detected peaks in ascending bin order
	Peaks []Peak

	// Selected is the chosen background value
	Selected float64

	// Degenerate is true when peak detection was skipped because the
	// ring had fewer than 2 distinct values or a non-positive maximum
	Degenerate bool
}

// Estimate is the result of one background estimation.
type Estimate struct {
	// Value is the selected background intensity
	Value float64

	// Violated is true when MaxBackground was set and the selected value
	// does not lie below it, meaning the constraint could not be honored
	// for this ring
	Violated bool
}

// Estimator computes per-ring background estimates under one parameter set.
type Estimator struct {
	params Params
}

// NewEstimator creates an estimator with the given policy parameters.
func NewEstimator(params Params) *Estimator {
	return &Estimator{params: params}
}

// Estimate selects a background value for one ring. values is the multiset
// of raw ring intensities; it must be non-empty (empty rings are skipped by
// the caller before estimation). The returned snapshot is an independent
// copy for diagnostic rendering.
func (e *Estimator) Estimate(values []float64) (Estimate, *Snapshot) {
	maxVal := values[0]
	distinct := true
	for _, v := range values {
		if v > maxVal {
			maxVal = v
		}
		if v != values[0] {
			distinct = false
		}
	}
	distinctCount := 2
	if distinct {
		distinctCount = 1
	}

	// Degenerate ring: a single repeated value, or no positive signal at
	// all. The single value (or zero) is the background by definition.
	if distinctCount < 2 || maxVal <= 0 {
		est := Estimate{Value: values[0]}
		if maxVal <= 0 {
			est.Value = maxVal
		}
		est.Violated = e.violates(est.Value)
		return est, &Snapshot{Selected: est.Value, Degenerate: true}
	}

	snap := &Snapshot{
		BinCenters: make([]float64, NumBins),
		Counts:     make([]float64, NumBins),
	}
	binWidth := maxVal / NumBins
	for i := 0; i < NumBins; i++ {
		snap.BinCenters[i] = (float64(i) + 0.5) * binWidth
	}
	for _, v := range values {
		idx := int(v / binWidth)
		if idx >= NumBins {
			idx = NumBins - 1
		} else if idx < 0 {
			idx = 0
		}
		snap.Counts[idx]++
	}

	snap.Smoothed = smooth(snap.Counts, SmoothingSigma)
	snap.Peaks = findPeaks(snap.Smoothed, ProminenceFraction)
	for i := range snap.Peaks {
		snap.Peaks[i].Center = snap.BinCenters[snap.Peaks[i].Bin]
	}

	selected := e.selectPeak(snap)
	snap.Selected = selected

	return Estimate{Value: selected, Violated: e.violates(selected)}, snap
}

// selectPeak applies the selection policy, in order:
//  1. no threshold set: the left-most detected peak. A true local
//     background is the dimmer of the modes observed at the ring; any
//     brighter mode is assumed to be contamination from an adjacent
//     structure.
//  2. threshold set: the most prominent peak below it (tie: lowest
//     intensity), else the highest smoothed bin below it, else bin 0.
//  3. no peaks at all: the bin with the globally highest smoothed count.
func (e *Estimator) selectPeak(snap *Snapshot) float64 {
	maxBg := e.params.MaxBackground

	if maxBg == nil {
		if len(snap.Peaks) > 0 {
			return snap.Peaks[0].Center
		}
		return snap.BinCenters[argmax(snap.Smoothed)]
	}

	best := -1
	for i, p := range snap.Peaks {
		if p.Center >= *maxBg {
			continue
		}
		if best < 0 || p.Prominence > snap.Peaks[best].Prominence {
			best = i
		}
	}
	if best >= 0 {
		return snap.Peaks[best].Center
	}

	// No qualifying peak: fall back to the mode of the histogram
	// restricted to bins below the threshold.
	bin := -1
	for i, c := range snap.BinCenters {
		if c >= *maxBg {
			break
		}
		if bin < 0 || snap.Smoothed[i] > snap.Smoothed[bin] {
			bin = i
		}
	}
	if bin < 0 {
		bin = 0
	}
	return snap.BinCenters[bin]
}

func (e *Estimator) violates(selected float64) bool {
	return e.params.MaxBackground != nil && selected >= *e.params.MaxBackground
}

// smooth convolves the counts with a Gaussian kernel truncated at 3 sigma.
// Near the edges the kernel is renormalized over the overlapping support so
// the smoothed histogram does not decay toward the boundaries.
func smooth(counts []float64, sigma float64) []float64 {
	radius := int(math.Ceil(3 * sigma))
	kernel := make([]float64, 2*radius+1)
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
	}

	out := make([]float64, len(counts))
	for i := range counts {
		sum, weight := 0.0, 0.0
		for k, w := range kernel {
			j := i + k - radius
			if j < 0 || j >= len(counts) {
				continue
			}
			sum += w * counts[j]
			weight += w
		}
		out[i] = sum / weight
	}
	return out
}

// findPeaks detects strict local maxima whose prominence exceeds the given
// fraction of the maximum smoothed count. Prominence is measured against the
// higher of the two flanking valleys: from the peak, walk outward in each
// direction until a taller bar or the histogram edge, tracking the minimum
// along the way.
func findPeaks(smoothed []float64, fraction float64) []Peak {
	maxCount := smoothed[argmax(smoothed)]
	threshold := fraction * maxCount

	var peaks []Peak
	for i := 1; i < len(smoothed)-1; i++ {
		if !(smoothed[i] > smoothed[i-1] && smoothed[i] > smoothed[i+1]) {
			continue
		}

		leftMin := smoothed[i]
		for j := i - 1; j >= 0; j-- {
			if smoothed[j] > smoothed[i] {
				break
			}
			leftMin = math.Min(leftMin, smoothed[j])
		}
		rightMin := smoothed[i]
		for j := i + 1; j < len(smoothed); j++ {
			if smoothed[j] > smoothed[i] {
				break
			}
			rightMin = math.Min(rightMin, smoothed[j])
		}

		prominence := smoothed[i] - math.Max(leftMin, rightMin)
		if prominence > threshold {
			peaks = append(peaks, Peak{Bin: i, Prominence: prominence})
		}
	}
	return peaks
}

func argmax(vals []float64) int {
	best := 0
	for i, v := range vals {
		if v > vals[best] {
			best = i
		}
	}
	return best
}
