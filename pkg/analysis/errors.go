package analysis

import (
	"fmt"
)

// CorrespondenceError reports that the particle and dilated ROI sets of a
// configuration do not match index-for-index. Masking the wrong particle
// against the wrong ring would silently corrupt every downstream statistic,
// so the whole configuration is abandoned for that condition; it is never
// partially processed.
type CorrespondenceError struct {
	// ParticleCount and DilatedCount are the set lengths that disagree
	ParticleCount int
	DilatedCount  int
}

func (e *CorrespondenceError) Error() string {
	return fmt.Sprintf("particle set has %d rois but dilated set has %d; archives are not index-aligned",
		e.ParticleCount, e.DilatedCount)
}
