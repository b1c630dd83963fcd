package models

// Image is a single-channel intensity image. Pixel samples are stored in
// row-major order as raw intensity values (no normalization is applied, so
// 16-bit TIFF samples keep their 0-65535 range).
type Image struct {
	// Pixels holds the intensity samples in row-major order
	Pixels []float64

	// Width and Height are the pixel dimensions of the grid
	Width  int
	Height int
}

// At returns the intensity sample at (x, y). The caller is responsible for
// bounds; indexing outside the grid panics like any slice access.
func (im *Image) At(x, y int) float64 {
	return im.Pixels[y*im.Width+x]
}

// ResolvedInputs is the strongly typed result of input resolution for one
// (condition, configuration) pair. All three paths are required and point to
// exactly one file each.
type ResolvedInputs struct {
	// IntensityPath is the raw intensity image for the configured channel
	IntensityPath string

	// ParticleROIPath is the archive of particle masks (no dilation)
	ParticleROIPath string

	// DilatedROIPath is the archive of pre-dilated masks, index-aligned
	// with the particle set
	DilatedROIPath string
}

// PairStatus tracks the state machine of one (condition, configuration)
// pair through the run.
type PairStatus int

const (
	// Pending means the pair has not been processed yet
	Pending PairStatus = iota

	// InputsResolved means all three inputs resolved to exactly one file
	InputsResolved

	// Skipped means the pair was abandoned with a reason; other pairs
	// are unaffected
	Skipped

	// RecordsEmitted means the pair produced its output table
	RecordsEmitted
)

// String returns the status name for logs and summaries.
func (s PairStatus) String() string {
	switch s {
	case Pending:
		return "pending"
	case InputsResolved:
		return "inputs_resolved"
	case Skipped:
		return "skipped"
	case RecordsEmitted:
		return "records_emitted"
	default:
		return "unknown"
	}
}

// PairSummary reports the outcome of one (condition, configuration) pair.
type PairSummary struct {
	// Condition is the condition (dataset directory) name
	Condition string

	// Configuration is the named analysis configuration
	Configuration string

	// Status is the final state of the pair
	Status PairStatus

	// SkipReason is a human-readable reason when Status is Skipped
	SkipReason string

	// Records is the number of analysis records emitted
	Records int

	// SkippedROIs counts ROIs dropped for degenerate rings or geometry
	// errors; these never abort the configuration
	SkippedROIs int

	// Enriched counts records whose mean background-subtracted intensity
	// is positive
	Enriched int
}

// RunSummary aggregates the outcome of a whole run.
type RunSummary struct {
	// Conditions is the number of condition directories visited
	Conditions int

	// Pairs holds one entry per (condition, configuration) pair in
	// deterministic order: condition first, configuration second
	Pairs []PairSummary
}
