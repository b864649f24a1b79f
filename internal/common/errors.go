package common

import "errors"

// Sentinel errors for the job pipeline failure taxonomy. Structural
// failures fail the whole job; everything else degrades per page or per
// detection and is logged where it happens.
var (
	// ErrConversionFailed indicates the blueprint could not be turned into
	// any page images
	ErrConversionFailed = errors.New("conversion failed")

	// ErrModelUnavailable indicates the learned detector weights are
	// missing or unusable and no fallback applies to the whole document
	ErrModelUnavailable = errors.New("model missing")

	// ErrSummarizationFailed indicates the grouping service was
	// unreachable or returned output that failed validation
	ErrSummarizationFailed = errors.New("summarization failed")

	// ErrJobNotFound indicates the requested job ID has no record
	ErrJobNotFound = errors.New("job not found")

	// ErrArtifactNotFound indicates a per-job artifact record is absent
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrResultMissing indicates a complete job has no stored summary,
	// which is an internal consistency fault
	ErrResultMissing = errors.New("result missing for complete job")
)
