package domain

import "math"

// Fixed policy values used to project archive size. These are deliberately
// coarse: 500 bytes of record data per observation and 1.8 MB per photo.
const (
	BytesPerRecord int64 = 500
	BytesPerPhoto  int64 = 1_800_000
)

// PhotoSample is the engine's answer to a photo-volume estimation request:
// how many photos were attached to a sample of matching observations.
type PhotoSample struct {
	PhotoCount int `json:"photo_count"`
	SampleSize int `json:"sample_size"`
}

// EstimateStatus describes what is known about a size estimate.
type EstimateStatus int

const (
	// EstimateNone means no estimation has been requested yet.
	EstimateNone EstimateStatus = iota
	// EstimatePending means a request pair is in flight; any previous
	// numbers have been cleared and must not be displayed.
	EstimatePending
	// EstimateReady means Count (and Sample, when photos are included)
	// are authoritative for the criteria that produced them.
	EstimateReady
	// EstimateFailed means at least one estimation request failed.
	// Distinct from both "unknown" and a count of zero.
	EstimateFailed
)

// SizeEstimate is the projected result set size for one criteria snapshot.
type SizeEstimate struct {
	Status     EstimateStatus
	Count      int
	Sample     *PhotoSample
	TotalBytes int64
}

// Ready reports whether the estimate may be displayed and acted on.
func (e SizeEstimate) Ready() bool {
	return e.Status == EstimateReady
}

// ProjectedPhotos extrapolates the photo sample ratio over the full count.
func ProjectedPhotos(count int, sample PhotoSample) int64 {
	if sample.SampleSize <= 0 {
		return 0
	}
	ratio := float64(sample.PhotoCount) / float64(sample.SampleSize)
	return int64(math.Round(ratio * float64(count)))
}

// ProjectBytes computes the total byte projection for a known count and an
// optional photo sample.
func ProjectBytes(count int, sample *PhotoSample) int64 {
	total := int64(count) * BytesPerRecord
	if sample != nil {
		total += ProjectedPhotos(count, *sample) * BytesPerPhoto
	}
	return total
}
