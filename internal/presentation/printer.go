package presentation

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"obsarc/internal/domain"
)

// Printer renders estimate summaries for non-interactive runs.
type Printer struct {
	Writer  io.Writer
	Verbose bool
}

// PrintEstimate writes a size-estimate summary for one criteria snapshot.
func (p Printer) PrintEstimate(criteria domain.FilterCriteria, estimate domain.SizeEstimate) {
	p.printf("Filters:")
	p.printFilter("Taxon", criteria.TaxonID)
	p.printFilter("Place", criteria.PlaceID)
	p.printFilter("User", criteria.UserID)
	p.printRange("Observed", criteria.Observed)
	p.printRange("Created", criteria.Created)
	if extensions := criteria.Extensions.List(); len(extensions) > 0 {
		p.printf("  Extensions: %v", extensions)
	}
	p.printf("")

	switch estimate.Status {
	case domain.EstimateFailed:
		p.printf("Estimate: unavailable (estimation request failed)")
		return
	case domain.EstimateReady:
	default:
		p.printf("Estimate: unknown")
		return
	}

	p.printf("Observations: %s", humanize.Comma(int64(estimate.Count)))
	if criteria.IncludePhotos && estimate.Sample != nil {
		photos := domain.ProjectedPhotos(estimate.Count, *estimate.Sample)
		p.printf("Projected photos: %s (sampled %d of %d)",
			humanize.Comma(photos),
			estimate.Sample.PhotoCount,
			estimate.Sample.SampleSize,
		)
	}
	p.printf("Projected archive size: %s", humanize.Bytes(uint64(estimate.TotalBytes)))
}

// PrintAuth writes the engine's authentication state.
func (p Printer) PrintAuth(status domain.AuthStatus) {
	if status.Authenticated {
		p.printf("Signed in as %s", status.Username)
		return
	}
	p.printf("Not signed in")
}

func (p Printer) printFilter(label string, id *int) {
	if id == nil {
		if p.Verbose {
			p.printf("  %s: any", label)
		}
		return
	}
	p.printf("  %s: %d", label, *id)
}

func (p Printer) printRange(label string, r domain.DateRange) {
	if r.Mode != domain.DateRangeCustom {
		if p.Verbose {
			p.printf("  %s: all dates", label)
		}
		return
	}
	from := r.From
	if from == "" {
		from = "*"
	}
	to := r.To
	if to == "" {
		to = "*"
	}
	p.printf("  %s: %s to %s", label, from, to)
}

func (p Printer) printf(format string, args ...any) {
	if p.Writer == nil {
		return
	}
	fmt.Fprintf(p.Writer, format+"\n", args...)
}
