package presentation

import (
	"bytes"
	"strings"
	"testing"

	"obsarc/internal/domain"
)

func TestPrintEstimateReady(t *testing.T) {
	var out bytes.Buffer
	taxon := 52391
	criteria := domain.FilterCriteria{
		TaxonID:       &taxon,
		Observed:      domain.DateRange{Mode: domain.DateRangeCustom, From: "2024-01-01"},
		IncludePhotos: true,
		Extensions:    domain.ExtensionFlags{Multimedia: true},
	}
	sample := domain.PhotoSample{PhotoCount: 50, SampleSize: 100}
	estimate := domain.SizeEstimate{
		Status:     domain.EstimateReady,
		Count:      12345,
		Sample:     &sample,
		TotalBytes: domain.ProjectBytes(12345, &sample),
	}

	Printer{Writer: &out}.PrintEstimate(criteria, estimate)
	got := out.String()

	for _, want := range []string{
		"Taxon: 52391",
		"Observed: 2024-01-01 to *",
		"Extensions: [simple_multimedia]",
		"Observations: 12,345",
		"Projected photos: 6,173 (sampled 50 of 100)",
		"Projected archive size:",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintEstimateFailed(t *testing.T) {
	var out bytes.Buffer
	Printer{Writer: &out}.PrintEstimate(domain.FilterCriteria{}, domain.SizeEstimate{Status: domain.EstimateFailed})

	if !strings.Contains(out.String(), "Estimate: unavailable") {
		t.Fatalf("output:\n%s", out.String())
	}
	if strings.Contains(out.String(), "Observations:") {
		t.Fatal("a failed estimate must not print numbers")
	}
}

func TestPrintEstimateSkipsPhotosWhenExcluded(t *testing.T) {
	var out bytes.Buffer
	estimate := domain.SizeEstimate{Status: domain.EstimateReady, Count: 10, TotalBytes: 5000}
	Printer{Writer: &out}.PrintEstimate(domain.FilterCriteria{}, estimate)

	if strings.Contains(out.String(), "Projected photos") {
		t.Fatalf("output:\n%s", out.String())
	}
}

func TestPrintEstimateVerboseNamesUnsetFilters(t *testing.T) {
	var out bytes.Buffer
	Printer{Writer: &out, Verbose: true}.PrintEstimate(domain.FilterCriteria{}, domain.SizeEstimate{})

	got := out.String()
	if !strings.Contains(got, "Taxon: any") || !strings.Contains(got, "Observed: all dates") {
		t.Fatalf("output:\n%s", got)
	}
}

func TestPrintAuth(t *testing.T) {
	var out bytes.Buffer
	p := Printer{Writer: &out}

	p.PrintAuth(domain.AuthStatus{Authenticated: true, Username: "naturewatcher"})
	p.PrintAuth(domain.AuthStatus{})

	got := out.String()
	if !strings.Contains(got, "Signed in as naturewatcher") || !strings.Contains(got, "Not signed in") {
		t.Fatalf("output:\n%s", got)
	}
}
