package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"obsarc/internal/domain"
)

func TestObservationCountCommand(t *testing.T) {
	var gotPath string
	var gotCriteria domain.FilterCriteria
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotCriteria); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, `{"count":4321}`)
	}))
	defer server.Close()

	taxon := 52391
	client := New(server.URL, time.Second)
	count, err := client.ObservationCount(context.Background(), domain.FilterCriteria{TaxonID: &taxon})
	if err != nil {
		t.Fatal(err)
	}
	if count != 4321 {
		t.Fatalf("count = %d", count)
	}
	if gotPath != "/commands/observation_count" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotCriteria.TaxonID == nil || *gotCriteria.TaxonID != 52391 {
		t.Fatalf("criteria on the wire = %+v", gotCriteria)
	}
}

func TestNegativeCountRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"count":-1}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	if _, err := client.ObservationCount(context.Background(), domain.FilterCriteria{}); err == nil {
		t.Fatal("expected an error for a negative count")
	}
}

func TestErrorEnvelopeSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"criteria out of range"}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	_, err := client.ObservationCount(context.Background(), domain.FilterCriteria{})
	if err == nil || !strings.Contains(err.Error(), "criteria out of range") {
		t.Fatalf("err = %v", err)
	}
}

func TestGenerateArchiveSendsRequest(t *testing.T) {
	var gotReq domain.ArchiveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/commands/generate_archive" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	err := client.GenerateArchive(context.Background(), domain.ArchiveRequest{
		OutputPath: "/tmp/observations.zip",
		Extensions: []string{"simple_multimedia"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if gotReq.OutputPath != "/tmp/observations.zip" || len(gotReq.Extensions) != 1 {
		t.Fatalf("request on the wire = %+v", gotReq)
	}
}

func TestSubscribeProgressStreamsEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events/progress" {
			t.Errorf("path = %q", r.URL.Path)
		}
		flusher := w.(http.Flusher)
		fmt.Fprintln(w, `{"stage":"fetching","current":10,"total":100}`)
		flusher.Flush()
		fmt.Fprintln(w, `{"stage":"complete"}`)
		flusher.Flush()
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	sub, err := client.SubscribeProgress(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	first := <-sub.Events()
	if first.Stage != domain.StageFetching || first.Current != 10 || first.Total != 100 {
		t.Fatalf("first event = %+v", first)
	}
	second := <-sub.Events()
	if second.Stage != domain.StageComplete {
		t.Fatalf("second event = %+v", second)
	}

	// The handler returned, so the stream ends and the channel closes.
	select {
	case _, ok := <-sub.Events():
		if ok {
			t.Fatal("expected the channel to close after the stream ended")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("channel did not close")
	}

	if err := sub.Close(); err != nil {
		t.Fatalf("repeated close: %v", err)
	}
}

func TestSubscribeProgressRejectsNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	if _, err := client.SubscribeProgress(context.Background()); err == nil {
		t.Fatal("expected an error for a refused stream")
	}
}

func TestLookupSearchEscapesQuery(t *testing.T) {
	var gotPath, gotQuery, gotLimit string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		fmt.Fprint(w, `{"results":[{"id":"52391","label":"Bufo bufo"}]}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	results, err := client.Lookup(KindTaxa).Search(context.Background(), "bufo & friends", 5)
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/lookup/taxa" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotQuery != "bufo & friends" || gotLimit != "5" {
		t.Fatalf("query = %q limit = %q", gotQuery, gotLimit)
	}
	if len(results) != 1 || results[0].Label != "Bufo bufo" {
		t.Fatalf("results = %+v", results)
	}
}

func TestLookupGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lookup/places/6793" {
			t.Errorf("path = %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"id":"6793","label":"Bavaria"}`)
	}))
	defer server.Close()

	client := New(server.URL, time.Second)
	entity, err := client.Lookup(KindPlaces).Get(context.Background(), "6793")
	if err != nil {
		t.Fatal(err)
	}
	if entity.ID != "6793" || entity.Label != "Bavaria" {
		t.Fatalf("entity = %+v", entity)
	}
}

func TestLookupGetNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	client := New(server.URL, time.Second)
	if _, err := client.Lookup(KindUsers).Get(context.Background(), "absent"); err == nil {
		t.Fatal("expected an error for a missing entity")
	}
}
