package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"obsarc/internal/app"
	"obsarc/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client speaks the acquisition engine's local HTTP command surface.
// Commands are JSON request/response POSTs; the progress event channel is a
// streaming newline-delimited JSON response held open for the subscription's
// lifetime.
type Client struct {
	baseURL string
	http    *http.Client
	stream  *http.Client
}

// New builds a client for an engine listening at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		// The event stream stays open for a whole session, so it gets
		// a client without a request timeout.
		stream: &http.Client{},
	}
}

type errorEnvelope struct {
	Error string `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("command %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var envelope errorEnvelope
		if decodeErr := json.NewDecoder(resp.Body).Decode(&envelope); decodeErr == nil && envelope.Error != "" {
			return fmt.Errorf("command %s: %s", path, envelope.Error)
		}
		return fmt.Errorf("command %s: %s", path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

type countResponse struct {
	Count int `json:"count"`
}

func (c *Client) ObservationCount(ctx context.Context, criteria domain.FilterCriteria) (int, error) {
	var out countResponse
	if err := c.post(ctx, "/commands/observation_count", criteria, &out); err != nil {
		return 0, err
	}
	if out.Count < 0 {
		return 0, fmt.Errorf("engine returned negative count %d", out.Count)
	}
	return out.Count, nil
}

func (c *Client) EstimatePhotos(ctx context.Context, criteria domain.FilterCriteria) (domain.PhotoSample, error) {
	var out domain.PhotoSample
	if err := c.post(ctx, "/commands/estimate_photo_count", criteria, &out); err != nil {
		return domain.PhotoSample{}, err
	}
	return out, nil
}

func (c *Client) GenerateArchive(ctx context.Context, req domain.ArchiveRequest) error {
	return c.post(ctx, "/commands/generate_archive", req, nil)
}

func (c *Client) CancelGeneration(ctx context.Context) error {
	return c.post(ctx, "/commands/cancel_archive_generation", nil, nil)
}

func (c *Client) AuthStatus(ctx context.Context) (domain.AuthStatus, error) {
	var out domain.AuthStatus
	if err := c.post(ctx, "/commands/get_auth_status", nil, &out); err != nil {
		return domain.AuthStatus{}, err
	}
	return out, nil
}

func (c *Client) Authenticate(ctx context.Context) (domain.AuthStatus, error) {
	var out domain.AuthStatus
	if err := c.post(ctx, "/commands/authenticate", nil, &out); err != nil {
		return domain.AuthStatus{}, err
	}
	return out, nil
}

func (c *Client) SignOut(ctx context.Context) error {
	return c.post(ctx, "/commands/sign_out", nil, nil)
}

type openArchiveRequest struct {
	Path string `json:"path"`
}

func (c *Client) OpenArchive(ctx context.Context, path string) error {
	return c.post(ctx, "/commands/open_archive", openArchiveRequest{Path: path}, nil)
}

// SubscribeProgress opens the progress event stream. The returned
// subscription's channel closes when the stream ends; Close tears the
// stream down and is safe to call repeatedly.
func (c *Client) SubscribeProgress(ctx context.Context) (app.Subscription, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events/progress", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, fmt.Errorf("subscribe progress: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("subscribe progress: %s", resp.Status)
	}

	sub := &subscription{
		events: make(chan domain.ProgressSnapshot, 16),
		body:   resp.Body,
	}
	go sub.read()
	return sub, nil
}

type subscription struct {
	events chan domain.ProgressSnapshot
	body   io.ReadCloser
	once   sync.Once
}

func (s *subscription) Events() <-chan domain.ProgressSnapshot {
	return s.events
}

func (s *subscription) Close() error {
	var err error
	s.once.Do(func() {
		err = s.body.Close()
	})
	return err
}

func (s *subscription) read() {
	defer close(s.events)
	decoder := json.NewDecoder(s.body)
	for {
		var snapshot domain.ProgressSnapshot
		if err := decoder.Decode(&snapshot); err != nil {
			return
		}
		s.events <- snapshot
	}
}

// EntityKind names one of the engine's entity search APIs.
type EntityKind string

const (
	KindTaxa   EntityKind = "taxa"
	KindPlaces EntityKind = "places"
	KindUsers  EntityKind = "users"
)

// Lookup returns an EntityLookup backed by the engine's search API for the
// given entity kind.
func (c *Client) Lookup(kind EntityKind) app.EntityLookup {
	return &lookup{client: c, kind: kind}
}

type lookup struct {
	client *Client
	kind   EntityKind
}

func (l *lookup) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.client.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := l.client.http.Do(req)
	if err != nil {
		return fmt.Errorf("lookup %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("lookup %s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (l *lookup) Search(ctx context.Context, query string, limit int) ([]domain.Entity, error) {
	path := fmt.Sprintf("/lookup/%s?q=%s&limit=%d", l.kind, url.QueryEscape(query), limit)
	var out struct {
		Results []domain.Entity `json:"results"`
	}
	if err := l.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (l *lookup) Get(ctx context.Context, id string) (domain.Entity, error) {
	path := fmt.Sprintf("/lookup/%s/%s", l.kind, url.PathEscape(id))
	var out domain.Entity
	if err := l.get(ctx, path, &out); err != nil {
		return domain.Entity{}, err
	}
	return out, nil
}
