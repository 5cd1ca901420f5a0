// OtakuMatch - Anime Taste Profiling and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/otakumatch

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/otakumatch/internal/events"
	"github.com/tomtom215/otakumatch/internal/models"
	"github.com/tomtom215/otakumatch/internal/recommend"
	"github.com/tomtom215/otakumatch/internal/storage"
	"github.com/tomtom215/otakumatch/internal/taste"
)

var (
	bebop   = taste.Item{ID: 1, Title: "Cowboy Bebop", Genres: taste.GenreList{"Action", "Sci-Fi"}, Episodes: 26}
	frieren = taste.Item{ID: 52991, Title: "Frieren", Genres: taste.GenreList{"Adventure", "Drama", "Fantasy"}, Episodes: 28}
	kaguya  = taste.Item{ID: 37999, Title: "Kaguya-sama: Love Is War", Genres: taste.GenreList{"Comedy", "Romance"}, Episodes: 12}
	eva     = taste.Item{ID: 30, Title: "Evangelion", Genres: taste.GenreList{"Action", "Drama", "Sci-Fi"}, Episodes: 26}
)

// fakeCatalog serves a fixed pool and resolves titles from it.
type fakeCatalog struct {
	pool []taste.Item
}

func (f *fakeCatalog) TopAnime(_ context.Context, limit int) []taste.Item {
	if limit < len(f.pool) {
		return f.pool[:limit]
	}
	return f.pool
}

func (f *fakeCatalog) Search(_ context.Context, query string, limit int) []taste.Item {
	var out []taste.Item
	for _, it := range f.pool {
		if strings.Contains(strings.ToLower(it.Title), strings.ToLower(query)) {
			out = append(out, it)
		}
	}
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

func (f *fakeCatalog) Anime(_ context.Context, id int) (taste.Item, bool) {
	for _, it := range f.pool {
		if it.ID == id {
			return it, true
		}
	}
	return taste.Item{}, false
}

func (f *fakeCatalog) State() string { return "closed" }

type fakeEventLog struct {
	events   []events.ProfileEvent
	gotLimit int
}

func (f *fakeEventLog) Recent(limit int) []events.ProfileEvent {
	f.gotLimit = limit
	if limit < len(f.events) {
		return f.events[:limit]
	}
	return f.events
}

// failingBackend loads fine but refuses every write.
type failingBackend struct{}

func (failingBackend) Get(context.Context, string) ([]byte, error) { return nil, storage.ErrNotFound }
func (failingBackend) Put(context.Context, string, []byte) error  { return errors.New("disk full") }
func (failingBackend) Delete(context.Context, string) error       { return errors.New("disk full") }
func (failingBackend) Close() error                                { return nil }

type testServer struct {
	store   *taste.Store
	catalog *fakeCatalog
	events  *fakeEventLog
	handler http.Handler
}

func newTestServer(t *testing.T, backend storage.Backend, load bool, mw *ChiMiddlewareConfig) *testServer {
	t.Helper()
	if backend == nil {
		mem, err := storage.OpenMemory()
		if err != nil {
			t.Fatalf("OpenMemory() error = %v", err)
		}
		t.Cleanup(func() { _ = mem.Close() })
		backend = mem
	}

	store, err := taste.NewStore(backend, taste.DefaultConfig(), taste.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if load {
		if err := store.Load(context.Background()); err != nil {
			t.Fatalf("Load() error = %v", err)
		}
	}

	cat := &fakeCatalog{pool: []taste.Item{bebop, frieren, kaguya, eva}}
	svc, err := recommend.NewService(cat, store, recommend.DefaultConfig(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	if mw == nil {
		mw = DefaultChiMiddlewareConfig()
		mw.RateLimitDisabled = true
	}
	evlog := &fakeEventLog{}
	h := NewHandler(store, svc, cat, evlog, "test")
	return &testServer{
		store:   store,
		catalog: cat,
		events:  evlog,
		handler: NewRouter(h, mw).SetupChi(),
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode envelope: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return rec, env
}

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data: %v\ndata: %s", err, env.Data)
	}
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, false, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/health/live", "")
	if rec.Code != http.StatusOK || env.Status != "success" {
		t.Errorf("live: status %d, envelope %q", rec.Code, env.Status)
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusServiceUnavailable || env.Status != "not_ready" {
		t.Errorf("ready before load: status %d, envelope %q", rec.Code, env.Status)
	}

	if err := s.store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	rec, env = s.do(t, http.MethodGet, "/api/v1/health/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready after load: status %d", rec.Code)
	}
	health := decodeData[models.HealthResponse](t, env)
	if health.Catalog != "closed" || health.Storage != "loaded" || health.Version != "test" {
		t.Errorf("health = %+v", health)
	}
}

func TestNotReadyBeforeLoad(t *testing.T) {
	s := newTestServer(t, nil, false, nil)

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v1/profile", ""},
		{http.MethodPost, "/api/v1/profile/watched", `{"id":1,"title":"x"}`},
		{http.MethodGet, "/api/v1/recommendations", ""},
	} {
		rec, env := s.do(t, tc.method, tc.path, tc.body)
		if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != models.CodeNotReady {
			t.Errorf("%s %s: status %d, error %+v", tc.method, tc.path, rec.Code, env.Error)
		}
	}
}

func TestRecordActions(t *testing.T) {
	s := newTestServer(t, nil, true, nil)

	body := `{"id":1,"title":"Cowboy Bebop","genres":["Action","Sci-Fi"],"episodes":26}`
	rec, env := s.do(t, http.MethodPost, "/api/v1/profile/watched", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("watched: status %d body %s", rec.Code, rec.Body.String())
	}
	got := decodeData[models.ActionResponse](t, env)
	if !got.Applied {
		t.Error("first watched Applied = false")
	}
	if got.Profile.GenreWeights["Action"] != 5 || got.Profile.GenreWeights["Sci-Fi"] != 5 {
		t.Errorf("genre weights = %v, want 5 each", got.Profile.GenreWeights)
	}
	if got.Profile.LengthWeights.Medium != 5 {
		t.Errorf("length weights = %+v, want medium 5", got.Profile.LengthWeights)
	}
	if env.Metadata.RequestID == "" {
		t.Error("metadata has no request id")
	}

	_, env = s.do(t, http.MethodPost, "/api/v1/profile/watched", body)
	if dup := decodeData[models.ActionResponse](t, env); dup.Applied || dup.Profile.GenreWeights["Action"] != 5 {
		t.Errorf("duplicate watched = %+v", dup)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/profile/want", `{"id":37999,"genres":["Comedy"],"episodes":12}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want: status %d", rec.Code)
	}
	want := decodeData[models.ActionResponse](t, env)
	if want.Profile.GenreWeights["Comedy"] != 2 || want.Profile.LengthWeights.Short != 2 {
		t.Errorf("want profile = %+v", want.Profile)
	}
	if len(want.Profile.WantIDs) != 1 || want.Profile.WantIDs[0] != 37999 {
		t.Errorf("WantIDs = %v", want.Profile.WantIDs)
	}
}

func TestRecordActionResolvesIDOnly(t *testing.T) {
	s := newTestServer(t, nil, true, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/profile/watched", `{"id":52991}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	got := decodeData[models.ActionResponse](t, env)
	if got.Item.Title != "Frieren" || got.Profile.GenreWeights["Fantasy"] != 5 || got.Profile.LengthWeights.Long != 5 {
		t.Errorf("resolved action = %+v", got)
	}

	rec, env = s.do(t, http.MethodPost, "/api/v1/profile/watched", `{"id":424242}`)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != models.CodeNotFound {
		t.Errorf("unknown id: status %d error %+v", rec.Code, env.Error)
	}
}

func TestRecordActionRejectsBadInput(t *testing.T) {
	s := newTestServer(t, nil, true, nil)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"empty body", "", models.CodeBadRequest},
		{"malformed json", `{"id":`, models.CodeBadRequest},
		{"zero id", `{"id":0,"title":"x"}`, models.CodeValidation},
		{"negative episodes", `{"id":3,"title":"x","episodes":-1}`, models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := s.do(t, http.MethodPost, "/api/v1/profile/watched", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
		})
	}

	if p := s.store.Snapshot(); !p.IsEmpty() {
		t.Errorf("rejected requests changed the profile: %+v", p)
	}
}

func TestRecordActionToleratesMalformedGenres(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantGenres map[string]int
	}{
		{
			name:       "catalog genre objects",
			body:       `{"id":101,"title":"Trigun","genres":[{"mal_id":1,"type":"anime","name":"Action"}],"episodes":26}`,
			wantGenres: map[string]int{"Action": 5},
		},
		{
			name:       "string instead of list",
			body:       `{"id":102,"title":"Trigun","genres":"Action","episodes":26}`,
			wantGenres: map[string]int{},
		},
		{
			name:       "blank entry",
			body:       `{"id":103,"title":"Trigun","genres":["Action",""],"episodes":26}`,
			wantGenres: map[string]int{"Action": 5},
		},
		{
			name:       "null genres",
			body:       `{"id":104,"title":"Trigun","genres":null,"episodes":26}`,
			wantGenres: map[string]int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, true, nil)

			rec, env := s.do(t, http.MethodPost, "/api/v1/profile/watched", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
			}
			if got := decodeData[models.ActionResponse](t, env); !got.Applied {
				t.Error("Applied = false")
			}

			p := s.store.Snapshot()
			if len(p.WatchedIDs) != 1 {
				t.Fatalf("WatchedIDs = %v, want one id", p.WatchedIDs)
			}
			if len(p.GenreWeight) != len(tt.wantGenres) {
				t.Errorf("GenreWeight = %v, want %v", p.GenreWeight, tt.wantGenres)
			}
			for g, w := range tt.wantGenres {
				if p.GenreWeight[g] != w {
					t.Errorf("GenreWeight[%s] = %d, want %d", g, p.GenreWeight[g], w)
				}
			}
			if p.LengthWeight.Medium != 5 {
				t.Errorf("LengthWeight = %+v, want medium 5", p.LengthWeight)
			}
		})
	}
}

func TestRecordActionStorageFailure(t *testing.T) {
	s := newTestServer(t, failingBackend{}, true, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/profile/watched", `{"id":1,"title":"Bebop","genres":["Action"]}`)
	if rec.Code != http.StatusInternalServerError || env.Error == nil || env.Error.Code != models.CodeStorage {
		t.Fatalf("status %d error %+v", rec.Code, env.Error)
	}
	if strings.Contains(env.Error.Message, "disk full") {
		t.Error("backend error leaked to the client")
	}
	if p := s.store.Snapshot(); len(p.WatchedIDs) != 0 {
		t.Errorf("failed save changed the profile: %+v", p)
	}

	rec, _ = s.do(t, http.MethodDelete, "/api/v1/profile", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("reset status = %d, want 500", rec.Code)
	}
}

func TestRecommendations(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	ctx := context.Background()
	if _, err := s.store.RecordWatched(ctx, bebop); err != nil {
		t.Fatal(err)
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/recommendations", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	got := decodeData[models.RecommendationsResponse](t, env)
	if got.Source != recommend.SourceTop || got.Candidates != 4 || got.Excluded != 1 {
		t.Errorf("response = %+v", got)
	}
	if len(got.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(got.Items))
	}
	// Evangelion shares Action and Sci-Fi (5+5) and the medium bucket (5*1.5).
	if got.Items[0].ID != eva.ID || got.Items[0].MatchScore != 18 {
		t.Errorf("first = %d score %d, want Evangelion 18", got.Items[0].ID, got.Items[0].MatchScore)
	}
	for _, it := range got.Items {
		if it.ID == bebop.ID {
			t.Error("watched title recommended")
		}
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/recommendations?q=kaguya&limit=5", "")
	got = decodeData[models.RecommendationsResponse](t, env)
	if got.Source != recommend.SourceSearch || got.Query != "kaguya" || len(got.Items) != 1 {
		t.Errorf("search-backed response = %+v", got)
	}

	_, env = s.do(t, http.MethodGet, "/api/v1/recommendations?limit=1", "")
	if got = decodeData[models.RecommendationsResponse](t, env); len(got.Items) != 1 {
		t.Errorf("limit=1 returned %d items", len(got.Items))
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/recommendations?limit=abc", "")
	if rec.Code != http.StatusBadRequest || env.Error.Code != models.CodeValidation {
		t.Errorf("bad limit: status %d error %+v", rec.Code, env.Error)
	}
}

func TestSearch(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	if _, err := s.store.RecordWatched(context.Background(), bebop); err != nil {
		t.Fatal(err)
	}

	rec, env := s.do(t, http.MethodGet, "/api/v1/search?q=e", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	got := decodeData[models.SearchResponse](t, env)
	// Catalog order is kept and recorded titles stay in the results.
	wantIDs := []int{bebop.ID, frieren.ID, kaguya.ID, eva.ID}
	if len(got.Items) != len(wantIDs) {
		t.Fatalf("items = %d, want %d", len(got.Items), len(wantIDs))
	}
	for i, id := range wantIDs {
		if got.Items[i].ID != id {
			t.Errorf("item %d = %d, want %d", i, got.Items[i].ID, id)
		}
	}
	if got.Items[0].LengthCategory != taste.LengthMedium || got.Items[0].MatchScore != 18 {
		t.Errorf("bebop annotation = %+v", got.Items[0])
	}

	rec, env = s.do(t, http.MethodGet, "/api/v1/search?q=%20%20", "")
	if rec.Code != http.StatusBadRequest || env.Error.Code != models.CodeValidation {
		t.Errorf("blank query: status %d error %+v", rec.Code, env.Error)
	}

	rec, _ = s.do(t, http.MethodGet, "/api/v1/search?q="+strings.Repeat("a", maxQueryLen+1), "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("long query: status %d", rec.Code)
	}
}

func TestProfileAndReset(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	ctx := context.Background()
	if _, err := s.store.RecordWatched(ctx, eva); err != nil {
		t.Fatal(err)
	}
	if _, err := s.store.RecordWantToWatch(ctx, kaguya); err != nil {
		t.Fatal(err)
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/profile", "")
	view := decodeData[models.ProfileView](t, env)
	if len(view.TopGenres) == 0 || view.TopGenres[0].Weight != 5 {
		t.Errorf("TopGenres = %v", view.TopGenres)
	}
	if len(view.WatchedIDs) != 1 || len(view.WantIDs) != 1 {
		t.Errorf("view = %+v", view)
	}

	rec, env := s.do(t, http.MethodDelete, "/api/v1/profile", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status %d", rec.Code)
	}
	view = decodeData[models.ProfileView](t, env)
	if len(view.WatchedIDs) != 0 || len(view.GenreWeights) != 0 {
		t.Errorf("view after reset = %+v", view)
	}
	if !s.store.Snapshot().IsEmpty() {
		t.Error("store not empty after reset")
	}
}

func TestProfileEvents(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	s.events.events = []events.ProfileEvent{
		{EventID: "b", Action: taste.ActionWantToWatch, AnimeID: 2, OccurredAt: time.Now()},
		{EventID: "a", Action: taste.ActionWatched, AnimeID: 1, OccurredAt: time.Now()},
	}

	_, env := s.do(t, http.MethodGet, "/api/v1/profile/events?limit=1", "")
	got := decodeData[[]events.ProfileEvent](t, env)
	if len(got) != 1 || got[0].EventID != "b" || s.events.gotLimit != 1 {
		t.Errorf("events = %+v, limit %d", got, s.events.gotLimit)
	}

	s.do(t, http.MethodGet, "/api/v1/profile/events?limit=1000", "")
	if s.events.gotLimit != maxEventsLimit {
		t.Errorf("limit = %d, want capped at %d", s.events.gotLimit, maxEventsLimit)
	}
}

func TestRouterErrorsUseEnvelope(t *testing.T) {
	s := newTestServer(t, nil, true, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/nope", "")
	if rec.Code != http.StatusNotFound || env.Status != "error" || env.Error.Code != models.CodeNotFound {
		t.Errorf("unknown route: status %d envelope %+v", rec.Code, env)
	}

	rec, env = s.do(t, http.MethodPut, "/api/v1/profile/watched", `{}`)
	if rec.Code != http.StatusMethodNotAllowed || env.Status != "error" {
		t.Errorf("wrong method: status %d envelope %+v", rec.Code, env)
	}
}

func TestRateLimit(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.RateLimitRequests = 2
	mw.RateLimitWindow = time.Minute
	s := newTestServer(t, nil, true, mw)

	for i := 0; i < 2; i++ {
		if rec, _ := s.do(t, http.MethodGet, "/api/v1/profile", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec, env := s.do(t, http.MethodGet, "/api/v1/profile", "")
	if rec.Code != http.StatusTooManyRequests || env.Error == nil || env.Error.Code != models.CodeRateLimited {
		t.Errorf("third request: status %d error %+v", rec.Code, env.Error)
	}

	// Health probes are not rate limited.
	if rec, _ := s.do(t, http.MethodGet, "/api/v1/health/live", ""); rec.Code != http.StatusOK {
		t.Errorf("health while limited: status %d", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil, true, nil)
	s.do(t, http.MethodGet, "/api/v1/profile", "")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "otakumatch_api_requests_total") {
		t.Errorf("metrics status %d, missing api counter", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	mw := DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = []string{"https://otaku.example"}
	mw.RateLimitDisabled = true
	s := newTestServer(t, nil, true, mw)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/profile/watched", nil)
	req.Header.Set("Origin", "https://otaku.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://otaku.example" {
		t.Errorf("Allow-Origin = %q", got)
	}
}
