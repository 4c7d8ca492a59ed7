package frame

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robr/muses-frame/internal/cache"
)

type fakeFetcher struct {
	url string
	err error
}

func (f *fakeFetcher) FetchReference(ctx context.Context) (string, error) {
	return f.url, f.err
}

type fakeStore struct {
	mu        sync.Mutex
	downloads int
	dlRec     cache.Record
	dlErr     error
	latest    cache.Record
	latestErr error
}

func (s *fakeStore) Download(ctx context.Context, url string) (cache.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dlErr == nil {
		s.downloads++
	}
	return s.dlRec, s.dlErr
}

func (s *fakeStore) Latest() (cache.Record, error) {
	return s.latest, s.latestErr
}

func (s *fakeStore) downloadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads
}

type fakeRenderer struct {
	mu       sync.Mutex
	rendered []cache.Record
	err      error
}

func (r *fakeRenderer) Render(ctx context.Context, rec cache.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rendered = append(r.rendered, rec)
	return nil
}

func (r *fakeRenderer) renders() []cache.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cache.Record(nil), r.rendered...)
}

func TestRefreshHappyPath(t *testing.T) {
	fresh := cache.Record{Path: "images/20260826_150000.png"}
	fetcher := &fakeFetcher{url: "https://cdn.example.com/i.png"}
	store := &fakeStore{dlRec: fresh}
	renderer := &fakeRenderer{}

	c := New(fetcher, store, renderer, 0)
	c.Refresh(context.Background())

	if got := store.downloadCount(); got != 1 {
		t.Errorf("downloads = %d, want 1", got)
	}
	renders := renderer.renders()
	if len(renders) != 1 || renders[0] != fresh {
		t.Errorf("renders = %v, want exactly the fresh record", renders)
	}
	st := c.Status()
	if st.LastOutcome != OutcomeFresh {
		t.Errorf("outcome = %q, want %q", st.LastOutcome, OutcomeFresh)
	}
	if st.LastImage != fresh.Path {
		t.Errorf("last image = %q, want %q", st.LastImage, fresh.Path)
	}
}

func TestRefreshFallsBackWhenFetchFails(t *testing.T) {
	cached := cache.Record{Path: "images/20260825_090000.png"}
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	store := &fakeStore{latest: cached, dlErr: errors.New("should not be called")}
	renderer := &fakeRenderer{}

	c := New(fetcher, store, renderer, 0)
	c.Refresh(context.Background())

	if got := store.downloadCount(); got != 0 {
		t.Errorf("downloads = %d, want 0", got)
	}
	renders := renderer.renders()
	if len(renders) != 1 || renders[0] != cached {
		t.Errorf("renders = %v, want exactly the cached record", renders)
	}
	if st := c.Status(); st.LastOutcome != OutcomeFallback {
		t.Errorf("outcome = %q, want %q", st.LastOutcome, OutcomeFallback)
	}
}

func TestRefreshFallsBackWhenDownloadFails(t *testing.T) {
	cached := cache.Record{Path: "images/20260825_090000.png"}
	fetcher := &fakeFetcher{url: "https://cdn.example.com/i.png"}
	store := &fakeStore{dlErr: errors.New("timeout"), latest: cached}
	renderer := &fakeRenderer{}

	New(fetcher, store, renderer, 0).Refresh(context.Background())

	renders := renderer.renders()
	if len(renders) != 1 || renders[0] != cached {
		t.Errorf("renders = %v, want the cached record", renders)
	}
}

func TestRefreshNothingToShow(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("no route to host")}
	store := &fakeStore{latestErr: errors.New("no cached images")}
	renderer := &fakeRenderer{}

	c := New(fetcher, store, renderer, 0)
	c.Refresh(context.Background())

	if got := len(renderer.renders()); got != 0 {
		t.Errorf("renders = %d, want 0", got)
	}
	if st := c.Status(); st.LastOutcome != OutcomeSkipped {
		t.Errorf("outcome = %q, want %q", st.LastOutcome, OutcomeSkipped)
	}
}

func TestRefreshRenderFailureIsAbsorbed(t *testing.T) {
	fetcher := &fakeFetcher{url: "https://cdn.example.com/i.png"}
	store := &fakeStore{dlRec: cache.Record{Path: "images/x.png"}}
	renderer := &fakeRenderer{err: errors.New("panel stuck busy")}

	c := New(fetcher, store, renderer, 0)
	c.Refresh(context.Background()) // must not panic or propagate

	st := c.Status()
	if st.LastOutcome != OutcomeRenderFailed {
		t.Errorf("outcome = %q, want %q", st.LastOutcome, OutcomeRenderFailed)
	}
	if !st.LastSuccess.IsZero() {
		t.Errorf("LastSuccess = %v, want zero", st.LastSuccess)
	}
}

func TestRefreshRateLimited(t *testing.T) {
	fetcher := &fakeFetcher{url: "https://cdn.example.com/i.png"}
	store := &fakeStore{dlRec: cache.Record{Path: "images/x.png"}}
	renderer := &fakeRenderer{}

	c := New(fetcher, store, renderer, time.Hour)
	c.Refresh(context.Background())
	c.Refresh(context.Background()) // inside the interval, dropped

	if got := store.downloadCount(); got != 1 {
		t.Errorf("downloads = %d, want 1 (second trigger rate limited)", got)
	}
	if got := c.Status().Refreshes; got != 1 {
		t.Errorf("refreshes = %d, want 1", got)
	}
}

func TestRenderLatest(t *testing.T) {
	cached := cache.Record{Path: "images/20260826_100000.png"}
	store := &fakeStore{latest: cached}
	renderer := &fakeRenderer{}

	c := New(&fakeFetcher{}, store, renderer, 0)
	c.RenderLatest(context.Background())

	if got := store.downloadCount(); got != 0 {
		t.Errorf("downloads = %d, want 0", got)
	}
	renders := renderer.renders()
	if len(renders) != 1 || renders[0] != cached {
		t.Errorf("renders = %v, want the cached record", renders)
	}
}

func TestConcurrentRefreshesSerialize(t *testing.T) {
	fetcher := &fakeFetcher{url: "https://cdn.example.com/i.png"}
	store := &fakeStore{dlRec: cache.Record{Path: "images/x.png"}}
	renderer := &fakeRenderer{}

	c := New(fetcher, store, renderer, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Refresh(context.Background())
		}()
	}
	wg.Wait()

	if got := len(renderer.renders()); got != 8 {
		t.Errorf("renders = %d, want 8", got)
	}
	if got := c.Status().Refreshes; got != 8 {
		t.Errorf("refreshes = %d, want 8", got)
	}
}
