package fetcher_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robr/muses-frame/internal/fetcher"
)

func TestFetchReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"images":{"small":"https://cdn.example.com/img/42.png","large":"https://cdn.example.com/img/42_big.png"}}`))
	}))
	defer srv.Close()

	f := fetcher.New(srv.URL, srv.Client())
	url, err := f.FetchReference(context.Background())
	if err != nil {
		t.Fatalf("FetchReference: %v", err)
	}
	if want := "https://cdn.example.com/img/42.png"; url != want {
		t.Errorf("got %q, want %q", url, want)
	}
}

func TestFetchReferenceFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"images": not json`))
			},
		},
		{
			name: "missing field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"images":{}}`))
			},
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			f := fetcher.New(srv.URL, srv.Client())
			url, err := f.FetchReference(context.Background())
			if err == nil {
				t.Fatalf("expected error, got url %q", url)
			}
		})
	}
}

func TestFetchReferenceUnreachable(t *testing.T) {
	// Server is closed before the request is made.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := fetcher.New(url, nil)
	if _, err := f.FetchReference(context.Background()); err == nil {
		t.Fatal("expected error for unreachable endpoint")
	}
}
