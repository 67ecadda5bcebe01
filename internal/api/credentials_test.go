package api

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

type fakeStore struct {
	blobs []string
	err   error
	calls int
}

func (f *fakeStore) Name() string { return "fake" }

func (f *fakeStore) Lookup(context.Context) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls - 1
	if i >= len(f.blobs) {
		i = len(f.blobs) - 1
	}
	return []byte(f.blobs[i]), nil
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		want    string
		wantErr error
	}{
		{"nested", `{"claudeAiOauth": {"accessToken": "nested-tok", "expiresAt": 1}}`, "nested-tok", nil},
		{"top level", `{"accessToken": "flat-tok"}`, "flat-tok", nil},
		{"nested wins", `{"claudeAiOauth": {"accessToken": "a"}, "accessToken": "b"}`, "a", nil},
		{"empty nested falls back", `{"claudeAiOauth": {}, "accessToken": "b"}`, "b", nil},
		{"no token", `{"claudeAiOauth": {"refreshToken": "r"}}`, "", ErrMalformed},
		{"not json", `sk-ant-raw`, "", ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToken([]byte(tt.blob))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("token = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProvider_cachesUntilForced(t *testing.T) {
	store := &fakeStore{blobs: []string{`{"accessToken": "one"}`, `{"accessToken": "two"}`}}
	p := NewProvider(store, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tok, err := p.Token(ctx, false)
		if err != nil {
			t.Fatalf("Token: %v", err)
		}
		if tok != "one" {
			t.Fatalf("token = %q, want one", tok)
		}
	}
	if store.calls != 1 {
		t.Fatalf("store calls = %d, want 1", store.calls)
	}

	tok, err := p.Token(ctx, true)
	if err != nil {
		t.Fatalf("forced Token: %v", err)
	}
	if tok != "two" || store.calls != 2 {
		t.Fatalf("forced token = %q after %d calls", tok, store.calls)
	}
}

func TestProvider_markStaleRefetches(t *testing.T) {
	store := &fakeStore{blobs: []string{`{"accessToken": "one"}`, `{"accessToken": "two"}`}}
	p := NewProvider(store, nil)
	ctx := context.Background()

	if _, err := p.Token(ctx, false); err != nil {
		t.Fatal(err)
	}
	p.MarkStale()
	tok, err := p.Token(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "two" {
		t.Fatalf("token after MarkStale = %q, want two", tok)
	}
	if _, err := p.Token(ctx, false); err != nil || store.calls != 2 {
		t.Fatalf("stale flag not cleared: calls = %d", store.calls)
	}
}

func TestProvider_failedForcedLookupDropsToken(t *testing.T) {
	store := &fakeStore{blobs: []string{`{"accessToken": "one"}`, `{"accessToken": "two"}`}}
	p := NewProvider(store, nil)
	ctx := context.Background()
	if _, err := p.Token(ctx, false); err != nil {
		t.Fatal(err)
	}

	store.err = errors.New("boom")
	if _, err := p.Token(ctx, true); err == nil {
		t.Fatal("expected forced lookup to fail")
	}
	store.err = nil
	tok, err := p.Token(ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if store.calls != 3 {
		t.Fatalf("store calls = %d, want a fresh lookup after the failed forced one", store.calls)
	}
	if tok == "one" {
		t.Fatal("rejected token handed out again")
	}
}

func TestProvider_failedStaleLookupKeepsToken(t *testing.T) {
	store := &fakeStore{blobs: []string{`{"accessToken": "one"}`}}
	p := NewProvider(store, nil)
	ctx := context.Background()
	if _, err := p.Token(ctx, false); err != nil {
		t.Fatal(err)
	}

	p.MarkStale()
	store.err = errors.New("file mid-write")
	if _, err := p.Token(ctx, false); err == nil {
		t.Fatal("expected stale lookup to fail")
	}
	store.err = nil
	tok, err := p.Token(ctx, false)
	if err != nil || tok != "one" {
		t.Fatalf("token = %q, %v", tok, err)
	}
}

func TestCommandStore_nonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	s := NewCommandStore("sh", "-c", "echo 'item not found' >&2; exit 44")
	_, err := s.Lookup(context.Background())
	if !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("err = %v, want ErrLookupFailed", err)
	}
}

func TestCommandStore_stdoutIsBlob(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs sh")
	}
	s := NewCommandStore("sh", "-c", `printf '{"claudeAiOauth":{"accessToken":"kc"}}\n'`)
	p := NewProvider(s, nil)
	tok, err := p.Token(context.Background(), false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "kc" {
		t.Fatalf("token = %q", tok)
	}
}

func TestEnvStore(t *testing.T) {
	t.Setenv("CLAUDEBAR_TEST_TOKEN", " raw-token ")
	p := NewProvider(NewEnvStore("CLAUDEBAR_TEST_TOKEN"), nil)
	tok, err := p.Token(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if tok != "raw-token" {
		t.Fatalf("token = %q", tok)
	}

	t.Setenv("CLAUDEBAR_TEST_TOKEN", "")
	if _, err := NewEnvStore("CLAUDEBAR_TEST_TOKEN").Lookup(context.Background()); !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("unset env err = %v", err)
	}
}

func TestChainStore_firstSuccessWins(t *testing.T) {
	failing := &fakeStore{err: ErrLookupFailed}
	ok := &fakeStore{blobs: []string{`{"accessToken": "chained"}`}}
	unused := &fakeStore{blobs: []string{`{"accessToken": "never"}`}}

	blob, err := ChainStore{failing, ok, unused}.Lookup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != `{"accessToken": "chained"}` {
		t.Fatalf("blob = %s", blob)
	}
	if unused.calls != 0 {
		t.Fatal("store after first success was consulted")
	}

	other := &fakeStore{err: ErrMalformed}
	_, err = ChainStore{failing, other}.Lookup(context.Background())
	if !errors.Is(err, ErrLookupFailed) || !errors.Is(err, ErrMalformed) {
		t.Fatalf("all-failing chain err = %v", err)
	}
	if msg := err.Error(); strings.Contains(msg, "\n") || !strings.Contains(msg, "; ") {
		t.Fatalf("chain error message = %q, want one line", msg)
	}
}

func TestFileStore_lookupAndWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".credentials.json")
	s := NewFileStore(path, nil)

	if _, err := s.Lookup(context.Background()); !errors.Is(err, ErrLookupFailed) {
		t.Fatalf("missing file err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changed := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- s.Watch(ctx, func() { changed <- struct{}{} })
	}()

	// Give the watcher a moment to register the directory.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for seen := false; !seen; {
		if err := os.WriteFile(path, []byte(`{"accessToken":"f"}`), 0600); err != nil {
			t.Fatal(err)
		}
		select {
		case <-changed:
			seen = true
		case <-ticker.C:
		case <-deadline:
			t.Fatal("no change notification")
		}
	}

	blob, err := s.Lookup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if tok, err := ParseToken(blob); err != nil || tok != "f" {
		t.Fatalf("token = %q, %v", tok, err)
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Watch returned %v", err)
	}
}
