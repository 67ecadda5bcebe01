package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tnunamak/claudebar/internal/display"
	"github.com/tnunamak/claudebar/internal/refresh"
)

type fakeController struct {
	view     refresh.View
	accept   bool
	triggers int
}

func (f *fakeController) View() refresh.View { return f.view }

func (f *fakeController) TriggerManualRefresh() bool {
	f.triggers++
	return f.accept
}

func TestState(t *testing.T) {
	ctrl := &fakeController{view: refresh.View{
		Status: refresh.Error,
		State:  display.Initial().WithError("API returned 503", 80),
	}}
	srv := httptest.NewServer(New(ctrl, nil, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var got struct {
		Status string `json:"status"`
		State  struct {
			Title string `json:"title"`
			Tier  string `json:"tier"`
			Error string `json:"error"`
		} `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Status != "error" || got.State.Tier != "neutral" || got.State.Error != "API returned 503" {
		t.Fatalf("state = %+v", got)
	}
	if got.State.Title != display.PlaceholderTitle {
		t.Fatalf("title = %q", got.State.Title)
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name   string
		accept bool
		want   int
	}{
		{"accepted", true, http.StatusAccepted},
		{"in flight", false, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{accept: tt.accept}
			srv := httptest.NewServer(New(ctrl, nil, nil).Handler())
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/refresh", "application/json", nil)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if ctrl.triggers != 1 {
				t.Fatalf("triggers = %d", ctrl.triggers)
			}
		})
	}
}

func TestRefresh_getNotAllowed(t *testing.T) {
	srv := httptest.NewServer(New(&fakeController{}, nil, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/refresh")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "claudebar_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	srv := httptest.NewServer(New(&fakeController{}, reg, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "claudebar_test_total 1") {
		t.Fatalf("metrics body = %s", body)
	}
}

func TestServe_stopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(&fakeController{}, nil, nil).Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
