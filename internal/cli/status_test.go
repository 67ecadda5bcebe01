package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tnunamak/claudebar/internal/api"
	"github.com/tnunamak/claudebar/internal/refresh"
)

type fakeTokens struct {
	err error
}

func (f fakeTokens) Token(context.Context, bool) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "tok", nil
}

type fakeUsage struct {
	snap api.Snapshot
	err  error
}

func (f fakeUsage) Fetch(context.Context, string) (api.Snapshot, error) {
	return f.snap, f.err
}

func run(t *testing.T, tokens refresh.TokenSource, usage refresh.UsageFetcher, opts Options) (int, string, string) {
	t.Helper()
	rec := &Recorder{}
	ctrl := refresh.New(tokens, usage, rec, refresh.Options{})
	var out, errOut bytes.Buffer
	opts.Out = &out
	opts.ErrOut = &errOut
	code := Status(context.Background(), ctrl, rec, opts)
	return code, out.String(), errOut.String()
}

func testSnapshot(now time.Time) api.Snapshot {
	five := now.Add(150 * time.Minute)
	return api.NewSnapshot(map[api.Window]api.WindowStat{
		api.FiveHour:     {Utilization: 40, ResetsAt: &five},
		api.SevenDay:     {Utilization: 12.5},
		api.SevenDayOpus: {Utilization: 3},
	}, now)
}

func TestStatus_plain(t *testing.T) {
	now := time.Now()
	code, out, _ := run(t, fakeTokens{}, fakeUsage{snap: testSnapshot(now)}, Options{Plain: true, Now: func() time.Time { return now }})
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}
	if !strings.HasPrefix(out, "5h: 40% (resets ") || !strings.Contains(out, "7d: 12% (resets N/A)") {
		t.Fatalf("output = %q", out)
	}
}

func TestStatus_json(t *testing.T) {
	now := time.Now()
	code, out, _ := run(t, fakeTokens{}, fakeUsage{snap: testSnapshot(now)}, Options{JSON: true, Now: func() time.Time { return now }})
	if code != 0 {
		t.Fatalf("exit = %d", code)
	}

	var got struct {
		Status string `json:"status"`
		State  struct {
			Title string   `json:"title"`
			Tier  string   `json:"tier"`
			Lines []string `json:"lines"`
		} `json:"state"`
		Usage    map[string]api.WindowStat `json:"usage"`
		Forecast map[string]struct {
			ProjectedPct float64 `json:"projected_pct"`
			Indicator    string  `json:"indicator"`
		} `json:"forecast"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if got.Status != "data" || got.State.Tier != "green" || got.State.Title != "5h: 40% | 7d: 12%" {
		t.Fatalf("status=%q state=%+v", got.Status, got.State)
	}
	if got.Usage["seven_day_opus"].Utilization != 3 {
		t.Fatalf("usage = %+v", got.Usage)
	}
	if _, ok := got.Usage["seven_day_sonnet"]; !ok {
		t.Fatal("missing window omitted from JSON")
	}
	if f := got.Forecast["five_hour"]; f.ProjectedPct != 80 || f.Indicator != "on track" {
		t.Fatalf("forecast = %+v", f)
	}
}

func TestStatus_exitCodes(t *testing.T) {
	code, _, errOut := run(t, fakeTokens{err: fmt.Errorf("%w: keychain", api.ErrLookupFailed)}, fakeUsage{}, Options{Plain: true})
	if code != 2 || !strings.Contains(errOut, "keychain") {
		t.Fatalf("credential failure: exit=%d stderr=%q", code, errOut)
	}

	code, _, errOut = run(t, fakeTokens{}, fakeUsage{err: &api.StatusError{Status: 503}}, Options{Plain: true})
	if code != 1 || !strings.Contains(errOut, "503") {
		t.Fatalf("fetch failure: exit=%d stderr=%q", code, errOut)
	}
}

func TestBar(t *testing.T) {
	if got := bar(50); strings.Count(got, "█") != 10 {
		t.Fatalf("bar(50) = %q", got)
	}
	if got := bar(150); strings.Count(got, "░") != 0 {
		t.Fatalf("bar(150) = %q", got)
	}
}
