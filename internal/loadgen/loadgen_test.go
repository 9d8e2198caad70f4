package loadgen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lstn/beacon/internal/beacon"
	"github.com/lstn/beacon/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSender collects signals and fails every failEvery-th send.
type recordingSender struct {
	mu        sync.Mutex
	signals   []beacon.Signal
	failEvery int
}

func (s *recordingSender) Send(_ context.Context, sig beacon.Signal) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append(s.signals, sig)
	if s.failEvery > 0 && len(s.signals)%s.failEvery == 0 {
		return 0, errors.New("connection refused")
	}
	return http.StatusOK, nil
}

func TestGenerator_AgainstCollector(t *testing.T) {
	t.Parallel()

	collector := testutil.NewCollector(t)
	emitter, err := beacon.NewEmitter(beacon.EmitterConfig{
		CollectorURL: collector.URL(),
		Scheme:       beacon.SchemePrefixed,
		Client:       &http.Client{Timeout: 2 * time.Second},
		Logger:       discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	gen := New(emitter, Options{
		Total:       50,
		Concurrency: 4,
		ContentIDs:  []uint32{101, 202, 303},
		Rand:        beacon.NewRand(7),
		Logger:      discardLogger(),
	})
	report, err := gen.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Sent != 50 || report.Failed != 0 {
		t.Errorf("report = %+v, want 50 sent", report)
	}
	if report.RunID != gen.RunID() || report.RunID == "" {
		t.Errorf("run id = %q, want %q", report.RunID, gen.RunID())
	}

	reqs := collector.Requests()
	if len(reqs) != 50 {
		t.Fatalf("collector got %d requests, want 50", len(reqs))
	}
	allowed := map[uint32]bool{101: true, 202: true, 303: true}
	for _, r := range reqs {
		sig, err := beacon.SchemePrefixed.Read(r.Header)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if sig.Kind != beacon.KindLoad {
			t.Errorf("kind = %s, want LOAD", sig.Kind)
		}
		if sig.DeviceID != report.DeviceID {
			t.Errorf("USR = %d, want fixed %d", sig.DeviceID, report.DeviceID)
		}
		if !allowed[sig.ContentID] {
			t.Errorf("CID = %d not from the content id list", sig.ContentID)
		}
	}
}

func TestGenerator_FreshSessionPerBeacon(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	report, err := New(sender, Options{
		Total:       200,
		Concurrency: 8,
		Rand:        beacon.NewRand(42),
		Logger:      discardLogger(),
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	sessions := make(map[uint32]bool)
	for _, sig := range sender.signals {
		if sig.DeviceID != report.DeviceID {
			t.Fatalf("device id changed mid-run: %d vs %d", sig.DeviceID, report.DeviceID)
		}
		if sig.ContentID >= beacon.ContentIDRange {
			t.Errorf("content id %d out of range", sig.ContentID)
		}
		sessions[sig.SessionID] = true
	}
	// Collisions among 200 uint32 draws are possible but vanishingly rare.
	if len(sessions) < 195 {
		t.Errorf("distinct sessions = %d, want about 200", len(sessions))
	}
}

func TestGenerator_CountsFailures(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{failEvery: 4}
	report, err := New(sender, Options{
		Total:       40,
		Concurrency: 1,
		Logger:      discardLogger(),
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Sent != 30 || report.Failed != 10 {
		t.Errorf("sent/failed = %d/%d, want 30/10", report.Sent, report.Failed)
	}
}

func TestGenerator_RateLimited(t *testing.T) {
	t.Parallel()

	sender := &recordingSender{}
	start := time.Now()
	_, err := New(sender, Options{
		Total:       6,
		Concurrency: 3,
		Rate:        20,
		Logger:      discardLogger(),
	}).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Burst of 20 covers all six; the limiter must not stall a small run.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("run took %s", elapsed)
	}
	if len(sender.signals) != 6 {
		t.Errorf("sent %d, want 6", len(sender.signals))
	}
}

func TestGenerator_StopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sender := &recordingSender{}
	report, err := New(sender, Options{
		Total:       1000,
		Concurrency: 2,
		Rate:        1,
		Logger:      discardLogger(),
	}).Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if report.Sent+report.Failed >= 1000 {
		t.Errorf("cancelled run still sent everything: %+v", report)
	}
}

func TestReadContentIDs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return path
	}

	tests := []struct {
		name    string
		content string
		want    []uint32
		wantErr error
	}{
		{"plain", "45212\n45213\n", []uint32{45212, 45213}, nil},
		{"comments and blanks", "# cids\n\n 7 \n", []uint32{7}, nil},
		{"empty", "\n# nothing\n", nil, ErrNoContentIDs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadContentIDs(write(tt.name+".txt", tt.content))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadContentIDs: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}

	if _, err := ReadContentIDs(write("bad.txt", "12\nabc\n")); err == nil {
		t.Error("expected parse error for non-numeric line")
	}
	if _, err := ReadContentIDs(filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}
