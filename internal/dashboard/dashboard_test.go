package dashboard

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Lamikins/branch-prediction/internal/perceptron"
	"github.com/Lamikins/branch-prediction/internal/predictor"
)

func newTestDashboard(t *testing.T) *Dashboard {
	t.Helper()
	bp, err := predictor.New(perceptron.VariantSign, perceptron.Config{HistoryLength: 4, Eta: 1})
	if err != nil {
		t.Fatalf("predictor.New failed: %v", err)
	}
	for i := 0; i < 30; i++ {
		bp.Observe(true, "loop")
	}
	return New(bp, 0, 10*time.Millisecond)
}

func TestDashboard_AccuracyAPI(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t)

	req := httptest.NewRequest("GET", "/api/accuracy", nil)
	rec := httptest.NewRecorder()
	d.handleAccuracyAPI(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var snap Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	site, ok := snap.Sites["loop"]
	if !ok {
		t.Fatal("snapshot missing the observed site")
	}
	if site.Total != 30 {
		t.Errorf("total = %d, want 30", site.Total)
	}
	if site.Accuracy <= 0 || site.Accuracy > 1 {
		t.Errorf("accuracy = %v", site.Accuracy)
	}
}

func TestDashboard_IndexServesPage(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t)

	rec := httptest.NewRecorder()
	d.handleIndex(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Branch Predictor Accuracy") {
		t.Error("index page missing title")
	}
}

func TestDashboard_WebSocketInitialSnapshot(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t)
	server := httptest.NewServer(d.server.Handler)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if _, ok := snap.Sites["loop"]; !ok {
		t.Error("initial snapshot missing the observed site")
	}
}

func TestDashboard_StartStop(t *testing.T) {
	t.Parallel()

	d := newTestDashboard(t)
	if err := d.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := d.Start(); err == nil {
		t.Error("second Start should fail")
	}
	if err := d.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := d.Stop(); err != nil {
		t.Errorf("Stop on stopped dashboard: %v", err)
	}
}

func TestSnapshot_JSONShape(t *testing.T) {
	t.Parallel()

	snap := Snapshot{
		Timestamp: time.Now(),
		Sites: map[string]predictor.TagReport{
			"x": {Accuracy: 0.5, MovingAccuracy: 0.4, Hits: 1, Total: 2},
		},
	}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"timestamp"`, `"sites"`, `"accuracy"`, `"movingAccuracy"`, `"hits"`, `"total"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("snapshot JSON missing %s", key)
		}
	}
}
