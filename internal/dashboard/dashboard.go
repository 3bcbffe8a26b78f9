// Package dashboard serves a live accuracy view of a running simulation.
// It exposes a JSON snapshot endpoint and a WebSocket stream of per-site
// accuracy reports sampled on a fixed interval.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Lamikins/branch-prediction/internal/predictor"
)

// Snapshot is one dashboard update.
type Snapshot struct {
	Timestamp time.Time                      `json:"timestamp"`
	Sites     map[string]predictor.TagReport `json:"sites"`
}

// Dashboard streams accuracy reports from a branch predictor over HTTP and
// WebSocket.
type Dashboard struct {
	bp       *predictor.BranchPredictor
	interval time.Duration

	server      *http.Server
	upgrader    websocket.Upgrader
	clients     map[*websocket.Conn]bool
	clientsMu   sync.RWMutex
	broadcast   chan Snapshot
	stopChannel chan struct{}
	isRunning   bool
	mu          sync.Mutex
}

// New creates a dashboard on the given port sampling the predictor at the
// given interval.
func New(bp *predictor.BranchPredictor, port int, interval time.Duration) *Dashboard {
	if interval <= 0 {
		interval = time.Second
	}
	d := &Dashboard{
		bp:          bp,
		interval:    interval,
		upgrader:    websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		clients:     make(map[*websocket.Conn]bool),
		broadcast:   make(chan Snapshot, 100),
		stopChannel: make(chan struct{}),
	}

	r := mux.NewRouter()
	r.HandleFunc("/", d.handleIndex).Methods("GET")
	r.HandleFunc("/api/accuracy", d.handleAccuracyAPI).Methods("GET")
	r.HandleFunc("/ws", d.handleWebSocket).Methods("GET")

	d.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return d
}

// Start launches the sampler, broadcaster and HTTP server.
func (d *Dashboard) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dashboard is already running")
	}

	go d.sampler()
	go d.broadcaster()

	go func() {
		log.Info().Str("address", d.server.Addr).Msg("Starting accuracy dashboard")
		if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Dashboard server failed")
		}
	}()

	d.isRunning = true
	return nil
}

// Stop shuts the dashboard down, closing client connections.
func (d *Dashboard) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return nil
	}

	close(d.stopChannel)

	d.clientsMu.Lock()
	for client := range d.clients {
		client.Close()
	}
	d.clients = make(map[*websocket.Conn]bool)
	d.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := d.server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down dashboard server")
		return err
	}

	d.isRunning = false
	log.Info().Msg("Dashboard stopped")
	return nil
}

// sampler snapshots the predictor on the configured interval.
func (d *Dashboard) sampler() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := Snapshot{Timestamp: time.Now(), Sites: d.bp.AccuracyReport()}
			select {
			case d.broadcast <- snap:
			default:
				// Channel full, skip this update
			}
		case <-d.stopChannel:
			return
		}
	}
}

// broadcaster fans snapshots out to the connected clients.
func (d *Dashboard) broadcaster() {
	for {
		select {
		case snap := <-d.broadcast:
			d.broadcastToClients(snap)
		case <-d.stopChannel:
			return
		}
	}
}

func (d *Dashboard) broadcastToClients(snap Snapshot) {
	d.clientsMu.Lock()
	defer d.clientsMu.Unlock()

	data, err := json.Marshal(snap)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	for client := range d.clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warn().Err(err).Msg("Dropping WebSocket client")
			client.Close()
			delete(d.clients, client)
		}
	}
}

// handleAccuracyAPI serves the current accuracy report as JSON.
func (d *Dashboard) handleAccuracyAPI(w http.ResponseWriter, r *http.Request) {
	snap := Snapshot{Timestamp: time.Now(), Sites: d.bp.AccuracyReport()}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		log.Error().Err(err).Msg("Failed to encode accuracy snapshot")
	}
}

// handleWebSocket upgrades the connection and registers the client for
// streamed updates.
func (d *Dashboard) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	d.clientsMu.Lock()
	d.clients[conn] = true
	d.clientsMu.Unlock()

	// Send an immediate snapshot so the client has data before the first tick.
	snap := Snapshot{Timestamp: time.Now(), Sites: d.bp.AccuracyReport()}
	if data, err := json.Marshal(snap); err == nil {
		conn.WriteMessage(websocket.TextMessage, data)
	}

	// Reader loop only to detect disconnects.
	go func() {
		defer func() {
			d.clientsMu.Lock()
			delete(d.clients, conn)
			d.clientsMu.Unlock()
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// handleIndex serves the dashboard page.
func (d *Dashboard) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, indexHTML)
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Branch Predictor - Accuracy Dashboard</title>
    <meta charset="UTF-8">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 900px; margin: 0 auto; }
        h1 { color: #333; }
        table { width: 100%; border-collapse: collapse; background: #fff; box-shadow: 0 1px 3px rgba(0,0,0,0.1); }
        th, td { padding: 10px 14px; text-align: left; border-bottom: 1px solid #eee; }
        th { background: #2c3e50; color: #fff; }
        .ts { color: #888; font-size: 0.9em; margin-top: 10px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Branch Predictor Accuracy</h1>
        <table>
            <thead>
                <tr><th>Branch site</th><th>Hits</th><th>Total</th><th>Accuracy</th><th>Moving</th></tr>
            </thead>
            <tbody id="sites"></tbody>
        </table>
        <div class="ts" id="ts"></div>
    </div>
    <script>
        const ws = new WebSocket('ws://' + location.host + '/ws');
        ws.onmessage = (ev) => {
            const snap = JSON.parse(ev.data);
            const body = document.getElementById('sites');
            body.innerHTML = '';
            for (const [tag, s] of Object.entries(snap.sites).sort()) {
                const row = body.insertRow();
                row.innerHTML = '<td>' + tag + '</td><td>' + s.hits + '</td><td>' + s.total +
                    '</td><td>' + s.accuracy.toFixed(4) + '</td><td>' + s.movingAccuracy.toFixed(4) + '</td>';
            }
            document.getElementById('ts').textContent = 'Updated ' + snap.timestamp;
        };
    </script>
</body>
</html>`
