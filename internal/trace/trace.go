// Package trace broadcasts per-instruction VM state to any connected
// websocket client, for the `--watch` flag. It implements vm.Hook; when no
// client is listening, broadcasts are dropped rather than blocking the
// interpreter.
package trace

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"ratsnake/internal/bytecode"
)

// Event is one broadcast frame: the VM's state immediately before
// executing the instruction at IP.
type Event struct {
	RunID       string `json:"run_id"`
	IP          int    `json:"ip"`
	Opcode      string `json:"opcode"`
	StackDepth  int    `json:"stack_depth"`
	BasePointer int    `json:"base_pointer"`
}

// Broadcaster is a vm.Hook that fans instruction events out to every
// connected websocket client over a non-blocking buffered channel.
type Broadcaster struct {
	runID    string
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan Event
}

// NewBroadcaster returns a Broadcaster for the given run ID.
func NewBroadcaster(runID string) *Broadcaster {
	return &Broadcaster{
		runID:   runID,
		clients: make(map[*websocket.Conn]chan Event),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a websocket connection and streams
// events to it until it disconnects.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("trace: upgrade failed: %v", err)
		return
	}

	ch := make(chan Event, 256)
	b.mu.Lock()
	b.clients[conn] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.clients, conn)
		b.mu.Unlock()
		conn.Close()
	}()

	for ev := range ch {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// ListenAndServe starts an HTTP server at addr exposing the trace stream at
// "/trace". It blocks; callers should run it in its own goroutine.
func (b *Broadcaster) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/trace", b)
	return http.ListenAndServe(addr, mux)
}

func (b *Broadcaster) broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.clients {
		select {
		case ch <- ev:
		default:
			// Client is behind; drop the frame rather than block the VM.
		}
	}
}

// OnInstruction implements vm.Hook.
func (b *Broadcaster) OnInstruction(ip int, op bytecode.OpCode, stackDepth, basePointer int) {
	b.broadcast(Event{
		RunID:       b.runID,
		IP:          ip,
		Opcode:      op.String(),
		StackDepth:  stackDepth,
		BasePointer: basePointer,
	})
}

// OnCall, OnReturn, and OnHalt implement vm.Hook with no additional event
// beyond the OnInstruction stream; call/return boundaries are already
// visible as OP_CALL/OP_RETURN entries in that stream.
func (b *Broadcaster) OnCall(string, int) {}
func (b *Broadcaster) OnReturn(int)       {}
func (b *Broadcaster) OnHalt()            {}
