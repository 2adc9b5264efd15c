package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	diag "github.com/coreman2200/funtimes-cutscene/internal/diagnostics"
	"github.com/coreman2200/funtimes-cutscene/internal/scene"
	"github.com/coreman2200/funtimes-cutscene/internal/stage"
)

const (
	writeWait   = 200 * time.Millisecond
	diagHistory = 32
)

// Controller is the playback surface driven by control messages.
type Controller interface {
	Advance()
	Choose(i int) error
	Enter(id string) error
	Status() scene.Status
}

// Runner executes fn on the goroutine that owns playback and waits for it.
// *sequence.Loop satisfies it.
type Runner interface {
	Call(fn func()) bool
}

// Control is one message on the control socket.
type Control struct {
	Op    string `json:"op"` // advance | choose | enter | sound_ended | status
	Index int    `json:"index,omitempty"`
	ID    string `json:"id,omitempty"`
	Key   string `json:"key,omitempty"`
}

// Reply answers a Control message.
type Reply struct {
	OK     bool          `json:"ok"`
	Error  string        `json:"error,omitempty"`
	Status *scene.Status `json:"status,omitempty"`
}

// Message is one frame on the stage socket.
type Message struct {
	Type     string          `json:"type"` // snapshot | effect
	Snapshot *stage.Snapshot `json:"snapshot,omitempty"`
	Effect   *stage.Effect   `json:"effect,omitempty"`
}

var errLoopStopped = errors.New("playback loop stopped")

type peer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (p *peer) send(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.write(b)
}

// write expects p.mu held.
func (p *peer) write(b []byte) error {
	_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return p.conn.WriteMessage(websocket.TextMessage, b)
}

// Server bridges the stage to browser clients: it streams effects and
// diagnostics out and feeds control messages into playback.
type Server struct {
	stage *stage.Stage
	run   Runner
	ctrl  Controller
	up    websocket.Upgrader
	log   zerolog.Logger

	mu          sync.RWMutex
	clients     map[*peer]bool
	diagClients map[*peer]bool
	diags       []diag.Diagnostic
	startTime   time.Time
	unsubscribe func()
}

// NewServer subscribes to st. Control messages are rejected until Bind.
func NewServer(st *stage.Stage, run Runner) *Server {
	s := &Server{
		stage:       st,
		run:         run,
		up:          websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		log:         log.With().Str("component", "ws").Logger(),
		clients:     map[*peer]bool{},
		diagClients: map[*peer]bool{},
		startTime:   time.Now(),
	}
	s.unsubscribe = st.Subscribe(s.broadcast)
	return s
}

// WithLogger replaces the component logger.
func (s *Server) WithLogger(l zerolog.Logger) *Server {
	s.log = l
	return s
}

// Bind sets the playback controller.
func (s *Server) Bind(c Controller) {
	s.mu.Lock()
	s.ctrl = c
	s.mu.Unlock()
}

// Close drops the stage subscription and every client.
func (s *Server) Close() {
	s.unsubscribe()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for p := range s.clients {
		p.conn.Close()
	}
	for p := range s.diagClients {
		p.conn.Close()
	}
}

// HandleStageWS sends a snapshot, then every effect as it is published.
func (s *Server) HandleStageWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn}

	// Register and snapshot on the playback goroutine so no effect lands
	// between them; effects published afterwards wait for the snapshot write.
	// p.mu stays held until the snapshot is written.
	snaps := make(chan stage.Snapshot, 1)
	register := func() {
		p.mu.Lock()
		s.mu.Lock()
		s.clients[p] = true
		s.mu.Unlock()
		snaps <- s.stage.Snapshot()
	}
	if !s.run.Call(register) {
		// The loop may have run register before stopping.
		select {
		case <-snaps:
			p.mu.Unlock()
		default:
		}
		s.drop(p, s.clients)
		return
	}
	snap := <-snaps
	b, _ := json.Marshal(Message{Type: "snapshot", Snapshot: &snap})
	err = p.write(b)
	p.mu.Unlock()
	if err != nil {
		s.drop(p, s.clients)
		return
	}
	go s.drain(p, s.clients)
}

// HandleDiagWS replays recent diagnostics, then streams new ones.
func (s *Server) HandleDiagWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	p := &peer{conn: conn}
	p.mu.Lock()
	s.mu.Lock()
	s.diagClients[p] = true
	history := append([]diag.Diagnostic(nil), s.diags...)
	s.mu.Unlock()
	for _, d := range history {
		b, _ := json.Marshal(d)
		if p.write(b) != nil {
			break
		}
	}
	p.mu.Unlock()
	go s.drain(p, s.diagClients)
}

// HandleControlWS applies control messages in order and answers each one.
func (s *Server) HandleControlWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	p := &peer{conn: conn}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var msg Control
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = p.send(Reply{Error: "bad message: " + err.Error()})
			continue
		}
		st, err := s.Apply(msg)
		rep := Reply{OK: err == nil, Status: &st}
		if err != nil {
			rep.Error = err.Error()
		}
		if p.send(rep) != nil {
			return
		}
	}
}

// Apply runs one control message on the playback goroutine and returns the
// resulting status.
func (s *Server) Apply(msg Control) (scene.Status, error) {
	s.mu.RLock()
	ctrl := s.ctrl
	s.mu.RUnlock()
	if ctrl == nil {
		return scene.Status{}, errors.New("playback not ready")
	}
	var (
		st  scene.Status
		err error
	)
	ok := s.run.Call(func() {
		switch msg.Op {
		case "advance":
			ctrl.Advance()
		case "choose":
			err = ctrl.Choose(msg.Index)
		case "enter":
			err = ctrl.Enter(msg.ID)
		case "sound_ended":
			s.stage.SoundEnded(msg.Key)
		case "status":
		default:
			err = fmt.Errorf("unknown op %q", msg.Op)
		}
		st = ctrl.Status()
	})
	if !ok {
		return scene.Status{}, errLoopStopped
	}
	if err != nil {
		s.log.Debug().Err(err).Str("op", msg.Op).Msg("control rejected")
	}
	return st, err
}

// HandleHealth reports playback status and connection counts.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ctrl := s.ctrl
	resp := map[string]any{
		"uptime_s":     time.Since(s.startTime).Seconds(),
		"clients":      len(s.clients),
		"diag_clients": len(s.diagClients),
	}
	s.mu.RUnlock()
	code := http.StatusOK
	if ctrl != nil {
		var st scene.Status
		if !s.run.Call(func() { st = ctrl.Status() }) {
			code = http.StatusServiceUnavailable
		}
		resp["playback"] = st
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// PushDiag records d and sends it to diagnostic clients. It has the
// diagnostics.Sink signature.
func (s *Server) PushDiag(d diag.Diagnostic) {
	b, _ := json.Marshal(d)
	s.mu.Lock()
	s.diags = append(s.diags, d)
	if len(s.diags) > diagHistory {
		s.diags = s.diags[len(s.diags)-diagHistory:]
	}
	peers := keys(s.diagClients)
	s.mu.Unlock()
	for _, p := range peers {
		p.mu.Lock()
		_ = p.write(b)
		p.mu.Unlock()
	}
}

func (s *Server) broadcast(e stage.Effect) {
	b, err := json.Marshal(Message{Type: "effect", Effect: &e})
	if err != nil {
		s.log.Error().Err(err).Str("op", string(e.Op)).Msg("encode effect")
		return
	}
	s.mu.RLock()
	peers := keys(s.clients)
	s.mu.RUnlock()
	for _, p := range peers {
		p.mu.Lock()
		if err := p.write(b); err != nil {
			s.log.Debug().Err(err).Msg("write effect")
		}
		p.mu.Unlock()
	}
}

// drain reads until the client goes away; clients never send on these
// sockets.
func (s *Server) drain(p *peer, set map[*peer]bool) {
	defer s.drop(p, set)
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) drop(p *peer, set map[*peer]bool) {
	s.mu.Lock()
	delete(set, p)
	s.mu.Unlock()
	p.conn.Close()
}

func keys(m map[*peer]bool) []*peer {
	out := make([]*peer, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	return out
}
