// Package remote exposes the daemon's ingest surface: a small HTTP API
// for inspecting the synthetic devices and a websocket per pad that
// accepts controller state from a browser or remote agent.
package remote

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/joyshim/joyshim/pkg/udev"
)

// Message is one controller state change from a remote client.
type Message struct {
	Type   string  `json:"type"` // "button" or "axis"
	Number int     `json:"number"`
	Value  float64 `json:"value"`
}

// PadSink receives mapped controller input; producer.Pad and
// producer.Set both satisfy it.
type PadSink interface {
	SendButton(num int, val float64)
	SendAxis(num int, val float64)
}

type Server struct {
	pads           []PadSink
	registry       *udev.Registry
	allowedOrigins []string
	upgrader       websocket.Upgrader
}

func NewServer(pads []PadSink, registry *udev.Registry, allowedOrigins []string) *Server {
	s := &Server{
		pads:           pads,
		registry:       registry,
		allowedOrigins: allowedOrigins,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.originAllowed}
	return s
}

func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/devices", s.handleDevices).Methods(http.MethodGet)
	r.HandleFunc("/pads/{index:[0-9]+}/ws", s.handlePad)

	c := cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet},
	})
	return c.Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

func (s *Server) handleDevices(w http.ResponseWriter, _ *http.Request) {
	devices := []udev.Device{}
	if s.registry != nil {
		list, err := s.registry.List("input")
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		devices = list
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(devices)
}

// handlePad upgrades the connection and feeds incoming state changes
// into the addressed pad until the client goes away.
func (s *Server) handlePad(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil || index < 0 || index >= len(s.pads) {
		http.Error(w, "no such pad", http.StatusNotFound)
		return
	}
	pad := s.pads[index]

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[remote] pad %d: upgrade failed: %v", index, err)
		return
	}
	defer conn.Close()
	log.Printf("[remote] pad %d: client connected from %s", index, r.RemoteAddr)

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[remote] pad %d: read failed: %v", index, err)
			}
			return
		}
		switch msg.Type {
		case "button":
			pad.SendButton(msg.Number, msg.Value)
		case "axis":
			pad.SendAxis(msg.Number, msg.Value)
		default:
			log.Printf("[remote] pad %d: ignoring message type %q", index, msg.Type)
		}
	}
}
