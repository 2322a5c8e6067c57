// Package bridge exposes the HTTP/WebSocket surface used by a game-server
// front end to reach the same memory store and inference client as the
// Discord bot.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/observability"
	"github.com/ent0n29/hibiki/internal/ollama"
	"github.com/ent0n29/hibiki/internal/protocol"
	"github.com/ent0n29/hibiki/internal/reliability"
	"github.com/ent0n29/hibiki/internal/respond"
)

const serviceVersion = "1.0.0"

// PlayerInfo is the last known state reported for a tracked player.
type PlayerInfo struct {
	Name     string             `json:"name"`
	UUID     string             `json:"uuid"`
	Location map[string]float64 `json:"location"`
	Health   float64            `json:"health"`
	Gamemode string             `json:"gamemode"`
}

type ChatRequest struct {
	Player    string `json:"player"`
	Message   string `json:"message"`
	UseMemory *bool  `json:"use_memory"`
}

type ChatResponse struct {
	Player   string `json:"player"`
	Response string `json:"response"`
	Success  bool   `json:"success"`
}

type BroadcastRequest struct {
	Message string `json:"message"`
}

// client is one websocket connection. All writes go through the outbound
// channel so exactly one goroutine touches the underlying conn for writes.
type client struct {
	conn     *websocket.Conn
	outbound chan any
	closed   chan struct{}
	once     sync.Once
}

func (c *client) enqueue(msg any) bool {
	select {
	case <-c.closed:
		return false
	case c.outbound <- msg:
		return true
	default:
		return false
	}
}

type Server struct {
	responder *respond.Responder
	gen       ollama.Generator
	store     *memory.Store
	metrics   *observability.Metrics
	log       zerolog.Logger
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	players map[string]PlayerInfo
}

func New(responder *respond.Responder, gen ollama.Generator, store *memory.Store, metrics *observability.Metrics, log zerolog.Logger, allowAnyOrigin bool) *Server {
	return &Server{
		responder: responder,
		gen:       gen,
		store:     store,
		metrics:   metrics,
		log:       log,
		clients:   make(map[*client]struct{}),
		players:   make(map[string]PlayerInfo),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if allowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
			s.metrics.Handler().ServeHTTP(w, req)
		})
	}

	r.Post("/chat", s.handleChat)
	r.Post("/broadcast", s.handleBroadcast)
	r.Post("/player/update", s.handlePlayerUpdate)
	r.Get("/player/{name}", s.handleGetPlayer)
	r.Delete("/memory/{player}", s.handleClearMemory)
	r.Get("/ws", s.handleWS)

	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	connected := len(s.clients)
	tracked := len(s.players)
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{
		"service":           "hibiki-bridge",
		"version":           serviceVersion,
		"connected_servers": connected,
		"tracked_players":   tracked,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Player) == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "player and message are required")
		return
	}

	useMemory := req.UseMemory == nil || *req.UseMemory
	res := s.answer(r.Context(), req.Player, req.Message, useMemory)
	if res.Fallback {
		respondJSON(w, http.StatusBadGateway, ChatResponse{
			Player:   req.Player,
			Response: res.Text,
			Success:  false,
		})
		return
	}
	respondJSON(w, http.StatusOK, ChatResponse{
		Player:   req.Player,
		Response: res.Text,
		Success:  true,
	})
}

// answer runs one bridge question through the shared turn pipeline. When
// memory is off the question goes straight to the model with no composed
// context and nothing recorded.
func (s *Server) answer(ctx context.Context, player, message string, useMemory bool) respond.Result {
	if useMemory {
		return s.responder.Respond(ctx, "bridge", player, message)
	}

	text, err := s.gen.Generate(ctx, message)
	if err != nil {
		reason := reliability.Classify(err)
		s.log.Error().Err(err).Str("player", player).Str("reason", string(reason)).Msg("bridge generation failed")
		return respond.Result{Text: respond.FallbackText(reason), Fallback: true, Reason: reason}
	}
	return respond.Result{Text: text}
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req BroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "message is required")
		return
	}

	s.log.Info().Str("message", req.Message).Msg("broadcasting to connected servers")
	s.broadcast(protocol.ServerBroadcast{
		Type:    protocol.TypeServerBroadcast,
		Message: req.Message,
	})
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handlePlayerUpdate(w http.ResponseWriter, r *http.Request) {
	var info PlayerInfo
	if err := decodeJSON(r, &info); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(info.Name) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	s.mu.Lock()
	s.players[info.Name] = info
	s.mu.Unlock()

	s.log.Info().Str("player", info.Name).Msg("updated player info")
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	s.mu.Lock()
	info, ok := s.players[name]
	s.mu.Unlock()

	if !ok {
		respondError(w, http.StatusNotFound, "player_not_found", "player not found")
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleClearMemory(w http.ResponseWriter, r *http.Request) {
	player := chi.URLParam(r, "player")
	s.store.ClearContext(player)
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Memory cleared for " + player,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		conn:     conn,
		outbound: make(chan any, 64),
		closed:   make(chan struct{}),
	}
	s.register(c)
	defer s.drop(c)

	go s.writeLoop(c)

	conn.SetReadLimit(1 << 20)
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			c.enqueue(protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			})
			continue
		}

		switch msg := parsed.(type) {
		case protocol.Chat:
			res := s.answer(r.Context(), msg.Player, msg.Message, true)
			c.enqueue(protocol.ChatResponse{
				Type:     protocol.TypeChatResponse,
				Player:   msg.Player,
				Response: res.Text,
			})
		case protocol.PlayerJoin:
			s.log.Info().Str("player", msg.Player).Msg("player joined")
			s.broadcast(protocol.PlayerEvent{
				Type:   protocol.TypePlayerEvent,
				Event:  "join",
				Player: msg.Player,
			})
		case protocol.PlayerLeave:
			s.log.Info().Str("player", msg.Player).Msg("player left")
			s.broadcast(protocol.PlayerEvent{
				Type:   protocol.TypePlayerEvent,
				Event:  "leave",
				Player: msg.Player,
			})
		}
	}
}

func (s *Server) writeLoop(c *client) {
	for {
		select {
		case <-c.closed:
			return
		case msg := <-c.outbound:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(msg); err != nil {
				s.drop(c)
				return
			}
		}
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.BridgeConnections.Set(float64(total))
	}
	s.log.Info().Int("total", total).Msg("websocket connected")
}

func (s *Server) drop(c *client) {
	s.mu.Lock()
	_, present := s.clients[c]
	delete(s.clients, c)
	total := len(s.clients)
	s.mu.Unlock()

	c.once.Do(func() {
		close(c.closed)
		_ = c.conn.Close()
	})

	if !present {
		return
	}
	if s.metrics != nil {
		s.metrics.BridgeConnections.Set(float64(total))
	}
	s.log.Info().Int("total", total).Msg("websocket disconnected")
}

// broadcast fans a message out to every connection. A connection that cannot
// accept the message is pruned.
func (s *Server) broadcast(msg any) {
	s.mu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		targets = append(targets, c)
	}
	s.mu.Unlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			s.log.Warn().Msg("pruning unresponsive websocket connection")
			s.drop(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
