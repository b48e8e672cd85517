// Package server exposes rooms over HTTP and websockets.
package server

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/DroopyTersen/mayi-sub006/engine"
	"github.com/DroopyTersen/mayi-sub006/internal/game"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Server struct {
	rooms *Registry
	auth  *TokenAuth
	log   *logrus.Entry
	start time.Time
}

func New(rooms *Registry, auth *TokenAuth, log *logrus.Entry) *Server {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Server{rooms: rooms, auth: auth, log: log, start: time.Now()}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/rooms", s.handleCreateRoom)
	r.Get("/rooms/{roomID}", s.handleGetRoom)
	r.Get("/ws/{roomID}", s.handleWS)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		began := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"elapsed":    time.Since(began).String(),
		}).Debug("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.start).Round(time.Second).String(),
	})
}

type createRoomRequest struct {
	Players []game.Seat `json:"players"`
	Seed    uint64      `json:"seed,omitempty"`
}

type createRoomResponse struct {
	RoomID uuid.UUID         `json:"roomId"`
	Tokens map[string]string `json:"tokens"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	seed := req.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	roomID, err := s.rooms.Create(r.Context(), req.Players, seed)
	if err != nil {
		if errors.Is(err, engine.ErrPlayerCount) || errors.Is(err, game.ErrUnknownPlayer) || errors.Is(err, engine.ErrUnknownPlayer) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.WithError(err).Error("create room")
		writeError(w, http.StatusInternalServerError, "could not create room")
		return
	}

	resp := createRoomResponse{RoomID: roomID, Tokens: make(map[string]string)}
	for _, p := range req.Players {
		if p.IsAI {
			continue
		}
		tok, err := s.auth.Issue(roomID, p.ExternalID)
		if err != nil {
			s.log.WithError(err).Error("issue token")
			writeError(w, http.StatusInternalServerError, "could not issue tokens")
			return
		}
		resp.Tokens[p.ExternalID] = tok
	}
	s.log.WithField("room", roomID).Infof("room created with %d players", len(req.Players))
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	rm, externalID, ok := s.authorize(w, r)
	if !ok {
		return
	}
	view, err := rm.session.View(r.Context(), externalID)
	if err != nil {
		s.log.WithError(err).Error("load view")
		writeError(w, http.StatusInternalServerError, "could not load room")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// authorize resolves the room in the path and the player in the token,
// writing the error response itself when either fails.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) (*room, string, bool) {
	roomID, err := uuid.Parse(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return nil, "", false
	}
	externalID, err := s.auth.Verify(requestToken(r), roomID)
	switch {
	case errors.Is(err, ErrWrongRoom):
		writeError(w, http.StatusForbidden, err.Error())
		return nil, "", false
	case err != nil:
		writeError(w, http.StatusUnauthorized, "invalid or missing token")
		return nil, "", false
	}
	rm, err := s.rooms.get(r.Context(), roomID)
	if errors.Is(err, ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, "", false
	}
	if err != nil {
		s.log.WithError(err).Error("open room")
		writeError(w, http.StatusInternalServerError, "could not open room")
		return nil, "", false
	}
	return rm, externalID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
