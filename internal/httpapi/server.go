// Package httpapi exposes the negotiation broker over REST and websocket.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"haggle.local/haggle-gateway/internal/broker"
	"haggle.local/haggle-gateway/internal/negotiate"
)

const maxRequestBytes int64 = 1 << 20

type server struct {
	logger *log.Logger
	broker *broker.Service
}

func NewServer(logger *log.Logger, addr string, brokerService *broker.Service) *http.Server {
	h := &server{
		logger: logger,
		broker: brokerService,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("POST /v1/sessions", h.handleStartSession)
	mux.HandleFunc("GET /v1/sessions/{id}", h.handleGetSession)
	mux.HandleFunc("POST /v1/sessions/{id}/messages", h.handleMessage)
	mux.HandleFunc("GET /v1/sessions/{id}/ws", h.handleSessionWS)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type startSessionBody struct {
	SessionID string                   `json:"session_id,omitempty"`
	Product   *negotiate.ProductBounds `json:"product,omitempty"`
}

type startSessionResponse struct {
	SessionID    string           `json:"session_id"`
	Status       negotiate.Status `json:"status"`
	CurrentOffer *float64         `json:"current_offer,omitempty"`
}

func (s *server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var body startSessionBody
	if !decodeBody(w, r, &body) {
		return
	}

	result, err := s.broker.Start(r.Context(), broker.StartParams{
		SessionID: strings.TrimSpace(body.SessionID),
		Product:   body.Product,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, startSessionResponse{
		SessionID:    result.SessionID,
		Status:       result.Status,
		CurrentOffer: result.CurrentOffer,
	})
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	rec, err := s.broker.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type messageBody struct {
	Message    string   `json:"message"`
	BudgetHint *float64 `json:"budget_hint,omitempty"`
}

type stepResponse struct {
	Reply      string           `json:"reply"`
	Status     negotiate.Status `json:"status"`
	FinalPrice *float64         `json:"final_price,omitempty"`
	History    []negotiate.Turn `json:"history"`
}

func (s *server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var body messageBody
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	result, err := s.broker.Step(r.Context(), r.PathValue("id"), body.Message, body.BudgetHint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stepResultResponse(result))
}

type wsStepFrame struct {
	Reply      string           `json:"reply,omitempty"`
	Status     negotiate.Status `json:"status,omitempty"`
	FinalPrice *float64         `json:"final_price,omitempty"`
	History    []negotiate.Turn `json:"history,omitempty"`
	Error      string           `json:"error,omitempty"`
}

func (s *server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	if _, err := s.broker.Get(r.Context(), sessionID); err != nil {
		s.writeError(w, err)
		return
	}

	upgrader := websocket.Upgrader{CheckOrigin: isWebSocketOriginAllowed}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("session ws upgrade failed session_id=%s err=%v", sessionID, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxRequestBytes)

	for {
		var req messageBody
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			_ = conn.WriteJSON(wsStepFrame{Error: "message is required"})
			continue
		}

		result, err := s.broker.Step(r.Context(), sessionID, req.Message, req.BudgetHint)
		if err != nil {
			_ = conn.WriteJSON(wsStepFrame{Error: err.Error()})
			if errors.Is(err, broker.ErrSessionNotFound) {
				return
			}
			continue
		}

		_ = conn.WriteJSON(wsStepFrame{
			Reply:      result.Reply,
			Status:     result.Status,
			FinalPrice: result.FinalPrice,
			History:    result.History,
		})

		if result.Status != negotiate.StatusOngoing {
			closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "negotiation "+string(result.Status))
			_ = conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(time.Second))
			return
		}
	}
}

func stepResultResponse(result negotiate.StepResult) stepResponse {
	return stepResponse{
		Reply:      result.Reply,
		Status:     result.Status,
		FinalPrice: result.FinalPrice,
		History:    result.History,
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		http.Error(w, fmt.Sprintf("invalid json: %v", err), http.StatusBadRequest)
		return false
	}
	if dec.More() {
		http.Error(w, "invalid json: trailing content", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, negotiate.ErrInvalidBounds):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, broker.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, broker.ErrSessionExists):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Printf("request failed err=%v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func isWebSocketOriginAllowed(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}
