package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/postgres"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/service"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/session"
)

type Handler struct {
	mgr     *session.Manager
	archive *service.ChatArchive // nil — история отключена
}

func NewHandler(mgr *session.Manager, archive *service.ChatArchive) *Handler {
	return &Handler{mgr: mgr, archive: archive}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /rooms — сервис курсов заводит комнату до подключения хоста.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(req.HostParticipantID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "hostParticipantId is required"})
		return
	}

	roomID, err := h.mgr.CreateDetachedRoom(req.HostParticipantID, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrResourceExhausted) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "room limit reached"})
			return
		}
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, CreateRoomResponse{RoomID: roomID})
}

// GET /rooms/{id}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	room, parts, err := h.mgr.Snapshot(id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomItem{
		ID:           room.ID,
		HostID:       room.HostID,
		State:        room.State,
		CreatedAt:    room.CreatedAt,
		Participants: len(parts),
	})
}

// GET /rooms/{id}/participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	_, parts, err := h.mgr.Snapshot(id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetParticipants:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, ParticipantsResponse{Items: parts})
}

// GET /rooms/{id}/chat?after=&limit=
func (h *Handler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "chat history disabled"})
		return
	}
	roomID := chi.URLParam(r, "id")
	after := r.URL.Query().Get("after")
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			limit = n
		}
	}

	items, next, err := h.archive.History(r.Context(), roomID, after, limit)
	if err != nil {
		if errors.Is(err, postgres.ErrInvalidCursor) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid_cursor"})
			return
		}
		slog.Error("handler.GetChatHistory:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	resp := ChatHistoryResponse{
		NextCursor: next,
		Items: lo.Map(items, func(m domain.ChatMessage, _ int) ChatMessageItem {
			return ChatMessageItem{
				ID:         m.ID,
				RoomID:     m.RoomID,
				From:       m.From,
				Text:       m.Text,
				ReceivedAt: m.ReceivedAt.Truncate(time.Millisecond),
			}
		}),
	}
	writeJSON(w, http.StatusOK, resp)
}
