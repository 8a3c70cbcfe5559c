package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/qacaursur-alt/Bugnation-sub001/internal/domain"
	"github.com/qacaursur-alt/Bugnation-sub001/internal/session"
)

const handshakeWait = 10 * time.Second

type Server struct {
	upgrader websocket.Upgrader
	mgr      *session.Manager

	pingEvery time.Duration
	pongWait  time.Duration
}

func NewServer(mgr *session.Manager) *Server {
	return &Server{
		mgr: mgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  maxMessageSize,
			WriteBufferSize: maxMessageSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
		pongWait:  60 * time.Second,
	}
}

// WS endpoint: GET /ws. Соединение обязано первым кадром прислать
// room.create либо room.join; до этого оно ни к какой комнате не привязано.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn)
	go c.writePump(s.pingEvery)

	if !s.handshake(c) {
		_ = c.Close()
		return
	}

	s.readLoop(c)

	// Любой путь выхода: либо явный leave уже снял запись в справочнике,
	// либо это потеря транспорта и участник уходит в reconnect-окно.
	s.mgr.Detach(c.ID())
	_ = c.Close()
}

// handshake принимает первый кадр и привязывает соединение к комнате.
func (s *Server) handshake(c *wsConn) bool {
	_ = c.conn.SetReadDeadline(time.Now().Add(handshakeWait))

	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return false
	}

	var (
		roster session.RosterPayload
		err    error
	)
	switch msg.Type {
	case TypeRoomCreate:
		var p CreateRoomPayload
		if json.Unmarshal(msg.Payload, &p) != nil || strings.TrimSpace(p.HostParticipantID) == "" {
			s.sendError(c, "bad_request", "hostParticipantId is required")
			return false
		}
		roster, err = s.mgr.CreateRoom(c, p.HostParticipantID, p.DisplayName)
	case TypeRoomJoin:
		var p JoinRoomPayload
		if json.Unmarshal(msg.Payload, &p) != nil ||
			strings.TrimSpace(p.RoomID) == "" || strings.TrimSpace(p.ParticipantID) == "" {
			s.sendError(c, "bad_request", "roomId and participantId are required")
			return false
		}
		roster, err = s.mgr.Join(c, p.RoomID, p.ParticipantID, p.DisplayName)
	default:
		s.sendError(c, "bad_request", "expected room.create or room.join")
		return false
	}

	if err != nil {
		s.sendError(c, codeFor(err), err.Error())
		return false
	}

	_ = c.Send(session.Event{Type: session.EvtRoster, Payload: roster})
	return true
}

func (s *Server) readLoop(c *wsConn) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(s.pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("ws read closed", "conn", c.ID(), "err", err)
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if done := s.dispatch(c, msg); done {
			return
		}
	}
}

// dispatch переводит кадр в операцию менеджера; true — соединение закончило работу.
func (s *Server) dispatch(c *wsConn, msg Message) bool {
	switch msg.Type {
	case TypeRoomLeave:
		s.mgr.Leave(c.ID())
		return true

	case TypeRoomEnd:
		if err := s.mgr.EndRoom(c.ID()); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	case session.EvtSignalOffer, session.EvtSignalAnswer, session.EvtSignalICE:
		var p SignalRecvPayload
		if json.Unmarshal(msg.Payload, &p) != nil || p.To == "" {
			s.sendError(c, "bad_request", "signal requires a target participant")
			return false
		}
		if err := s.mgr.Signal(c.ID(), signalKind(msg.Type), p.To, p.Payload); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	case session.EvtPresence:
		var p PresenceRecvPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return false
		}
		if err := s.mgr.UpdatePresence(c.ID(), p.Patch); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	case session.EvtHandRaise:
		if err := s.mgr.RaiseHand(c.ID()); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	case session.EvtHandLower:
		if err := s.mgr.LowerHand(c.ID()); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	case session.EvtChat:
		var p ChatRecvPayload
		if json.Unmarshal(msg.Payload, &p) != nil {
			return false
		}
		if err := s.mgr.Chat(c.ID(), p.Text); err != nil {
			s.sendError(c, codeFor(err), err.Error())
		}

	default:
		// ignore
	}
	return false
}

func signalKind(msgType string) domain.SignalKind {
	switch msgType {
	case session.EvtSignalOffer:
		return domain.SignalOffer
	case session.EvtSignalAnswer:
		return domain.SignalAnswer
	default:
		return domain.SignalICE
	}
}

func (s *Server) sendError(c *wsConn, code, message string) {
	_ = c.Send(session.Event{
		Type:    TypeError,
		Payload: ErrorPayload{Code: code, Message: message},
	})
}
