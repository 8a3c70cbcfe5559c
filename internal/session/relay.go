package session

import "github.com/qacaursur-alt/Bugnation-sub001/internal/domain"

// handleSignal пересылает конверт ровно одному адресату. Порядок в паре
// (from,to) гарантирован: воркер обрабатывает команды по одной, а исходящая
// очередь соединения — FIFO. ICE-кандидат никогда не обгонит свой offer/answer.
func (w *roomWorker) handleSignal(env domain.SignalingEnvelope) {
	target, ok := w.members[env.To]
	if !ok || target.conn == nil {
		// Адресат ушёл — переговоры уже мертвы, ретраи бессмысленны.
		w.log.Debug("signal target absent, dropping",
			"room", w.id, "kind", env.Kind, "from", env.From, "to", env.To)
		return
	}

	if err := target.conn.Send(Event{
		Type: eventForSignal(env.Kind),
		Payload: SignalPayload{
			RoomID:  w.id,
			From:    env.From,
			To:      env.To,
			Payload: env.Payload,
		},
	}); err != nil {
		w.log.Debug("signal relay failed",
			"room", w.id, "from", env.From, "to", env.To, "err", err)
	}
}

func eventForSignal(kind domain.SignalKind) string {
	switch kind {
	case domain.SignalOffer:
		return EvtSignalOffer
	case domain.SignalAnswer:
		return EvtSignalAnswer
	default:
		return EvtSignalICE
	}
}
