package session

// handlePresence мержит патч и рассылает остальным только дельту.
// Патч, не меняющий ничего, не рассылается вовсе.
func (w *roomWorker) handlePresence(c presenceCmd) {
	m, ok := w.members[c.participantID]
	if !ok {
		return
	}
	delta := m.p.Media.Apply(c.patch)
	if delta.Empty() {
		return
	}
	w.broadcast(EvtPresence, PresencePayload{
		ParticipantID: c.participantID,
		Patch:         delta,
	}, c.participantID)
}

// handleHand — поднятая/опущенная рука. Идемпотентно: повторное hand.raise
// не даёт второй нотификации, сравниваем с текущим состоянием до рассылки.
func (w *roomWorker) handleHand(c handCmd) {
	m, ok := w.members[c.participantID]
	if !ok || m.p.HandRaised == c.raised {
		return
	}
	m.p.HandRaised = c.raised

	evt := EvtHandRaise
	if !c.raised {
		evt = EvtHandLower
	}
	w.broadcast(evt, HandPayload{ParticipantID: c.participantID}, c.participantID)
}
