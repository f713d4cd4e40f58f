package game

// Redact returns a copy of the state as viewerID may see it. Hidden cards are
// replaced by Unknown so counts stay visible. An empty viewer sees only
// public information.
func (gs *GameState) Redact(viewerID string) *GameState {
	cp := gs.Copy()
	for i := range cp.Players {
		p := &cp.Players[i]
		if p.ID == viewerID {
			continue
		}
		if !gs.handCounted(p.ID) {
			hide(p.Hand)
		}
		hide(p.PeggingHand)
	}
	hide(cp.Deck)
	if !cp.CribRevealed {
		hide(cp.Crib)
	}
	for id := range cp.DealerSelectionCards {
		if id != viewerID {
			cp.DealerSelectionCards[id] = Unknown
		}
	}
	return cp
}

// Redact hides the event's cards from everyone but their owner. Cards that
// went straight from the deck to the crib are hidden from everyone.
func (e GameEvent) Redact(viewerID string) GameEvent {
	e = e.clone()
	switch {
	case e.ActionType == AutoCribCardAction:
		hide(e.Cards)
	case e.ActionType.hidesCards() && e.PlayerID != viewerID:
		hide(e.Cards)
	}
	return e
}

// Redact applies the viewer's filter to state, event and requests. Other
// players' requests keep their envelope but lose their payload.
func (s GameSnapshot) Redact(viewerID string) GameSnapshot {
	out := GameSnapshot{Event: s.Event.Redact(viewerID)}
	if s.State != nil {
		out.State = s.State.Redact(viewerID)
	}
	if s.PendingRequests != nil {
		out.PendingRequests = make([]DecisionRequest, len(s.PendingRequests))
		for i, req := range s.PendingRequests {
			if req.PlayerID != viewerID {
				req.Data = nil
			}
			out.PendingRequests[i] = req
		}
	}
	return out
}

func hide(cards []Card) {
	for i := range cards {
		cards[i] = Unknown
	}
}
