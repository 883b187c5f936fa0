package economy

import (
	"github.com/google/uuid"
	"github.com/spinhall/tournament-engine/brackets"
)

// HubNotifier pushes notifications over the websocket hub. Everything here is
// best-effort: a dropped frame is acceptable, a blocked tournament operation
// is not.
type HubNotifier struct {
	hub *brackets.Hub
}

func NewHubNotifier(hub *brackets.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyUser(userID int, message string) {
	n.hub.BroadcastToRoom(brackets.UserRoom(userID), brackets.Event{
		ID:      uuid.NewString(),
		Type:    "notification",
		Payload: map[string]string{"message": message},
	})
}

func (n *HubNotifier) NotifyGlobal(event string, payload interface{}) {
	n.hub.BroadcastAll(brackets.Event{
		ID:      uuid.NewString(),
		Type:    event,
		Payload: payload,
	})
}

func (n *HubNotifier) NotifyTournament(tournamentID int, event string, payload interface{}) {
	n.hub.BroadcastToRoom(brackets.TournamentRoom(tournamentID), brackets.Event{
		ID:      uuid.NewString(),
		Type:    event,
		Payload: payload,
	})
}
