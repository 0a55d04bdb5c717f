// Package roster keeps the players of one room in join order and tracks
// which of them is host.
package roster

// Player is the per-room race state of one user. Progress, WPM and
// Accuracy are whatever the client reported.
type Player struct {
	UserID       string
	DisplayName  string
	Progress     float64
	WPM          float64
	Accuracy     float64
	CharsTyped   int
	Finished     bool
	FinishedAtMs int64 // elapsed since game start, valid when Finished
}

// ResetRace clears the per-game fields.
func (p *Player) ResetRace() {
	p.Progress = 0
	p.WPM = 0
	p.Accuracy = 0
	p.CharsTyped = 0
	p.Finished = false
	p.FinishedAtMs = 0
}

// Roster is not safe for concurrent use; the owning room serializes access.
//
// Invariant: when the roster is non-empty, host names exactly one member;
// when it is empty, host is "".
type Roster struct {
	order   []string
	players map[string]*Player
	host    string
}

func New() *Roster {
	return &Roster{
		players: make(map[string]*Player),
	}
}

// Add inserts a player or, for a known userID, refreshes its display name.
// The first player added to an empty roster becomes host.
func (r *Roster) Add(userID, displayName string) (*Player, bool) {
	if p, ok := r.players[userID]; ok {
		p.DisplayName = displayName
		return p, false
	}

	p := &Player{UserID: userID, DisplayName: displayName}
	r.players[userID] = p
	r.order = append(r.order, userID)
	if r.host == "" {
		r.host = userID
	}
	return p, true
}

// Remove deletes a player. When the host leaves, host passes to the
// earliest-joined remaining player. It reports whether the host changed.
func (r *Roster) Remove(userID string) (removed bool, hostChanged bool) {
	if _, ok := r.players[userID]; !ok {
		return false, false
	}

	delete(r.players, userID)
	for i, id := range r.order {
		if id == userID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	if r.host != userID {
		return true, false
	}
	r.host = ""
	if len(r.order) > 0 {
		r.host = r.order[0]
	}
	return true, true
}

func (r *Roster) Get(userID string) (*Player, bool) {
	p, ok := r.players[userID]
	return p, ok
}

// Players returns the members in join order.
func (r *Roster) Players() []*Player {
	out := make([]*Player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	return out
}

func (r *Roster) Host() string {
	return r.host
}

func (r *Roster) IsHost(userID string) bool {
	return userID != "" && r.host == userID
}

func (r *Roster) Len() int {
	return len(r.order)
}

// AllFinished is false for an empty roster.
func (r *Roster) AllFinished() bool {
	if len(r.order) == 0 {
		return false
	}
	for _, p := range r.players {
		if !p.Finished {
			return false
		}
	}
	return true
}

// ResetRace clears every player's per-game fields; membership is kept.
func (r *Roster) ResetRace() {
	for _, p := range r.players {
		p.ResetRace()
	}
}
