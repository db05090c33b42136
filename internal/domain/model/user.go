package model

import "time"

// RosterEntry is a roster slot. Value is what was paid at add time and is
// what gets refunded on removal.
type RosterEntry struct {
	PlayerID string    `json:"player_id"`
	Value    int64     `json:"value"`
	AddedAt  time.Time `json:"added_at"`
}

// User owns one roster and one budget. Version increments on every save and
// backs optimistic concurrency in the stores.
type User struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Budget    int64         `json:"budget"`
	Roster    []RosterEntry `json:"roster"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
}

// HasPlayer reports whether playerID is on the roster.
func (u *User) HasPlayer(playerID string) bool {
	return u.indexOf(playerID) >= 0
}

// Entry returns the roster slot for playerID.
func (u *User) Entry(playerID string) (RosterEntry, bool) {
	if i := u.indexOf(playerID); i >= 0 {
		return u.Roster[i], true
	}
	return RosterEntry{}, false
}

// RosterValue sums the values paid for current members.
func (u *User) RosterValue() int64 {
	var total int64
	for _, e := range u.Roster {
		total += e.Value
	}
	return total
}

// Clone returns a deep copy so callers can mutate without aliasing a stored record.
func (u User) Clone() User {
	out := u
	out.Roster = append([]RosterEntry(nil), u.Roster...)
	return out
}

func (u *User) indexOf(playerID string) int {
	for i, e := range u.Roster {
		if e.PlayerID == playerID {
			return i
		}
	}
	return -1
}

// WithoutPlayer returns the roster minus playerID.
func (u *User) WithoutPlayer(playerID string) []RosterEntry {
	out := make([]RosterEntry, 0, len(u.Roster))
	for _, e := range u.Roster {
		if e.PlayerID != playerID {
			out = append(out, e)
		}
	}
	return out
}
