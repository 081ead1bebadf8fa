package console

import "github.com/espalier-cmd/espalier/pkgs/command"

// Permission levels, lowest to highest. A gate at level L admits any
// actor at L or above.
const (
	GuestLevel    = 0
	UserLevel     = 1
	OperatorLevel = 2
	AdminLevel    = 3
)

// Actor is the command source used by the console: who issued the line
// and at which permission level.
type Actor struct {
	Name  string
	Level int
}

// HasLevel reports whether the actor meets a minimum permission level.
func (a Actor) HasLevel(min int) bool { return a.Level >= min }

// RequireLevel builds a requirement predicate admitting sources that are
// Actors at or above min. Non-Actor sources are rejected.
func RequireLevel(min int) func(command.Source) bool {
	return func(src command.Source) bool {
		switch a := src.(type) {
		case Actor:
			return a.HasLevel(min)
		case *Actor:
			return a != nil && a.HasLevel(min)
		}
		return false
	}
}
