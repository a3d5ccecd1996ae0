package terminal

import (
	"fmt"
	"sort"
	"strings"
)

// SharedPin documents that two roles may use the same physical pin.
type SharedPin struct {
	A, B   Role
	Reason string
	// Flagged sharing is known but unverified, it is reported on every check.
	Flagged bool
}

func (s SharedPin) match(a, b Role) bool {
	return (s.A == a && s.B == b) || (s.A == b && s.B == a)
}

const reasonDefaultLayout = "provisioning default layout puts reset on the I2C clock pin, unverified whether hardware tolerates it"

// Reset on GPIO22 together with SCL comes from the provisioning generator and
// is kept as is until confirmed on hardware.
var documentedSharing = []SharedPin{
	{A: RoleSDA, B: RoleDisplaySDA, Reason: "reader and display share I2C bus data line"},
	{A: RoleSCL, B: RoleDisplaySCL, Reason: "reader and display share I2C bus clock line"},
	{A: RoleSCL, B: RoleRST, Reason: reasonDefaultLayout, Flagged: true},
	{A: RoleDisplaySCL, B: RoleRST, Reason: reasonDefaultLayout, Flagged: true},
}

// DocumentedSharing returns copy of expected pin aliases.
func DocumentedSharing() []SharedPin {
	return append([]SharedPin(nil), documentedSharing...)
}

func lookupSharing(a, b Role) (SharedPin, bool) {
	for _, s := range documentedSharing {
		if s.match(a, b) {
			return s, true
		}
	}
	return SharedPin{}, false
}

type RolePair [2]Role

func (p RolePair) String() string { return string(p[0]) + "+" + string(p[1]) }

// Alias is one physical pin assigned to more than one role.
type Alias struct {
	Pin   int
	Roles []Role
	// Active roles are driven by firmware with current reader and display selection.
	Active       []Role
	Documented   []SharedPin
	Undocumented []RolePair
	// Conflicts are undocumented pairs where both roles are active.
	Conflicts []RolePair
}

func (a Alias) clone() Alias {
	a.Roles = append([]Role(nil), a.Roles...)
	a.Active = append([]Role(nil), a.Active...)
	a.Documented = append([]SharedPin(nil), a.Documented...)
	a.Undocumented = append([]RolePair(nil), a.Undocumented...)
	a.Conflicts = append([]RolePair(nil), a.Conflicts...)
	return a
}

func (a *Alias) IsDocumented() bool { return len(a.Undocumented) == 0 }

// Flagged returns documented-but-unverified sharing among active roles.
func (a *Alias) Flagged() []SharedPin {
	var result []SharedPin
	for _, s := range a.Documented {
		if s.Flagged && containsRole(a.Active, s.A) && containsRole(a.Active, s.B) {
			result = append(result, s)
		}
	}
	return result
}

func (a *Alias) String() string {
	rs := make([]string, len(a.Roles))
	for i, r := range a.Roles {
		rs[i] = string(r)
	}
	state := "documented"
	if !a.IsDocumented() {
		state = "undocumented"
	}
	return fmt.Sprintf("pin=%d roles=%s %s", a.Pin, strings.Join(rs, ","), state)
}

// Aliases groups roles by physical pin, returns only shared pins ordered by pin.
func Aliases(c Config) []Alias {
	active := c.ActiveRoles()
	byPin := make(map[int][]Role)
	for _, a := range c.PinAssignments() {
		byPin[a.Pin] = append(byPin[a.Pin], a.Role)
	}
	pins := make([]int, 0, len(byPin))
	for pin, roles := range byPin {
		if len(roles) > 1 {
			pins = append(pins, pin)
		}
	}
	sort.Ints(pins)

	result := make([]Alias, 0, len(pins))
	for _, pin := range pins {
		roles := byPin[pin]
		a := Alias{Pin: pin, Roles: roles}
		for _, r := range roles {
			if active[r] {
				a.Active = append(a.Active, r)
			}
		}
		for i := 0; i < len(roles); i++ {
			for j := i + 1; j < len(roles); j++ {
				if s, ok := lookupSharing(roles[i], roles[j]); ok {
					a.Documented = append(a.Documented, s)
					continue
				}
				pair := RolePair{roles[i], roles[j]}
				a.Undocumented = append(a.Undocumented, pair)
				if active[roles[i]] && active[roles[j]] {
					a.Conflicts = append(a.Conflicts, pair)
				}
			}
		}
		result = append(result, a)
	}
	return result
}

func containsRole(rs []Role, r Role) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
