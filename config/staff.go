package config

type Role uint8

const (
	RoleNone Role = iota
	RoleWhitelist
	RoleSudo
	RoleDev
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleDev:
		return "dev"
	case RoleSudo:
		return "sudo"
	case RoleWhitelist:
		return "whitelist"
	default:
		return "none"
	}
}

// Staff resolves support-staff tiers. Tiers nest: an owner is also dev, sudo and whitelisted.
type Staff struct {
	roles map[int64]Role
}

func NewStaff(ids StaffIDs) *Staff {
	s := &Staff{roles: make(map[int64]Role)}
	set := func(id int64, r Role) {
		if id == 0 {
			return
		}
		if s.roles[id] < r {
			s.roles[id] = r
		}
	}
	for _, id := range ids.Users {
		set(id, RoleWhitelist)
	}
	for _, id := range ids.Sudo {
		set(id, RoleSudo)
	}
	for _, id := range ids.Devs {
		set(id, RoleDev)
	}
	set(ids.Owner, RoleOwner)
	return s
}

func (s *Staff) Role(userID int64) Role {
	if s == nil {
		return RoleNone
	}
	return s.roles[userID]
}

func (s *Staff) Has(userID int64, min Role) bool {
	if min == RoleNone {
		return true
	}
	return s.Role(userID) >= min
}

// IsSupport reports any staff tier, whitelist included.
func (s *Staff) IsSupport(userID int64) bool { return s.Has(userID, RoleWhitelist) }

func (s *Staff) Count() int {
	if s == nil {
		return 0
	}
	return len(s.roles)
}
