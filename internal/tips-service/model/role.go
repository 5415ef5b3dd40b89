package model

// Role é o papel de um usuário; admin equivale a moderador para gestão de tips
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

func (r Role) level() int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleModerator:
		return 1
	default:
		return 0
	}
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModerator || r == RoleAdmin
}

// IsModerator é derivado do papel, nunca armazenado
func (r Role) IsModerator() bool {
	return r.level() >= RoleModerator.level()
}

// EffectiveRole devolve o papel mais alto entre os informados (user se vazio)
func EffectiveRole(roles ...Role) Role {
	best := RoleUser
	for _, r := range roles {
		if r.Valid() && r.level() > best.level() {
			best = r
		}
	}
	return best
}
