package user

import "github.com/qazmun/mun/core"

type Role string

// Roles
const (
	RoleParticipant      Role = "participant"
	RoleDeputy           Role = "deputy"
	RoleGeneralSecretary Role = "general_secretary"
	RoleAdmin            Role = "admin"
	RoleFounder          Role = "founder"
)

type SecretaryType string

const (
	SecretaryGeneral SecretaryType = "general"
	SecretaryDeputy  SecretaryType = "deputy"
)

var (
	AllRoles = []Role{RoleParticipant, RoleDeputy, RoleGeneralSecretary, RoleAdmin, RoleFounder}

	rolePriorities = map[Role]int{
		RoleFounder:          30,
		RoleAdmin:            29,
		RoleGeneralSecretary: 21,
		RoleDeputy:           11,
		RoleParticipant:      1,
	}

	Roles = []RoleInfo{
		{Value: RoleParticipant, Label: core.Localized{RU: "Участник", KK: "Қатысушы", EN: "Participant"}},
		{Value: RoleDeputy, Label: core.Localized{RU: "Заместитель", KK: "Орынбасар", EN: "Deputy Secretary"}},
		{Value: RoleGeneralSecretary, Label: core.Localized{RU: "Генеральный секретарь", KK: "Бас хатшы", EN: "General Secretary"}},
		{Value: RoleAdmin, Label: core.Localized{RU: "Администратор", KK: "Администратор", EN: "Administrator"}},
		{Value: RoleFounder, Label: core.Localized{RU: "Основатель", KK: "Негізін қалаушы", EN: "Founder"}},
	}
)

type RoleInfo struct {
	Value Role           `json:"value"`
	Label core.Localized `json:"label"`
}

func (r Role) Priority() int {
	return rolePriorities[r]
}

func (r Role) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

func (r Role) in(roles ...Role) bool {
	for _, role := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func (r Role) CanCreateConference() bool {
	return r.in(RoleFounder, RoleAdmin, RoleGeneralSecretary, RoleDeputy)
}

func (r Role) CanApproveConference() bool {
	return r.in(RoleFounder, RoleAdmin)
}

func (r Role) CanPublishConference() bool {
	return r.in(RoleFounder, RoleAdmin)
}

// PublishesOnCreate tells whether conferences created by this role skip the approval step.
func (r Role) PublishesOnCreate() bool {
	return r == RoleFounder
}

func (r Role) CanCreateNews() bool {
	return r == RoleFounder
}

// CanViewNewsManagement gates the news management listing.
func (r Role) CanViewNewsManagement() bool {
	return r.in(RoleFounder, RoleGeneralSecretary)
}

func (r Role) CanManageUsers() bool {
	return r.in(RoleFounder, RoleAdmin)
}

func (r Role) IsSecretariat() bool {
	return r.in(RoleGeneralSecretary, RoleDeputy)
}

// CanGrant tells whether this role may set `target` on another profile.
// Nobody can grant a role above their own, and the founder role is never granted.
func (r Role) CanGrant(target Role) bool {
	return r.CanManageUsers() && target.IsValid() && target != RoleFounder && target.Priority() <= r.Priority()
}
