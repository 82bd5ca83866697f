package domain

import "strings"

type Identity struct {
	ID          string
	Email       string
	DisplayName string
	AvatarURL   string
	Roles       []string
	Claims      map[string]string
}

func (i Identity) HasRole(role string) bool {
	for _, candidate := range i.Roles {
		if strings.EqualFold(candidate, role) {
			return true
		}
	}

	return false
}
