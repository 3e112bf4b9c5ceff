package model

// GroupSummary — группа Keycloak с количеством участников.
type GroupSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// GroupMember — участник группы в ответах API.
type GroupMember struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Enabled  bool   `json:"enabled"`
}
