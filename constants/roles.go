package constants

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)
