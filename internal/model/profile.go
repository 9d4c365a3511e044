package model

// Role is a portal role.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStudent
}

// Profile is the role-tagged record layered over an Account (table profiles).
// Its id equals the Account id.
type Profile struct {
	ID        string `gorm:"type:uuid;primaryKey"        json:"id"`
	FirstName string `gorm:"type:varchar(100);not null"  json:"first_name"`
	LastName  string `gorm:"type:varchar(100);not null"  json:"last_name"`
	Role      Role   `gorm:"type:varchar(20);not null"   json:"role"`
	Timestamps
}

// TableName overrides the table name.
func (Profile) TableName() string { return "profiles" }

// IsAdmin reports whether the profile has the admin role.
func (p *Profile) IsAdmin() bool { return p != nil && p.Role == RoleAdmin }

// FullName joins first and last name.
func (p *Profile) FullName() string {
	if p == nil {
		return ""
	}
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
