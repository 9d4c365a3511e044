package model

// Account is the identity provider's record (table accounts).
// Other tables reference it by id only.
type Account struct {
	ID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email         string `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash  string `gorm:"type:varchar(255);not null"                     json:"-"`
	EmailVerified bool   `gorm:"not null;default:false"                         json:"email_verified"`
	Timestamps
}

// TableName overrides the table name.
func (Account) TableName() string { return "accounts" }
