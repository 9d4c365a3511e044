package model

// Note is a message between one admin and one student (table notes).
type Note struct {
	ID               string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID           string `gorm:"type:uuid;not null;index"                       json:"user_id"`
	AdminID          string `gorm:"type:uuid;not null;index"                       json:"admin_id"`
	Title            string `gorm:"type:varchar(200);not null"                     json:"title"`
	Content          string `gorm:"type:text;not null"                             json:"content"`
	IsRead           bool   `gorm:"not null;default:false"                         json:"is_read"`
	CreatedByStudent bool   `gorm:"not null;default:false"                         json:"created_by_student"`
	Timestamps

	Student *Profile `gorm:"foreignKey:UserID;references:ID"  json:"student,omitempty"`
	Admin   *Profile `gorm:"foreignKey:AdminID;references:ID" json:"admin,omitempty"`
}

// TableName overrides the table name.
func (Note) TableName() string { return "notes" }

// AuthorID is the only profile allowed to edit the note.
func (n *Note) AuthorID() string {
	if n.CreatedByStudent {
		return n.UserID
	}
	return n.AdminID
}

// AuthorRole is the role of the note's author.
func (n *Note) AuthorRole() Role {
	if n.CreatedByStudent {
		return RoleStudent
	}
	return RoleAdmin
}

// RecipientID is the party that did not write the note.
func (n *Note) RecipientID() string {
	if n.CreatedByStudent {
		return n.AdminID
	}
	return n.UserID
}
