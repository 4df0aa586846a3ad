package models

import "time"

type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleProctor    UserRole = "proctor"
	RoleAdmin      UserRole = "admin"
)

// User mirrors the identity provider's account record. Rows are synced from
// Casdoor on first sight and refreshed lazily; the ID is the Casdoor user ID.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;size:255"`
	Name      string    `json:"name" gorm:"size:255"`
	Email     string    `json:"email" gorm:"index;size:255"`
	Avatar    string    `json:"avatar" gorm:"size:512"`
	Role      UserRole  `json:"role" gorm:"default:student;size:20"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsInstructor() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

func (u *User) CanGrade() bool {
	return u.Role == RoleInstructor || u.Role == RoleProctor || u.Role == RoleAdmin
}
