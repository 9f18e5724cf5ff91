package model

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

type User struct {
	ID           int64      `json:"id"`
	UUID         string     `json:"uuid"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// AuthUser is the public subset returned next to a freshly minted token.
type AuthUser struct {
	ID    int64  `json:"id"`
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (u User) Public() AuthUser {
	return AuthUser{ID: u.ID, UUID: u.UUID, Name: u.Name, Email: u.Email, Role: u.Role}
}

type Profile struct {
	ID               int64     `json:"-"`
	UUID             string    `json:"uuid"`
	UserID           int64     `json:"user_id"`
	Phone            *string   `json:"phone"`
	Profile          *string   `json:"profile"`
	ProfilePhotoPath *string   `json:"profile_photo_path"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// UserPatch lists every field an update may touch. Anything else in a request
// body is ignored.
type UserPatch struct {
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

func (p UserPatch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Password == nil && p.Role == nil
}

type UserQuery struct {
	Search  string
	Role    string
	Page    int
	PerPage int
}

type UserList struct {
	Users []User   `json:"users"`
	Meta  PageMeta `json:"meta"`
}
