package domain

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID        UserID    `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	Username  string    `gorm:"type:citext;uniqueIndex:ux_users_username" db:"username" json:"username"`
	Email     string    `gorm:"type:citext;uniqueIndex:ux_users_email" db:"email" json:"email"`
	Role      string    `gorm:"type:text;not null;default:'user'" db:"role" json:"role"`
	AvatarURL string    `gorm:"type:text" db:"avatar_url" json:"avatarUrl,omitempty"`
	GithubID  *string   `gorm:"type:text;uniqueIndex:ux_users_github_id" db:"github_id" json:"githubId,omitempty"`
	CreatedAt time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (User) TableName() string { return "users" }
