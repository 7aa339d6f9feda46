package model

import (
	"strings"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	TelegramID   int64     `json:"telegram_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	LanguageCode string    `json:"language_code"`
	IsTeacher    bool      `json:"is_teacher"`
	CreatedAt    time.Time `json:"created_at"`
}

// DisplayName имя для уведомлений и поиска
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Actor уже аутентифицированный пользователь, от имени которого вызывается операция
type Actor struct {
	UserID int64
	Role   Role
}

func Teacher(id int64) Actor { return Actor{UserID: id, Role: RoleTeacher} }
func Student(id int64) Actor { return Actor{UserID: id, Role: RoleStudent} }

func (a Actor) IsTeacher() bool { return a.Role == RoleTeacher }
func (a Actor) IsStudent() bool { return a.Role == RoleStudent }
