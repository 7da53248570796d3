package entity

import "strings"

// ChatUser - личность отправителя, как ее передает чат-платформа
type ChatUser struct {
	ID        int64
	FirstName string
	LastName  string
	Username  string
}

// FullName собирает отображаемое имя так же, как Telegram-клиенты
func (u ChatUser) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return u.Username
	}
	return name
}
