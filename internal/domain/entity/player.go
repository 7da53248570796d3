package entity

import (
	"fmt"
	"time"
)

// Player - запись игрока в реестре. Живет до остановки процесса.
type Player struct {
	ID        int64      `json:"id"` // ID пользователя Telegram
	Name      string     `json:"name"`
	Score     int        `json:"score"`
	Character *Character `json:"character,omitempty"` // Последний показанный персонаж
	CreatedAt time.Time  `json:"created_at"`
}

// NewPlayer создает игрока с нулевым счетом и привязанным персонажем
func NewPlayer(id int64, name string, character *Character) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Character: character,
		CreatedAt: time.Now(),
	}
}

// Clone возвращает независимую копию записи
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Character != nil {
		ch := *p.Character
		cp.Character = &ch
	}
	return &cp
}

// ApplyAnswer меняет счет на points за верный ответ и на -points за неверный.
// Счет никогда не опускается ниже нуля.
func (p *Player) ApplyAnswer(correct bool, points int) {
	if correct {
		p.Score += points
		return
	}
	p.Score -= points
	if p.Score < 0 {
		p.Score = 0
	}
}

// ScoreLine форматирует строку таблицы очков: "<score> >>> <name>"
func (p *Player) ScoreLine() string {
	return fmt.Sprintf("%d >>> %s", p.Score, p.Name)
}
