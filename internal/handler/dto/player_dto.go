package dto

// LeaderboardPlayerDTO представляет одного игрока в лидерборде
type LeaderboardPlayerDTO struct {
	Rank          int    `json:"rank"`           // Место в выбранном порядке
	PlayerID      int64  `json:"player_id"`      // ID пользователя Telegram
	Name          string `json:"name"`           // Отображаемое имя
	Score         int    `json:"score"`          // Текущий счет
	CharacterName string `json:"character_name"` // Последний показанный персонаж
}

// PaginatedLeaderboardResponse представляет пагинированный ответ для лидерборда
type PaginatedLeaderboardResponse struct {
	Players []*LeaderboardPlayerDTO `json:"players"`
	Total   int64                   `json:"total"`
	Page    int                     `json:"page"`
	PerPage int                     `json:"per_page"`
	Sort    string                  `json:"sort"`
}
