package service

import (
	"log"
	"sort"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/repository"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/handler/dto"
)

// Порядок сортировки лидерборда
const (
	SortRegistration = "registration" // порядок первой регистрации, как в /sair
	SortScore        = "score"        // по убыванию очков
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// LeaderboardService предоставляет снимок реестра игроков для HTTP API
type LeaderboardService struct {
	playerRepo repository.PlayerRepository
}

// NewLeaderboardService создает новый сервис лидерборда
func NewLeaderboardService(playerRepo repository.PlayerRepository) *LeaderboardService {
	return &LeaderboardService{
		playerRepo: playerRepo,
	}
}

// Snapshot возвращает всех игроков в запрошенном порядке
func (s *LeaderboardService) Snapshot(order string) ([]*entity.Player, error) {
	players, err := s.playerRepo.List()
	if err != nil {
		log.Printf("[LeaderboardService] Ошибка при получении игроков из реестра: %v", err)
		return nil, err
	}
	if order == SortScore {
		// Стабильная сортировка сохраняет порядок регистрации при равных очках
		sort.SliceStable(players, func(i, j int) bool {
			return players[i].Score > players[j].Score
		})
	}
	return players, nil
}

// GetLeaderboard возвращает пагинированный список игроков
func (s *LeaderboardService) GetLeaderboard(page, pageSize int, order string) (*dto.PaginatedLeaderboardResponse, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	} else if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if order != SortScore {
		order = SortRegistration
	}

	players, err := s.Snapshot(order)
	if err != nil {
		return nil, err
	}

	// Сравнение до умножения: (page-1)*pageSize переполняется на огромных page
	offset := len(players)
	if page-1 < (len(players)+pageSize-1)/pageSize {
		offset = (page - 1) * pageSize
	}
	end := offset + pageSize
	if end > len(players) {
		end = len(players)
	}

	items := make([]*dto.LeaderboardPlayerDTO, 0, end-offset)
	for i, p := range players[offset:end] {
		item := &dto.LeaderboardPlayerDTO{
			Rank:     offset + i + 1,
			PlayerID: p.ID,
			Name:     p.Name,
			Score:    p.Score,
		}
		if p.Character != nil {
			item.CharacterName = p.Character.Name
		}
		items = append(items, item)
	}

	return &dto.PaginatedLeaderboardResponse{
		Players: items,
		Total:   int64(len(players)),
		Page:    page,
		PerPage: pageSize,
		Sort:    order,
	}, nil
}
