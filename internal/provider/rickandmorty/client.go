package rickandmorty

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/repository"
	apperrors "github.com/yourusername/rickandmorty-quiz-bot/internal/pkg/errors"
)

const (
	// DefaultBaseURL - публичное API сериала
	DefaultBaseURL = "https://rickandmortyapi.com/api"
	// DefaultCatalogSize - размер каталога на момент написания бота,
	// используется, если API не ответило на запрос размера
	DefaultCatalogSize = 826

	characterCacheTTL = 24 * time.Hour
	catalogCacheTTL   = time.Hour
	maxImageSize      = 10 << 20
)

// Config содержит настройки клиента
type Config struct {
	BaseURL     string
	CatalogSize int           // 0 - узнать у API
	Timeout     time.Duration // 0 - без таймаута
}

type characterDTO struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Species string `json:"species"`
	Type    string `json:"type"`
	Gender  string `json:"gender"`
	Image   string `json:"image"`
}

func (d characterDTO) toEntity() *entity.Character {
	return &entity.Character{
		ID:       d.ID,
		Name:     d.Name,
		Status:   entity.ParseStatus(d.Status),
		Species:  d.Species,
		Type:     d.Type,
		Gender:   d.Gender,
		ImageURL: d.Image,
	}
}

type catalogDTO struct {
	Info struct {
		Count int `json:"count"`
	} `json:"info"`
}

// Client реализует repository.CharacterProvider поверх Rick and Morty API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	cache       repository.CacheRepository
	catalogSize int

	mu         sync.Mutex
	cachedSize int

	// intN выбирает индекс в [0, n), подменяется в тестах
	intN func(n int) int
}

// NewClient создает клиент API. cache может быть nil.
func NewClient(cfg Config, cache repository.CacheRepository) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		cache:       cache,
		catalogSize: cfg.CatalogSize,
		intN:        rand.IntN,
	}
}

// CatalogSize возвращает количество персонажей в каталоге.
// Если размер не задан в конфиге, он запрашивается у API и кешируется.
func (c *Client) CatalogSize(ctx context.Context) (int, error) {
	if c.catalogSize > 0 {
		return c.catalogSize, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedSize > 0 {
		return c.cachedSize, nil
	}

	if c.cache != nil {
		var size int
		if err := c.cache.GetJSON(catalogCacheKey, &size); err == nil && size > 0 {
			c.cachedSize = size
			return size, nil
		} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[CharacterClient] WARNING: Ошибка чтения размера каталога из кеша: %v", err)
		}
	}

	var payload catalogDTO
	if err := c.getJSON(ctx, c.baseURL+"/character", &payload); err != nil {
		log.Printf("[CharacterClient] WARNING: Не удалось получить размер каталога, используется %d: %v", DefaultCatalogSize, err)
		return DefaultCatalogSize, nil
	}
	if payload.Info.Count <= 0 {
		return 0, fmt.Errorf("%w: empty catalog", ErrProvider)
	}

	c.cachedSize = payload.Info.Count
	if c.cache != nil {
		if err := c.cache.SetJSON(catalogCacheKey, c.cachedSize, catalogCacheTTL); err != nil {
			log.Printf("[CharacterClient] WARNING: Не удалось сохранить размер каталога в кеш: %v", err)
		}
	}
	log.Printf("[CharacterClient] Размер каталога: %d", c.cachedSize)
	return c.cachedSize, nil
}

// GetCharacter возвращает персонажа по индексу каталога (API нумерует с 1)
func (c *Client) GetCharacter(ctx context.Context, index int) (*entity.Character, error) {
	size, err := c.CatalogSize(ctx)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= size {
		return nil, fmt.Errorf("%w: index %d out of range [0, %d)", ErrProvider, index, size)
	}

	id := index + 1
	key := characterCacheKey(id)
	if c.cache != nil {
		var cached entity.Character
		if err := c.cache.GetJSON(key, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[CharacterClient] WARNING: Ошибка чтения персонажа #%d из кеша: %v", id, err)
		}
	}

	var dto characterDTO
	if err := c.getJSON(ctx, fmt.Sprintf("%s/character/%d", c.baseURL, id), &dto); err != nil {
		return nil, err
	}
	character := dto.toEntity()

	if c.cache != nil {
		if err := c.cache.SetJSON(key, character, characterCacheTTL); err != nil {
			log.Printf("[CharacterClient] WARNING: Не удалось сохранить персонажа #%d в кеш: %v", id, err)
		}
	}
	return character, nil
}

// RandomCharacter выбирает случайного персонажа по всему каталогу
func (c *Client) RandomCharacter(ctx context.Context) (*entity.Character, error) {
	size, err := c.CatalogSize(ctx)
	if err != nil {
		return nil, err
	}
	return c.GetCharacter(ctx, c.intN(size))
}

// FetchImage скачивает картинку персонажа целиком
func (c *Client) FetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create image request: %v", ErrNetwork, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: image status=%d url=%s", ErrNetwork, resp.StatusCode, url)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image body: %v", ErrNetwork, err)
	}
	return data, nil
}

func (c *Client) getJSON(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to create request: %v", ErrProvider, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: status=%d body=%s", ErrProvider, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrProvider, err)
	}
	return nil
}

const catalogCacheKey = "rickandmorty:catalog:size"

func characterCacheKey(id int) string {
	return fmt.Sprintf("rickandmorty:character:%d", id)
}
