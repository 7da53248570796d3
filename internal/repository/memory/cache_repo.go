package memory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	apperrors "github.com/yourusername/rickandmorty-quiz-bot/internal/pkg/errors"
)

type cacheItem struct {
	value     []byte
	expiresAt time.Time // нулевое значение - без срока
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// CacheRepo - кеш в памяти процесса, используется когда Redis не настроен
type CacheRepo struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	now   func() time.Time
}

// NewCacheRepo создает пустой кеш
func NewCacheRepo() *CacheRepo {
	return &CacheRepo{
		items: make(map[string]cacheItem),
		now:   time.Now,
	}
}

func (r *CacheRepo) put(key string, value []byte, expiration time.Duration) {
	item := cacheItem{value: value}
	if expiration > 0 {
		item.expiresAt = r.now().Add(expiration)
	}
	r.mu.Lock()
	r.items[key] = item
	r.mu.Unlock()
}

func (r *CacheRepo) load(key string) ([]byte, bool) {
	r.mu.RLock()
	item, ok := r.items[key]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if item.expired(r.now()) {
		r.mu.Lock()
		delete(r.items, key)
		r.mu.Unlock()
		return nil, false
	}
	return item.value, true
}

// SetJSON сохраняет структуру JSON в кеше
func (r *CacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	r.put(key, data, expiration)
	return nil
}

// GetJSON получает структуру JSON из кеша
func (r *CacheRepo) GetJSON(key string, dest interface{}) error {
	v, ok := r.load(key)
	if !ok {
		return apperrors.ErrNotFound
	}
	return json.Unmarshal(v, dest)
}

// IncrWindow увеличивает счетчик окна и возвращает его значение и остаток TTL
func (r *CacheRepo) IncrWindow(key string, window time.Duration) (int64, time.Duration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	item, ok := r.items[key]
	if !ok || item.expired(now) {
		item = cacheItem{value: []byte("0"), expiresAt: now.Add(window)}
	}

	count, err := strconv.ParseInt(string(item.value), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("value of %s is not a counter: %w", key, err)
	}
	count++
	item.value = []byte(strconv.FormatInt(count, 10))
	// Счетчик без срока жизни никогда бы не сбросился
	if item.expiresAt.IsZero() {
		item.expiresAt = now.Add(window)
	}
	r.items[key] = item

	return count, item.expiresAt.Sub(now), nil
}
