package rickandmorty

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/domain/entity"
	"github.com/yourusername/rickandmorty-quiz-bot/internal/repository/memory"
)

// newTestAPI поднимает фейковое API с каталогом из count персонажей
func newTestAPI(t *testing.T, count int, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/character", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"info":{"count":%d},"results":[]}`, count)
	})
	mux.HandleFunc("/api/character/", func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		var id int
		if _, err := fmt.Sscanf(r.URL.Path, "/api/character/%d", &id); err != nil || id < 1 || id > count {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"Character not found"}`)
			return
		}
		status := "Alive"
		if id%2 == 0 {
			status = "unknown"
		}
		fmt.Fprintf(w, `{"id":%d,"name":"Rick %d","status":%q,"species":"Human","type":"","gender":"Male","image":"http://%s/img/%d.jpeg"}`,
			id, id, status, r.Host, id)
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/img/missing.jpeg" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpeg-bytes"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_CatalogSize_FromAPI(t *testing.T) {
	srv := newTestAPI(t, 42, nil)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, nil)

	size, err := client.CatalogSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, size)
}

func TestClient_CatalogSize_ConfigOverride(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", CatalogSize: 826}, nil)

	size, err := client.CatalogSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 826, size)
}

func TestClient_CatalogSize_FallbackWhenUnreachable(t *testing.T) {
	srv := newTestAPI(t, 1, nil)
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url + "/api"}, nil)
	size, err := client.CatalogSize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultCatalogSize, size)
}

func TestClient_GetCharacter(t *testing.T) {
	srv := newTestAPI(t, 10, nil)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, nil)

	// Индекс 0 соответствует персонажу #1
	character, err := client.GetCharacter(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, character.ID)
	assert.Equal(t, "Rick 1", character.Name)
	assert.Equal(t, entity.StatusAlive, character.Status)
	assert.Equal(t, "Human", character.Species)
	assert.Equal(t, "Male", character.Gender)

	// Статус "unknown" нормализуется к кнопке "Unknown"
	character, err = client.GetCharacter(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusUnknown, character.Status)
}

func TestClient_GetCharacter_OutOfRange(t *testing.T) {
	srv := newTestAPI(t, 10, nil)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, nil)

	for _, index := range []int{-1, 10, 100} {
		_, err := client.GetCharacter(context.Background(), index)
		assert.ErrorIs(t, err, ErrProvider, "index %d", index)
	}
}

func TestClient_GetCharacter_NotFoundIsProviderError(t *testing.T) {
	srv := newTestAPI(t, 10, nil)
	// Каталог в конфиге больше, чем на сервере
	client := NewClient(Config{BaseURL: srv.URL + "/api", CatalogSize: 20}, nil)

	_, err := client.GetCharacter(context.Background(), 15)
	assert.ErrorIs(t, err, ErrProvider)
}

func TestClient_GetCharacter_UsesCache(t *testing.T) {
	var hits int32
	srv := newTestAPI(t, 10, &hits)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, memory.NewCacheRepo())

	first, err := client.GetCharacter(context.Background(), 3)
	require.NoError(t, err)
	second, err := client.GetCharacter(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_RandomCharacter_UniformIndex(t *testing.T) {
	srv := newTestAPI(t, 10, nil)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, nil)

	var gotN int
	client.intN = func(n int) int {
		gotN = n
		return n - 1
	}

	character, err := client.RandomCharacter(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, gotN)
	assert.Equal(t, 10, character.ID)
}

func TestClient_FetchImage(t *testing.T) {
	srv := newTestAPI(t, 1, nil)
	client := NewClient(Config{BaseURL: srv.URL + "/api"}, nil)

	data, err := client.FetchImage(context.Background(), srv.URL+"/img/1.jpeg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), data)

	_, err = client.FetchImage(context.Background(), srv.URL+"/img/missing.jpeg")
	assert.ErrorIs(t, err, ErrNetwork)

	_, err = client.FetchImage(context.Background(), "http://127.0.0.1:1/nothing.jpeg")
	assert.ErrorIs(t, err, ErrNetwork)
}
