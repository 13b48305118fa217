package adminusers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consultdesk/internal/api"
)

func TestCreate(t *testing.T) {
	t.Run("Should reject a short username before any network call", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		_, err := svc.Create("ab", "password123")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "3자 이상")
		assert.False(t, called)
	})

	t.Run("Should reject a short password before any network call", func(t *testing.T) {
		called := false
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		_, err := svc.Create("admin", "12345")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "6자 이상")
		assert.False(t, called)
	})

	t.Run("Should create the account and return it", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/admin/users", r.URL.Path)
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "newadmin", body["username"])
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "u-1", "username": "newadmin", "created_at": "2026-08-30T00:00:00Z"})
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		user, err := svc.Create("newadmin", "password123")

		require.NoError(t, err)
		assert.Equal(t, "u-1", user.ID)
		assert.Equal(t, "newadmin", user.Username)
	})

	t.Run("Should surface the duplicate-username detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"detail": "이미 존재하는 아이디입니다"})
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		_, err := svc.Create("admin", "password123")

		require.Error(t, err)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
		assert.Equal(t, "이미 존재하는 아이디입니다", apiErr.Detail)
	})
}

func TestList(t *testing.T) {
	t.Run("Should parse the account list", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/admin/users", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]string{
					{"id": "u-1", "username": "admin"},
					{"id": "u-2", "username": "manager"},
				},
			})
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		users, err := svc.List()

		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "manager", users[1].Username)
	})
}

func TestDelete(t *testing.T) {
	t.Run("Should delete by ID", func(t *testing.T) {
		var gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			assert.Equal(t, http.MethodDelete, r.Method)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{"deleted": true, "id": "u-2"})
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		err := svc.Delete("u-2")

		require.NoError(t, err)
		assert.Equal(t, "/api/admin/users/u-2", gotPath)
	})

	t.Run("Should surface the not-found detail", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"detail": "관리자를 찾을 수 없습니다"})
		}))
		defer server.Close()

		svc := NewService(api.NewClient(server.URL))
		err := svc.Delete("ghost")

		require.Error(t, err)
		var apiErr *api.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	})
}
