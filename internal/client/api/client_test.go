package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ordersync/ordersync/pkg/api"
)

func TestClient_SubmitMutation_Success(t *testing.T) {
	var gotPath, gotAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		var req api.MutationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "client-1", req.ID)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.MutationResponse{
			ID:        req.ID,
			Timestamp: 42,
			Applied:   true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)

	resp, err := client.SubmitMutation(context.Background(), "token-abc", api.ActionCreate, api.MutationRequest{
		ID:        "client-1",
		Timestamp: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/sync/create", gotPath)
	assert.Equal(t, "Bearer token-abc", gotAuth)
	assert.Equal(t, int64(42), resp.Timestamp)
	assert.True(t, resp.Applied)
}

func TestClient_SubmitMutation_ErrorClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantKind ErrorKind
	}{
		{name: "401 is auth", status: http.StatusUnauthorized, wantKind: KindAuth},
		{name: "403 is auth", status: http.StatusForbidden, wantKind: KindAuth},
		{name: "409 is conflict", status: http.StatusConflict, wantKind: KindConflict},
		{name: "422 is validation", status: http.StatusUnprocessableEntity, wantKind: KindValidation},
		{name: "400 is validation", status: http.StatusBadRequest, wantKind: KindValidation},
		{name: "429 is transient", status: http.StatusTooManyRequests, wantKind: KindTransient},
		{name: "500 is transient", status: http.StatusInternalServerError, wantKind: KindTransient},
		{name: "503 is transient", status: http.StatusServiceUnavailable, wantKind: KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "err", Message: "boom"})
			}))
			defer server.Close()

			client := NewClient(server.URL)

			_, err := client.SubmitMutation(context.Background(), "token", api.ActionUpdate, api.MutationRequest{ID: "x"})
			require.Error(t, err)

			var apiErr *Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantKind, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, "boom", apiErr.Message)
		})
	}
}

func TestClient_SubmitMutation_NetworkErrorIsTransient(t *testing.T) {
	// Закрытый сервер: соединение откажет
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL)

	_, err := client.SubmitMutation(context.Background(), "token", api.ActionCreate, api.MutationRequest{ID: "x"})
	require.Error(t, err)
	assert.Equal(t, KindTransient, KindOf(err))
}

func TestClient_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	assert.NoError(t, client.Ping(context.Background()))
}

func TestKindOf_PlainErrorIsTransient(t *testing.T) {
	assert.Equal(t, KindTransient, KindOf(assert.AnError))
}
