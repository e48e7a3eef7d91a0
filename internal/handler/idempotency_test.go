package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryStore struct {
	entries map[string]string
	setErr  error
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	return m.entries[key], nil
}

func (m *memoryStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = value.(string)
	return nil
}

func TestRemember(t *testing.T) {
	tests := []struct {
		name    string
		body    interface{}
		wantErr bool
	}{
		{name: "encodable body is stored", body: gin.H{"id": 7}},
		{name: "unencodable body is rejected", body: gin.H{"ch": make(chan int)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{entries: map[string]string{}}
			h := NewTrackerHandler(nil, store, time.Hour, zap.NewNop())

			err := h.remember(context.Background(), "k", http.StatusCreated, tt.body)
			if tt.wantErr {
				require.Error(t, err)
				assert.Empty(t, store.entries)
				return
			}
			require.NoError(t, err)

			var cached cachedResponse
			require.NoError(t, json.Unmarshal([]byte(store.entries["k"]), &cached))
			assert.Equal(t, http.StatusCreated, cached.Status)
			assert.JSONEq(t, `{"id":7}`, string(cached.Body))
		})
	}
}

func TestRespond_StoreFailureStillAnswers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.WarnLevel)
	store := &memoryStore{entries: map[string]string{}, setErr: errors.New("redis down")}
	h := NewTrackerHandler(nil, store, time.Hour, zap.New(core))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/advances", nil)

	h.respond(c, "k", http.StatusCreated, gin.H{"id": 1})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("failed to store idempotent response").Len())
}
