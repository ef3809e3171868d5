package logsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/qazmun/mun/core"
	"github.com/qazmun/mun/core/user"
)

func TestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{zap: zap.New(core)}

	actor := user.Profile{UserID: "u1", Role: user.RoleFounder}
	l.Debug("hidden")
	l.Info("assignment run completed", actor, map[string]interface{}{"placed": 3})
	l.Error("boom", errors.New("db down"))

	entries := logs.AllUntimed()
	if assert.Len(t, entries, 2) {
		info := entries[0].ContextMap()
		assert.Equal(t, "assignment run completed", entries[0].Message)
		assert.Equal(t, int64(3), info["placed"])
		assert.Equal(t, "u1", info["actor_id"])
		assert.Equal(t, "founder", info["actor_role"])

		errCtx := entries[1].ContextMap()
		assert.Equal(t, zapcore.ErrorLevel, entries[1].Level)
		assert.Equal(t, "db down", errCtx["error"])
		assert.Contains(t, errCtx["trace"], "TestLogger")
	}
}

func TestRollbarReporter_prepare(t *testing.T) {
	r := &rollbarReporter{}
	err := errors.New("x")
	extras, got := r.prepare("msg", []interface{}{
		user.Profile{UserID: "u1"}, err, errors.New("second"), map[string]interface{}{"k": "v"}, &user.Profile{},
	})
	assert.Equal(t, err, got)
	assert.Equal(t, map[string]interface{}{"message": "msg", "k": "v"}, extras)

	extras, got = r.prepare("plain", nil)
	assert.NoError(t, got)
	assert.Equal(t, map[string]interface{}{"message": "plain"}, extras)
}

func TestRollbarReporter_report(t *testing.T) {
	var (
		mu    sync.Mutex
		items []map[string]interface{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Data map[string]interface{} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			mu.Lock()
			items = append(items, body.Data)
			mu.Unlock()
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	conf := core.NewTestConfig()
	conf.RollbarToken = "test-token"
	r := newRollbarReporter(conf)
	r.client.SetEndpoint(srv.URL)

	gs := &user.Profile{UserID: "gs-1", FullName: "Aigerim", Email: "gs@test.kz"}
	admin := &user.Profile{UserID: "admin-1", FullName: "Admin", Email: "admin@test.kz"}

	r.report(zapcore.InfoLevel, "skipped", gs, nil)
	r.report(zapcore.WarnLevel, "redis unavailable", gs, []interface{}{map[string]interface{}{"addr": "localhost"}})
	r.report(zapcore.ErrorLevel, "sending email", admin, []interface{}{errors.New("sendgrid down")})
	r.report(zapcore.FatalLevel, "cannot start", nil, []interface{}{errors.New("port taken")})
	r.client.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, items, 3)

	byLevel := make(map[string]map[string]interface{}, len(items))
	for _, item := range items {
		byLevel[item["level"].(string)] = item
	}
	tests := []struct {
		level    string
		personID string
	}{
		{level: "warning", personID: "gs-1"},
		{level: "error", personID: "admin-1"},
		{level: "critical"},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			item, ok := byLevel[tt.level]
			require.True(t, ok, "no %s item", tt.level)
			if tt.personID == "" {
				assert.Nil(t, item["person"])
				return
			}
			person, ok := item["person"].(map[string]interface{})
			require.True(t, ok)
			assert.Equal(t, tt.personID, person["id"])
		})
	}
}
