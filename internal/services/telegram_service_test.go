package services

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramService_AlertRewardFailure(t *testing.T) {
	var got telegramMessage
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := NewTelegramService("token123", "-100500").WithAPIBase(server.URL + "/")

	err := svc.AlertRewardFailure(17, "#ABC", errors.New("user <gone>"))

	require.NoError(t, err)
	assert.Equal(t, "/bottoken123/sendMessage", path)
	assert.Equal(t, "-100500", got.ChatID)
	assert.Equal(t, "HTML", got.ParseMode)
	assert.Contains(t, got.Text, "#ABC (#17)")
	assert.Contains(t, got.Text, "user &lt;gone&gt;")
}

func TestTelegramService_NotifyReconciliation(t *testing.T) {
	var got telegramMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
	}))
	defer server.Close()

	svc := NewTelegramService("t", "42").WithAPIBase(server.URL)

	require.NoError(t, svc.NotifyReconciliation(ReconciliationSummary{UsersFixed: 1, OrdersProcessed: 2, OrdersFailed: 1, XPIssued: 60}))
	assert.Contains(t, got.Text, "<b>Orders rewarded:</b> 2")
	assert.Contains(t, got.Text, "<b>XP issued:</b> 60")
}

func TestTelegramService_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := NewTelegramService("t", "42").WithAPIBase(server.URL).SendToAdmin("hi")

	assert.Error(t, err)
}

func TestTelegramService_UnconfiguredIsNoop(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	assert.NoError(t, NewTelegramService("", "42").WithAPIBase(server.URL).SendToAdmin("hi"))
	assert.NoError(t, NewTelegramService("t", "").WithAPIBase(server.URL).SendToAdmin("hi"))
	assert.False(t, called)
}
