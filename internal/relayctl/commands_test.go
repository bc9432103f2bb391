package relayctl

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withStatusAddr(t *testing.T, addr string) {
	t.Helper()
	prev := viper.Get("status_addr")
	viper.Set("status_addr", addr)
	t.Cleanup(func() { viper.Set("status_addr", prev) })
}

func TestFinalizeCmd_RejectsUnsafeStreamKey(t *testing.T) {
	err := finalizeCmd.RunE(finalizeCmd, []string{"../escape"})
	assert.Error(t, err)
}

func TestFinalizeCmd_SucceedsAgainstRunningServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()
	withStatusAddr(t, srv.URL)

	require.NoError(t, finalizeCmd.RunE(finalizeCmd, []string{"alpha"}))
}

func TestLogsCmd_RejectsUnsafeStreamKey(t *testing.T) {
	err := logsCmd.RunE(logsCmd, []string{"a/b"})
	assert.Error(t, err)
}

func TestLogsCmd_SucceedsAgainstRunningServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"lines":["hello"]}`))
	}))
	defer srv.Close()
	withStatusAddr(t, srv.URL)

	require.NoError(t, logsCmd.RunE(logsCmd, []string{"alpha"}))
}

func TestListCmd_JSONModeSucceedsAgainstRunningServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"host":{"cpu_percent":1.5},"sessions":[]}`))
	}))
	defer srv.Close()
	withStatusAddr(t, srv.URL)

	listJSON = true
	defer func() { listJSON = false }()
	require.NoError(t, listCmd.RunE(listCmd, nil))
}
