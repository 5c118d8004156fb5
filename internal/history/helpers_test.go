package history_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticSource struct{}

func (staticSource) FrameRange() (int, int, int) { return 1, 1, 1 }

func (staticSource) ProjectFileName() string { return "journal.blend" }

func newOKServer(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server.URL
}
