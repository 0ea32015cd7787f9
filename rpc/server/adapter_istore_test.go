package server

import (
	"github.com/ValentinKolb/skv/lib/store/lstore"
	"github.com/ValentinKolb/skv/rpc/protocol"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestIStoreAdapter(t *testing.T) {
	s := lstore.NewLocalStore()
	adapter := NewIStoreServerAdapter()

	steps := []struct {
		name  string
		frame protocol.Frame
		want  string
	}{
		{"get absent", protocol.NewGetFrame("k"), protocol.RespNone},
		{"put", protocol.NewPutFrame("k", "v1"), protocol.RespOK},
		{"get", protocol.NewGetFrame("k"), "v1"},
		{"overwrite", protocol.NewPutFrame("k", "v2"), protocol.RespOK},
		{"get overwritten", protocol.NewGetFrame("k"), "v2"},
		{"error", protocol.NewErrorFrame(), protocol.RespErr},
		{"get after error", protocol.NewGetFrame("k"), "v2"},
	}

	for _, step := range steps {
		t.Run(step.name, func(t *testing.T) {
			if got := adapter.Handle(step.frame, s); got != step.want {
				t.Errorf("Handle(%v) = %q, want %q", step.frame, got, step.want)
			}
		})
	}

	if s.Len() != 1 {
		t.Errorf("Expected 1 stored key, got %d", s.Len())
	}
}

func TestIStoreAdapterNilStore(t *testing.T) {
	if got := NewIStoreServerAdapter().Handle(protocol.NewGetFrame("k"), nil); got != protocol.RespErr {
		t.Errorf("Expected ERR for nil store, got %q", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	NewIStoreServerAdapter().Handle(protocol.NewErrorFrame(), lstore.NewLocalStore())

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{`skv_requests_total{op="err"}`, "skv_connections_active"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in metrics output:\n%s", want, body)
		}
	}
}
