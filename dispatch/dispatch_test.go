package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"

	"hive/peer"
	"hive/registry"
)

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

func addrOf(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	return strings.TrimPrefix(srv.URL, "http://")
}

func TestSubmitNoDronesFails(t *testing.T) {
	d := New(registry.New(), peer.New(0, discardLogger()), discardLogger())

	err := d.Submit(context.Background(), "hello")
	if err != ErrNoDrones {
		t.Errorf("expected ErrNoDrones on an empty registry, got %v", err)
	}
}

func TestSubmitForwardsToDrone(t *testing.T) {
	var received string
	drone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		received = body.Text
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	}))
	defer drone.Close()

	reg := registry.New()
	reg.Register(addrOf(t, drone))

	d := New(reg, peer.New(0, discardLogger()), discardLogger())
	if err := d.Submit(context.Background(), "build-the-thing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if received != "build-the-thing" {
		t.Errorf("expected drone to receive the forwarded text, got %q", received)
	}
}

func TestSubmitSwallowsForwardFailure(t *testing.T) {
	var calls int32
	drone := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer drone.Close()

	reg := registry.New()
	reg.Register(addrOf(t, drone))

	d := New(reg, peer.New(0, discardLogger()), discardLogger())
	if err := d.Submit(context.Background(), "hello"); err != nil {
		t.Errorf("a forward failure must not be surfaced to the submitter, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Error("expected exactly one forward attempt")
	}
}
