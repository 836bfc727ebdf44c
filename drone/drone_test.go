package drone

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"hive/peer"
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

func TestDoTaskRejectsEmptyText(t *testing.T) {
	s := New("drone-1", nil, discardLogger())
	if err := s.DoTask(""); err != ErrEmptyText {
		t.Errorf("expected ErrEmptyText, got %v", err)
	}
}

func TestDoTaskInvokesHandler(t *testing.T) {
	var got string
	s := New("drone-1", func(text string) { got = text }, discardLogger())

	if err := s.DoTask("do-the-thing"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "do-the-thing" {
		t.Errorf("expected handler to receive the task text, got %q", got)
	}
}

func TestDoTaskDefaultHandlerDoesNotPanic(t *testing.T) {
	s := New("drone-1", nil, discardLogger())
	if err := s.DoTask("hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRegisterWithQueenSucceeds(t *testing.T) {
	var gotAddress string
	queen := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Address string `json:"address"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotAddress = body.Address
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	}))
	defer queen.Close()

	var becameReady bool
	client := peer.New(0, discardLogger())
	RegisterWithQueen(client, addrOf(t, queen), "drone-addr:9000", func() { becameReady = true }, discardLogger())

	if !becameReady {
		t.Error("expected onSuccess to be invoked once registration succeeded")
	}
	if gotAddress != "drone-addr:9000" {
		t.Errorf("expected queen to receive the drone's own address, got %q", gotAddress)
	}
}

func TestRegisterWithQueenRetriesOnTransportFailure(t *testing.T) {
	original := RegisterRetryInterval
	RegisterRetryInterval = time.Millisecond
	defer func() { RegisterRetryInterval = original }()

	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			// Simulate transport failure by closing the connection
			// before responding.
			hj, ok := w.(http.Hijacker)
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			conn, _, err := hj.Hijack()
			if err == nil {
				conn.Close()
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	}))
	defer srv.Close()

	client := peer.New(50*time.Millisecond, discardLogger())
	RegisterWithQueen(client, addrOf(t, srv), "drone-addr:9001", nil, discardLogger())

	if got := atomic.LoadInt32(&attempts); got < 3 {
		t.Errorf("expected at least 3 attempts before success, got %d", got)
	}
}
