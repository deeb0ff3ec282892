package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/go-zhtok/internal/config"
	"github.com/example/go-zhtok/internal/pipeline"
)

type echoTokenizer struct{}

func (echoTokenizer) Tokenize(input string, lang pipeline.Language, method pipeline.Method) (pipeline.Result, error) {
	return pipeline.Result{
		Language:   lang,
		Method:     method,
		Tokenizer:  lang.Title() + " " + method.Title(),
		Normalized: input,
		Pieces:     []string{input},
		IDs:        []int{1},
	}, nil
}

func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	addr := ln.Addr().String()
	ln.Close() // free it for the server

	return addr
}

func TestStart_LifecycleHealthTokenizeAndShutdown(t *testing.T) {
	addr := freeAddr(t)

	cfg := config.DefaultConfig()
	cfg.Server.ListenAddr = addr
	cfg.Tokenize.Language = "cantonese"

	s := New(cfg, echoTokenizer{}).WithShutdownTimeout(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)

	go func() {
		errCh <- s.Start(ctx)
	}()

	// Wait for the server to be ready.
	var err error
	for i := 0; i < 50; i++ {
		if err = ProbeHTTP(addr); err == nil {
			break
		}

		time.Sleep(20 * time.Millisecond)
	}

	if err != nil {
		t.Fatalf("server never became ready: %v", err)
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://%s/tokenize", addr), "application/json", strings.NewReader(`{"text":"你好"}`))
	if err != nil {
		t.Fatalf("POST /tokenize: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/tokenize status = %d; want 200", resp.StatusCode)
	}

	var body tokenizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode /tokenize: %v", err)
	}

	if body.Tokenizer != "Cantonese Word Piece" {
		t.Errorf("tokenizer = %q; want configured default Cantonese Word Piece", body.Tokenizer)
	}

	mresp, err := client.Get(fmt.Sprintf("http://%s/metrics", addr))
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	mresp.Body.Close()

	if mresp.StatusCode != http.StatusOK {
		t.Errorf("/metrics status = %d; want 200", mresp.StatusCode)
	}

	// Graceful shutdown.
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() returned error on shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return within 5s of context cancel")
	}
}

func TestStart_InvalidDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tokenize.Method = "bpe"

	err := New(cfg, echoTokenizer{}).Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "tokenize.method") {
		t.Fatalf("Start() error = %v; want tokenize.method error", err)
	}
}

func TestStart_NoTokenizer(t *testing.T) {
	if err := New(config.DefaultConfig(), nil).Start(context.Background()); err == nil {
		t.Fatal("Start() = nil; want error without tokenizer")
	}
}

func TestNew_ShutdownTimeoutFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.ShutdownTimeout = 7

	s := New(cfg, nil)
	if s.shutdownTimeout != 7*time.Second {
		t.Errorf("shutdownTimeout = %v; want 7s", s.shutdownTimeout)
	}

	s.WithShutdownTimeout(time.Second)
	if s.shutdownTimeout != time.Second {
		t.Errorf("shutdownTimeout = %v; want 1s", s.shutdownTimeout)
	}
}

func TestHandlerOptions_FallbackTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.RequestTimeout = 0

	fns, err := New(cfg, echoTokenizer{}).handlerOptions()
	if err != nil {
		t.Fatalf("handlerOptions: %v", err)
	}

	opts := defaultOptions()
	for _, fn := range fns {
		fn(&opts)
	}

	if opts.requestTimeout != 10*time.Second {
		t.Errorf("requestTimeout = %v; want 10s", opts.requestTimeout)
	}
	if opts.metrics == nil {
		t.Error("want metrics collector configured")
	}
}

func TestProbeHTTP(t *testing.T) {
	ok := httptest.NewServer(NewHandler(echoTokenizer{}))
	defer ok.Close()

	if err := ProbeHTTP(strings.TrimPrefix(ok.URL, "http://")); err != nil {
		t.Errorf("ProbeHTTP() = %v; want nil", err)
	}

	bad := httptest.NewServer(http.NotFoundHandler())
	defer bad.Close()

	if err := ProbeHTTP(strings.TrimPrefix(bad.URL, "http://")); err == nil {
		t.Error("ProbeHTTP() = nil; want error for non-200")
	}

	if err := ProbeHTTP(freeAddr(t)); err == nil {
		t.Error("ProbeHTTP() = nil; want connection error")
	}
}
