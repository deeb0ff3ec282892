package server_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/go-zhtok/internal/pipeline"
	"github.com/example/go-zhtok/internal/server"
)

// ---------------------------------------------------------------------------
// request validation and limits
// ---------------------------------------------------------------------------

func TestTokenize_OversizedTextRejectedAs413(t *testing.T) {
	tok := &stubTokenizer{res: okResult()}
	h := server.NewHandler(tok, server.WithMaxChars(10))

	rec := postTokenize(h, `{"text":"`+strings.Repeat("好", 11)+`"}`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("want 413, got %d", rec.Code)
	}

	if decodeError(t, rec) == "" {
		t.Error("want non-empty error field")
	}

	if len(tok.calls) != 0 {
		t.Error("tokenizer must not be called for oversized input")
	}
}

func TestTokenize_TextAtExactLimitIsAccepted(t *testing.T) {
	// The bound counts characters, not bytes.
	h := server.NewHandler(&stubTokenizer{res: okResult()}, server.WithMaxChars(5))

	rec := postTokenize(h, `{"text":"你好世界啊"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200 for exactly-limit text, got %d", rec.Code)
	}
}

func TestTokenize_ZeroMaxCharsDisablesLimit(t *testing.T) {
	h := server.NewHandler(&stubTokenizer{res: okResult()}, server.WithMaxChars(0))

	rec := postTokenize(h, `{"text":"`+strings.Repeat("好", 5000)+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func TestTokenize_RequestTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	h := server.NewHandler(
		&blockingTokenizer{release: release},
		server.WithRequestTimeout(20*time.Millisecond),
	)

	rec := postTokenize(h, `{"text":"你好"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("want 504 on timeout, got %d", rec.Code)
	}

	if decodeError(t, rec) == "" {
		t.Error("want non-empty error field")
	}
}

// ---------------------------------------------------------------------------
// worker pool / concurrency throttling
// ---------------------------------------------------------------------------

func TestTokenize_ConcurrencyThrottling(t *testing.T) {
	const workers = 2
	const totalRequests = 5

	var (
		mu         sync.Mutex
		peak       int
		current    int32
		releaseAll = make(chan struct{})
	)
	tok := &countingTokenizer{
		onEnter: func() {
			n := int(atomic.AddInt32(&current, 1))

			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			<-releaseAll
		},
		onExit: func() { atomic.AddInt32(&current, -1) },
	}

	h := server.NewHandler(tok, server.WithWorkers(workers))

	var wg sync.WaitGroup

	codes := make([]int, totalRequests)
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			codes[idx] = postTokenize(h, `{"text":"你好"}`).Code
		}(i)
	}

	// Give goroutines time to enter the tokenizer.
	time.Sleep(50 * time.Millisecond)
	close(releaseAll)
	wg.Wait()

	mu.Lock()
	got := peak
	mu.Unlock()

	if got > workers {
		t.Errorf("peak concurrency %d exceeded worker limit %d", got, workers)
	}

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("request %d: want 200, got %d", i, code)
		}
	}
}

func TestTokenize_WaiterCancelledWhileThrottled(t *testing.T) {
	release := make(chan struct{})
	h := server.NewHandler(&blockingTokenizer{release: release}, server.WithWorkers(1))

	// First request occupies the single worker slot.
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_ = postTokenize(h, `{"text":"first"}`)
	}()

	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tokenize", bytes.NewBufferString(`{"text":"second"}`)).WithContext(ctx)
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 when waiter context cancelled, got %d", rec.Code)
	}

	close(release)
	<-firstDone
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// blockingTokenizer blocks until release is closed.
type blockingTokenizer struct {
	release chan struct{}
}

func (b *blockingTokenizer) Tokenize(string, pipeline.Language, pipeline.Method) (pipeline.Result, error) {
	<-b.release
	return okResult(), nil
}

// countingTokenizer calls onEnter/onExit around the tokenize call.
type countingTokenizer struct {
	onEnter func()
	onExit  func()
}

func (c *countingTokenizer) Tokenize(string, pipeline.Language, pipeline.Method) (pipeline.Result, error) {
	c.onEnter()
	defer c.onExit()

	return okResult(), nil
}
