package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_RecordTokenize(t *testing.T) {
	c := New("zhtok")

	c.RecordTokenize("mandarin", "word-piece", OutcomeOK, 2*time.Millisecond, 5)
	c.RecordTokenize("mandarin", "word-piece", OutcomeOK, time.Millisecond, 3)
	c.RecordTokenize("mandarin", "word-piece", OutcomeRejected, 0, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.tokenizeTotal.WithLabelValues("mandarin", "word-piece", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.tokenizeTotal.WithLabelValues("mandarin", "word-piece", OutcomeRejected)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.tokenizePieces))
}

func TestCollector_RecordHTTPRequest(t *testing.T) {
	c := New("zhtok")

	c.RecordHTTPRequest("POST", "/tokenize", "200", 10*time.Millisecond)
	c.RecordHTTPRequest("POST", "/tokenize", "422", time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(c.httpRequestsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("POST", "/tokenize", "422")))
}

func TestCollector_RecordHTTPRequest_UnknownLabelsFoldToOther(t *testing.T) {
	c := New("zhtok")

	assert.NotPanics(t, func() {
		c.RecordHTTPRequest("BREW", "/\xff", "404", time.Millisecond)
		c.RecordHTTPRequest("GET", "/\xfe", "404", time.Millisecond)
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues(LabelOther, LabelOther, "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", LabelOther, "404")))
}

func TestCollector_TrackInflight(t *testing.T) {
	c := New("zhtok")

	done1 := c.TrackInflight()
	done2 := c.TrackInflight()
	assert.Equal(t, 2.0, testutil.ToFloat64(c.inflight))

	done1()
	done2()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inflight))
}

func TestCollector_IndependentRegistries(t *testing.T) {
	// Two collectors with the same namespace must not panic on registration.
	a := New("zhtok")
	b := New("zhtok")

	a.RecordTokenize("cantonese", "sentence-piece", OutcomeOK, time.Millisecond, 1)
	assert.Equal(t, 0, testutil.CollectAndCount(b.tokenizeTotal))
}

func TestCollector_Handler(t *testing.T) {
	c := New("zhtok")
	c.RecordTokenize("cantonese", "character-piece", OutcomeOK, time.Millisecond, 4)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `zhtok_tokenize_requests_total{language="cantonese",method="character-piece",outcome="ok"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
