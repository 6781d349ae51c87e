package crawlers

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RecoveryAshes/llm-online-assistant/internal/models"
)

// stubIdentities 按顺序轮换的身份池
type stubIdentities struct {
	mu        sync.Mutex
	agents    []string
	rotations int
}

func newStubIdentities(agents ...string) *stubIdentities {
	return &stubIdentities{agents: agents}
}

func (s *stubIdentities) Identity() http.Header {
	h := http.Header{}
	h.Set("User-Agent", s.agents[0])
	return h
}

func (s *stubIdentities) Rotate(current http.Header) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rotations++
	ua := current.Get("User-Agent")
	for i, a := range s.agents {
		if a == ua {
			h := http.Header{}
			h.Set("User-Agent", s.agents[(i+1)%len(s.agents)])
			return h
		}
	}
	return s.Identity()
}

func (s *stubIdentities) rotationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rotations
}

// scriptedRequester 按预设脚本依次返回结果,记录每次请求的User-Agent
type scriptedRequester struct {
	mu       sync.Mutex
	script   []scriptStep
	calls    int
	agents   []string
	onCall   func(call int)
	fallback scriptStep
}

type scriptStep struct {
	status int
	body   string
	err    error
}

var errConnReset = errors.New("connection reset by peer")

func (r *scriptedRequester) Get(_ string, header http.Header) (*Response, error) {
	r.mu.Lock()
	step := r.fallback
	if r.calls < len(r.script) {
		step = r.script[r.calls]
	}
	r.calls++
	call := r.calls
	r.agents = append(r.agents, header.Get("User-Agent"))
	onCall := r.onCall
	r.mu.Unlock()

	if onCall != nil {
		onCall(call)
	}
	if step.err != nil {
		return nil, step.err
	}
	return &Response{StatusCode: step.status, Body: []byte(step.body)}, nil
}

func (r *scriptedRequester) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// delayedFetcher 按URL注入不同延迟的抓取器替身
type delayedFetcher struct {
	delays   map[string]time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
	onFetch  func(url string)
}

func (f *delayedFetcher) Fetch(token *models.CancelToken, rawURL string) models.FetchOutcome {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if f.onFetch != nil {
		f.onFetch(rawURL)
	}
	time.Sleep(f.delays[rawURL])
	if token.Cancelled() {
		return models.EmptyOutcome()
	}
	outcome := models.EmptyOutcome()
	outcome.Text = "body of " + rawURL
	return outcome
}
