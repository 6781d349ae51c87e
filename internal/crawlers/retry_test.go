package crawlers

import (
	"net/http"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		resp *Response
		err  error
		want attemptResult
	}{
		{"200成功", &Response{StatusCode: 200}, nil, attemptSucceeded},
		{"301视为成功", &Response{StatusCode: 301}, nil, attemptSucceeded},
		{"403被拒绝", &Response{StatusCode: 403}, nil, attemptRejected},
		{"404失败", &Response{StatusCode: 404}, nil, attemptFailed},
		{"429失败", &Response{StatusCode: 429}, nil, attemptFailed},
		{"503失败", &Response{StatusCode: 503}, nil, attemptFailed},
		{"传输错误", nil, errConnReset, attemptFailed},
		{"没有响应", nil, nil, attemptFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.resp, tt.err); got != tt.want {
				t.Errorf("classify() = %s, 期望 %s", got, tt.want)
			}
		})
	}
}

func TestRetryState(t *testing.T) {
	t.Run("尝试次数上限", func(t *testing.T) {
		state := newRetryState(3, newStubIdentities("ua-1"))
		attempts := 0
		for state.next() {
			attempts++
		}
		if attempts != 3 {
			t.Errorf("期望3次尝试, 实际 %d", attempts)
		}
		if !state.exhausted() {
			t.Error("用尽后exhausted应为true")
		}
	})

	t.Run("最少尝试一次", func(t *testing.T) {
		state := newRetryState(0, newStubIdentities("ua-1"))
		if !state.next() || state.next() {
			t.Error("maxAttempts<1时应只尝试一次")
		}
	})

	t.Run("只有403更换身份", func(t *testing.T) {
		ids := newStubIdentities("ua-1", "ua-2", "ua-3")
		state := newRetryState(5, ids)

		state.observe(attemptFailed)
		if got := state.header().Get("User-Agent"); got != "ua-1" {
			t.Errorf("普通失败不应更换身份, 实际 %q", got)
		}

		state.observe(attemptRejected)
		if got := state.header().Get("User-Agent"); got != "ua-2" {
			t.Errorf("403后应更换身份, 实际 %q", got)
		}
		if ids.rotationCount() != 1 {
			t.Errorf("期望轮换1次, 实际 %d", ids.rotationCount())
		}
	})

	t.Run("每次返回新的头部副本", func(t *testing.T) {
		state := newRetryState(2, newStubIdentities("ua-1"))
		h := state.header()
		h.Set("User-Agent", "被修改")
		h.Set("X-Extra", "1")
		if got := state.header(); got.Get("User-Agent") != "ua-1" || got.Get("X-Extra") != "" {
			t.Errorf("修改副本不应影响状态机: %v", http.Header(got))
		}
	})
}
