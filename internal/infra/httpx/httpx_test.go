package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
)

// stubTransport 前 failFirst 次失败，之后成功；记录每次请求的 UA。
type stubTransport struct {
	failFirst int
	calls     int
	uas       []string
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.calls++
	s.uas = append(s.uas, req.Header.Get("User-Agent"))
	if s.calls <= s.failFirst {
		return nil, errors.New("connection reset")
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader("ok")),
		Request:    req,
	}, nil
}

func TestNewClient_ProxyDisablesKeepAlive(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:8080")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr, ok := c.Transport.(*Transport)
	if !ok {
		t.Fatalf("期望 *Transport，实际 %T", c.Transport)
	}
	base, ok := tr.Base.(*http.Transport)
	if !ok {
		t.Fatalf("期望 *http.Transport 基座，实际 %T", tr.Base)
	}
	if base.Proxy == nil {
		t.Fatalf("期望启用代理，但 Proxy=nil")
	}
	if !base.DisableKeepAlives || !tr.DisableKeepAlives {
		t.Fatalf("proxy 模式必须禁用 keep-alive")
	}
}

func TestNewClient_NoProxyKeepsDefault(t *testing.T) {
	c, err := NewClient("")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	tr := c.Transport.(*Transport)
	base := tr.Base.(*http.Transport)
	if base.Proxy != nil {
		t.Fatalf("不期望启用代理，但 Proxy!=nil")
	}
	if base.DisableKeepAlives {
		t.Fatalf("直连模式不应禁用 keep-alive")
	}
}

func TestNewClient_InvalidProxyURL(t *testing.T) {
	if _, err := NewClient("http://[::1"); err == nil {
		t.Fatalf("期望错误，但得到 nil")
	}
}

func TestRoundTrip_BoundedRetry(t *testing.T) {
	stub := &stubTransport{failFirst: 2}
	tr := &Transport{Base: stub, ua: globalUA, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("两次失败后第三次应成功：%v", err)
	}
	resp.Body.Close()
	if stub.calls != 3 {
		t.Fatalf("期望 3 次尝试，实际=%d", stub.calls)
	}
	for i, ua := range stub.uas {
		if ua == "" {
			t.Fatalf("第 %d 次尝试缺少 UA", i+1)
		}
	}
}

func TestRoundTrip_RetryExhausted(t *testing.T) {
	stub := &stubTransport{failFirst: 10}
	tr := &Transport{Base: stub, ua: globalUA, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatal("重试耗尽必须报错")
	}
	if stub.calls != 3 {
		t.Fatalf("RetryMax=2 即最多 3 次尝试，实际=%d", stub.calls)
	}
}

func TestRoundTrip_NoRetryForPost(t *testing.T) {
	stub := &stubTransport{failFirst: 10}
	tr := &Transport{Base: stub, ua: globalUA, RetryMax: 2}

	req, _ := http.NewRequest(http.MethodPost, "http://example.test/", strings.NewReader("x"))
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatal("POST 失败不应吞掉")
	}
	if stub.calls != 1 {
		t.Fatalf("不可重放的请求绝不重试，实际尝试=%d", stub.calls)
	}
}

func TestRoundTrip_CanceledContextStopsRetry(t *testing.T) {
	stub := &stubTransport{failFirst: 10}
	tr := &Transport{Base: stub, ua: globalUA, RetryMax: 5}

	ctx, cancel := context.WithCancel(context.Background())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.test/", nil)
	cancel()
	if _, err := tr.RoundTrip(req); err == nil {
		t.Fatal("ctx 取消后必须报错")
	}
	if stub.calls != 1 {
		t.Fatalf("ctx 取消后不得继续重试，实际尝试=%d", stub.calls)
	}
}

func TestRoundTrip_KeepsCallerUA(t *testing.T) {
	stub := &stubTransport{}
	tr := &Transport{Base: stub, ua: globalUA}

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	req.Header.Set("User-Agent", "custom/1.0")
	resp, err := tr.RoundTrip(req)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	resp.Body.Close()
	if stub.uas[0] != "custom/1.0" {
		t.Fatalf("调用方显式 UA 不得被覆盖：%q", stub.uas[0])
	}
}
