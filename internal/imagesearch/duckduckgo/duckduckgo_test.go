package duckduckgo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/DictFetch/internal/imagesearch"
)

func newServer(t *testing.T, safeWant string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Write([]byte(`<html><script>vqd='tok-42';</script></html>`))
		case "/i.js":
			if got := r.URL.Query().Get("vqd"); got != "tok-42" {
				t.Errorf("i.js 必须带上抠出的 vqd，实际=%q", got)
			}
			if got := r.URL.Query().Get("p"); got != safeWant {
				t.Errorf("安全搜索参数不符：期望 %q 实际 %q", safeWant, got)
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"results":[
  {"image":"https://img.example/a.jpg","thumbnail":"https://img.example/a_t.jpg","width":"800","height":600},
  {"title":"no image url"},
  {"image":"https://img.example/b.jpg","width":1024,"height":768},
  {"image":"https://img.example/c.jpg"}
]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestSearch_MapsResults(t *testing.T) {
	srv := newServer(t, "1")
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	got, err := p.Search(context.Background(), "cat", imagesearch.Options{MaxResults: 2, SafeSearch: true}, srv.Client())
	if err != nil {
		t.Fatalf("Search 失败：%v", err)
	}
	if len(got) != 2 {
		t.Fatalf("MaxResults 应截断结果（无 image 的条目跳过）：%+v", got)
	}
	first := got[0]
	if first.Provider != "duckduckgo" || first.FullURL != "https://img.example/a.jpg" ||
		first.PreviewURL != "https://img.example/a_t.jpg" {
		t.Fatalf("结果映射不符：%+v", first)
	}
	if first.Width != 800 || first.Height != 600 {
		t.Fatalf("字符串形态的宽高也要解析：%+v", first)
	}
	if got[1].FullURL != "https://img.example/b.jpg" {
		t.Fatalf("结果顺序必须保持接口返回顺序：%+v", got[1])
	}
}

func TestSearch_SafeSearchOff(t *testing.T) {
	srv := newServer(t, "-1")
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	if _, err := p.Search(context.Background(), "cat", imagesearch.Options{SafeSearch: false}, srv.Client()); err != nil {
		t.Fatalf("Search 失败：%v", err)
	}
}

func TestSearch_TokenMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`<html>nothing here</html>`))
	}))
	defer srv.Close()

	p := Provider{BaseURL: srv.URL}
	_, err := p.Search(context.Background(), "cat", imagesearch.Options{}, srv.Client())
	var pe *imagesearch.ProviderError
	if !errors.As(err, &pe) || pe.Stage != "token" {
		t.Fatalf("缺少 vqd 应返回 token 阶段的 ProviderError：%v", err)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	p := Provider{BaseURL: "http://127.0.0.1:0"}
	got, err := p.Search(context.Background(), "   ", imagesearch.Options{}, nil)
	if err != nil || got != nil {
		t.Fatalf("空查询不碰网络、返回空：got=%v err=%v", got, err)
	}
}
