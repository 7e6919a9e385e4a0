package imagesearch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/John-Robertt/DictFetch/internal/domain"
)

type fakeProvider struct{ id string }

func (f fakeProvider) ID() string { return f.id }
func (f fakeProvider) Search(context.Context, string, Options, *http.Client) ([]domain.ImageResult, error) {
	return nil, nil
}

func TestNewRegistry_RejectsDuplicateAndEmpty(t *testing.T) {
	if _, err := NewRegistry(fakeProvider{id: "a"}, fakeProvider{id: "A "}); err == nil {
		t.Fatal("大小写/空白折叠后的重复 id 必须被拒绝")
	}
	if _, err := NewRegistry(fakeProvider{id: "  "}); err == nil {
		t.Fatal("空 id 必须被拒绝")
	}
	if _, err := NewRegistry(nil); err == nil {
		t.Fatal("nil provider 必须被拒绝")
	}
}

func TestRegistry_GetNormalizesID(t *testing.T) {
	reg, err := NewRegistry(fakeProvider{id: "ddg"})
	if err != nil {
		t.Fatalf("构建注册表失败：%v", err)
	}
	if _, ok := reg.Get(" DDG "); !ok {
		t.Fatal("Get 应折叠大小写与空白")
	}
	if _, ok := reg.Get("nope"); ok {
		t.Fatal("未注册的 id 不得命中")
	}
}

func TestProviderError_Classification(t *testing.T) {
	cause := errors.New("boom")
	var err error = &ProviderError{Provider: "ddg", Stage: "token", Err: cause}

	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Stage != "token" {
		t.Fatalf("errors.As 应还原 ProviderError：%v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatal("Unwrap 链必须保留原始错误")
	}
}

func TestGetBody_ReturnsBodyForAnyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("gone"))
	}))
	defer srv.Close()

	body, status, err := GetBody(context.Background(), srv.Client(), srv.URL, nil)
	if err != nil {
		t.Fatalf("非 2xx 不是传输错误：%v", err)
	}
	if status != http.StatusNotFound || string(body) != "gone" {
		t.Fatalf("应带响应体返回状态码：status=%d body=%q", status, body)
	}
}

func TestGetBody_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // 让连接必然失败

	if _, _, err := GetBody(context.Background(), nil, srv.URL, nil); err == nil {
		t.Fatal("连接失败必须报错")
	}
}
