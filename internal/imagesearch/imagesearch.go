// Package imagesearch 定义配图搜索的 Provider 抽象与只读注册表。
//
// 每个 Provider 自带全部网络逻辑；一次搜索只触达一个 Provider，
// 失败就是失败，绝不静默切换到别的引擎。
package imagesearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
)

// Options 是一次搜索的全部可调参数。
type Options struct {
	// MaxResults ≤0 时由 Provider 取各自默认值。
	MaxResults int
	SafeSearch bool
	// APIKey 只有收费/签名接口需要（如 pixabay）；配置层负责校验非空。
	APIKey string
	// Offset 用于翻页，支持分页的 Provider 才会用到。
	Offset int
}

// Provider 是单个图片搜索引擎。
type Provider interface {
	ID() string
	Search(ctx context.Context, query string, opts Options, c *http.Client) ([]domain.ImageResult, error)
}

// Registry 是 Provider 的只读注册表（按 id 索引）。
type Registry struct {
	byID map[string]Provider
	ids  []string
}

func NewRegistry(providers ...Provider) (Registry, error) {
	byID := make(map[string]Provider, len(providers))
	ids := make([]string, 0, len(providers))
	for _, p := range providers {
		if p == nil {
			return Registry{}, fmt.Errorf("provider 不能为空")
		}
		id := strings.ToLower(strings.TrimSpace(p.ID()))
		if id == "" {
			return Registry{}, fmt.Errorf("provider.ID 不能为空")
		}
		if _, ok := byID[id]; ok {
			return Registry{}, fmt.Errorf("重复的 provider：%q", id)
		}
		byID[id] = p
		ids = append(ids, id)
	}
	return Registry{byID: byID, ids: ids}, nil
}

func (r Registry) Get(id string) (Provider, bool) {
	if r.byID == nil {
		return nil, false
	}
	p, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// IDs 按注册顺序返回全部 provider id。
func (r Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// ProviderError 表示某个 Provider 在某个阶段的失败
// （token/search/decode）。一次失败只属于这一个引擎。
type ProviderError struct {
	Provider string
	Stage    string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("imagesearch %s/%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// GetBody 执行一次 GET 并整读响应体。传输失败返回原始错误；
// 任何状态码都带响应体返回，由 Provider 自行判定。
func GetBody(ctx context.Context, c *http.Client, url string, header http.Header) ([]byte, int, error) {
	if c == nil {
		c = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
