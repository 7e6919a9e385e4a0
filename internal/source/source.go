package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
)

// Source 把“站点结构变化”限制在各自的子包内部；核心流程只依赖统一接口
// 与稳定的 domain.Entry。
//
// 约束：
// - Lookup 不做缓存、不做重试、不做限速（网络策略由注入的 http.Client 承担）
// - “查无此词”是正常结果：返回空切片 + nil error
// - 文档完全不是预期页面（错误页/验证页）才返回 *FormatError
// - 每个子包另导出纯函数 Parse（相同输入 => 相同输出，供 fixture 测试）
type Source interface {
	ID() string
	// Normalize 按来源各自的大小写约定规范化查询词
	// （商业词典查询不区分大小写；wiki 来源区分）。
	Normalize(word string) string
	// Alphabet 是该来源生成编辑距离候选时使用的字母表。
	Alphabet() string
	Lookup(ctx context.Context, word string, c *http.Client) ([]domain.Entry, error)
}

// Registry 是 source 的只读注册表（按 id 索引）。
// 调用方只凭 id 选择来源，绝不探查解析器内部。
type Registry struct {
	byID map[string]Source
	ids  []string
}

func NewRegistry(sources ...Source) (Registry, error) {
	byID := make(map[string]Source, len(sources))
	ids := make([]string, 0, len(sources))
	for _, s := range sources {
		if s == nil {
			return Registry{}, fmt.Errorf("source 不能为空")
		}
		id := strings.ToLower(strings.TrimSpace(s.ID()))
		if id == "" {
			return Registry{}, fmt.Errorf("source.ID 不能为空")
		}
		if _, ok := byID[id]; ok {
			return Registry{}, fmt.Errorf("重复的 source：%q", id)
		}
		byID[id] = s
		ids = append(ids, id)
	}
	return Registry{byID: byID, ids: ids}, nil
}

func (r Registry) Get(id string) (Source, bool) {
	if r.byID == nil {
		return nil, false
	}
	s, ok := r.byID[strings.ToLower(strings.TrimSpace(id))]
	return s, ok
}

// IDs 按注册顺序返回全部来源 id（用于 usage/校验提示）。
func (r Registry) IDs() []string {
	return append([]string(nil), r.ids...)
}

// FetchError 表示某个 URL 的一次获取失败（网络错误或非 2xx 状态）。
// 始终是“这一页暂时拿不到”级别：绝不升级为中断整个多候选操作。
type FetchError struct {
	URL        string
	StatusCode int // 0 表示未收到响应
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError 表示获取到的内容根本不是该来源的预期文档类型
// （错误页、验证页等）。它与“查无此词”是不同的情况：
// 说明来源本身当前不可用，而不是词不存在。
type FormatError struct {
	Source string
	URL    string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("source=%s: 非预期文档（%s）：%s", e.Source, e.Reason, e.URL)
}

// IsFetchError 报告 err 是否为（或包裹了）*FetchError。
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsFormatError 报告 err 是否为（或包裹了）*FormatError。
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// GetPage 执行一次页面 GET 并整体读出 body。
//
// 返回：
// - 2xx：body, status, nil
// - 其它状态：nil, status, nil（由来源自行决定 404=查无此词 还是失败）
// - 传输失败：nil, 0, *FetchError
func GetPage(ctx context.Context, c *http.Client, url string, header map[string]string) ([]byte, int, error) {
	if c == nil {
		return nil, 0, &FetchError{URL: url, Err: errors.New("http client 不能为空")}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &FetchError{URL: url, Err: err}
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, 0, &FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &FetchError{URL: url, Err: err}
	}
	return b, resp.StatusCode, nil
}
