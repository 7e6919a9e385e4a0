// Package duckduckgo 实现 DuckDuckGo 图片搜索：先从搜索页抠 vqd 令牌，
// 再请求 i.js 拿 JSON 结果。无需 API key。
package duckduckgo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/imagesearch"
)

const (
	defaultBaseURL    = "https://duckduckgo.com"
	defaultMaxResults = 12
)

// vqd 令牌在页面里有多种出现形态，按顺序尝试。
var vqdPatterns = []*regexp.Regexp{
	regexp.MustCompile(`vqd=['"]([A-Za-z0-9-]+)['"]`),
	regexp.MustCompile(`vqd=([A-Za-z0-9-]+)&`),
	regexp.MustCompile(`vqd=([A-Za-z0-9-]+)`),
	regexp.MustCompile(`"vqd"\s*:\s*"([^"]+)"`),
}

// Provider 实现 imagesearch.Provider。BaseURL 为空时用正式站点。
type Provider struct {
	BaseURL string
}

func (Provider) ID() string { return "duckduckgo" }

func (p Provider) base() string {
	if p.BaseURL != "" {
		return strings.TrimRight(p.BaseURL, "/")
	}
	return defaultBaseURL
}

func (p Provider) Search(ctx context.Context, query string, opts imagesearch.Options, c *http.Client) ([]domain.ImageResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	max := opts.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}

	vqd, referer, err := p.fetchToken(ctx, query, c)
	if err != nil {
		return nil, &imagesearch.ProviderError{Provider: "duckduckgo", Stage: "token", Err: err}
	}

	safe := "1"
	if !opts.SafeSearch {
		safe = "-1"
	}
	params := url.Values{
		"l":   {"us-en"},
		"o":   {"json"},
		"q":   {query},
		"vqd": {vqd},
		"f":   {""},
		"p":   {safe},
		"s":   {strconv.Itoa(maxInt(0, opts.Offset))},
	}
	header := http.Header{
		"Accept":           {"application/json, text/javascript, */*; q=0.01"},
		"Accept-Language":  {"en-US,en;q=0.9"},
		"X-Requested-With": {"XMLHttpRequest"},
		"Referer":          {referer},
		"Origin":           {p.base()},
	}
	body, status, err := imagesearch.GetBody(ctx, c, p.base()+"/i.js?"+params.Encode(), header)
	if err != nil {
		return nil, &imagesearch.ProviderError{Provider: "duckduckgo", Stage: "search", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &imagesearch.ProviderError{Provider: "duckduckgo", Stage: "search", Err: fmt.Errorf("HTTP %d", status)}
	}

	var payload struct {
		Results []item `json:"results"`
		Data    []item `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &imagesearch.ProviderError{Provider: "duckduckgo", Stage: "decode", Err: err}
	}
	items := payload.Results
	if len(items) == 0 {
		items = payload.Data
	}

	var out []domain.ImageResult
	for _, it := range items {
		full := firstNonEmpty(it.Image, it.ImageURL, it.Media)
		if full == "" {
			continue
		}
		out = append(out, domain.ImageResult{
			Provider:   "duckduckgo",
			FullURL:    full,
			PreviewURL: firstNonEmpty(it.Thumbnail, it.Thumb),
			Width:      int(it.Width),
			Height:     int(it.Height),
		})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

// fetchToken 请求搜索页并抠出 vqd；图片版参数优先，纯 q 兜底。
func (p Provider) fetchToken(ctx context.Context, query string, c *http.Client) (vqd, referer string, err error) {
	header := http.Header{
		"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
		"Accept-Language": {"en-US,en;q=0.9"},
	}
	candidates := []url.Values{
		{"q": {query}, "t": {"h_"}, "iax": {"images"}, "ia": {"images"}},
		{"q": {query}},
	}
	var lastErr error
	for _, params := range candidates {
		u := p.base() + "/?" + params.Encode()
		body, status, err := imagesearch.GetBody(ctx, c, u, header)
		if err != nil {
			lastErr = err
			continue
		}
		if status < 200 || status >= 300 {
			lastErr = fmt.Errorf("HTTP %d", status)
			continue
		}
		for _, re := range vqdPatterns {
			if m := re.FindSubmatch(body); m != nil {
				return string(m[1]), u, nil
			}
		}
		lastErr = fmt.Errorf("页面里找不到 vqd 令牌")
	}
	return "", "", lastErr
}

// item 兼容 i.js 字段的几种命名；宽高偶尔是字符串。
type item struct {
	Image     string  `json:"image"`
	ImageURL  string  `json:"image_url"`
	Media     string  `json:"media"`
	Thumbnail string  `json:"thumbnail"`
	Thumb     string  `json:"thumb"`
	Width     flexInt `json:"width"`
	Height    flexInt `json:"height"`
}

type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
