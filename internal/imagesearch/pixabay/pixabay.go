// Package pixabay 实现 Pixabay 图片搜索（带 key 的官方 API）。
// APIKey 必须非空，配置加载阶段已校验；这里对空 key 直接报错兜底。
package pixabay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/imagesearch"
)

const (
	defaultBaseURL    = "https://pixabay.com"
	defaultMaxResults = 12
	// API 的 per_page 取值范围是 3..200。
	apiMinPerPage = 3
	apiMaxPerPage = 200
)

// Provider 实现 imagesearch.Provider。BaseURL 为空时用正式站点。
type Provider struct {
	BaseURL string
}

func (Provider) ID() string { return "pixabay" }

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
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, &imagesearch.ProviderError{Provider: "pixabay", Stage: "search", Err: errors.New("缺少 API key")}
	}
	max := opts.MaxResults
	if max <= 0 {
		max = defaultMaxResults
	}
	perPage := max
	if perPage < apiMinPerPage {
		perPage = apiMinPerPage
	}
	if perPage > apiMaxPerPage {
		perPage = apiMaxPerPage
	}

	page := 1
	if opts.Offset > 0 && max > 0 {
		page = opts.Offset/max + 1
	}
	params := url.Values{
		"key":        {opts.APIKey},
		"q":          {query},
		"image_type": {"photo"},
		"per_page":   {strconv.Itoa(perPage)},
		"page":       {strconv.Itoa(page)},
		"safesearch": {strconv.FormatBool(opts.SafeSearch)},
	}
	body, status, err := imagesearch.GetBody(ctx, c, p.base()+"/api/?"+params.Encode(), nil)
	if err != nil {
		return nil, &imagesearch.ProviderError{Provider: "pixabay", Stage: "search", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &imagesearch.ProviderError{Provider: "pixabay", Stage: "search", Err: fmt.Errorf("HTTP %d", status)}
	}

	var payload struct {
		Hits []struct {
			PreviewURL    string `json:"previewURL"`
			WebformatURL  string `json:"webformatURL"`
			LargeImageURL string `json:"largeImageURL"`
			ImageWidth    int    `json:"imageWidth"`
			ImageHeight   int    `json:"imageHeight"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &imagesearch.ProviderError{Provider: "pixabay", Stage: "decode", Err: err}
	}

	var out []domain.ImageResult
	for _, h := range payload.Hits {
		full := h.LargeImageURL
		if full == "" {
			full = h.WebformatURL
		}
		if full == "" {
			continue
		}
		out = append(out, domain.ImageResult{
			Provider:   "pixabay",
			FullURL:    full,
			PreviewURL: h.PreviewURL,
			Width:      h.ImageWidth,
			Height:     h.ImageHeight,
		})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}
