// Package wikimedia 实现 Wikimedia Commons 的图片搜索
// （api.php generator=search，File 命名空间）。无需 API key。
// Commons 没有安全搜索开关，SafeSearch 选项静默忽略。
package wikimedia

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/imagesearch"
)

const (
	defaultBaseURL    = "https://commons.wikimedia.org"
	defaultMaxResults = 12
	// api.php 的 gsrlimit 上限。
	apiMaxLimit = 50

	thumbWidth = 320
)

// Provider 实现 imagesearch.Provider。BaseURL 为空时用正式站点。
type Provider struct {
	BaseURL string
}

func (Provider) ID() string { return "wikimedia" }

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
	if max > apiMaxLimit {
		max = apiMaxLimit
	}

	params := url.Values{
		"action":       {"query"},
		"format":       {"json"},
		"generator":    {"search"},
		"gsrsearch":    {query},
		"gsrnamespace": {"6"}, // File:
		"gsrlimit":     {strconv.Itoa(max)},
		"gsroffset":    {strconv.Itoa(maxInt(0, opts.Offset))},
		"prop":         {"imageinfo"},
		"iiprop":       {"url|size"},
		"iiurlwidth":   {strconv.Itoa(thumbWidth)},
	}
	body, status, err := imagesearch.GetBody(ctx, c, p.base()+"/w/api.php?"+params.Encode(), nil)
	if err != nil {
		return nil, &imagesearch.ProviderError{Provider: "wikimedia", Stage: "search", Err: err}
	}
	if status < 200 || status >= 300 {
		return nil, &imagesearch.ProviderError{Provider: "wikimedia", Stage: "search", Err: fmt.Errorf("HTTP %d", status)}
	}

	var payload struct {
		Error *struct {
			Code string `json:"code"`
			Info string `json:"info"`
		} `json:"error"`
		Query struct {
			Pages map[string]page `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &imagesearch.ProviderError{Provider: "wikimedia", Stage: "decode", Err: err}
	}
	if payload.Error != nil {
		return nil, &imagesearch.ProviderError{
			Provider: "wikimedia", Stage: "search",
			Err: fmt.Errorf("%s: %s", payload.Error.Code, payload.Error.Info),
		}
	}

	// pages 是无序 map，按检索排名（index）恢复顺序。
	pages := make([]page, 0, len(payload.Query.Pages))
	for _, pg := range payload.Query.Pages {
		pages = append(pages, pg)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	var out []domain.ImageResult
	for _, pg := range pages {
		if len(pg.ImageInfo) == 0 {
			continue
		}
		info := pg.ImageInfo[0]
		if info.URL == "" {
			continue
		}
		out = append(out, domain.ImageResult{
			Provider:   "wikimedia",
			FullURL:    info.URL,
			PreviewURL: info.ThumbURL,
			Width:      info.Width,
			Height:     info.Height,
		})
		if len(out) >= max {
			break
		}
	}
	return out, nil
}

type page struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	ImageInfo []struct {
		URL      string `json:"url"`
		ThumbURL string `json:"thumburl"`
		Width    int    `json:"width"`
		Height   int    `json:"height"`
	} `json:"imageinfo"`
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
