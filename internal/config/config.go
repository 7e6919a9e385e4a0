// Package config 负责发现/读取 dictfetch.json，并与 CLI 参数合并为
// 最终配置。校验全部在加载阶段完成（fail-fast）：实现层拿到的
// EffectiveConfig 不需要再做默认值/范围判断。
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/domain"
)

const (
	// ErrCodeNotFound 表示 CLI 显式指定的配置文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// FileName 是默认配置文件名（在 cwd 下查找，可选）。
	FileName = "dictfetch.json"

	// DefaultSource 是词典来源的最终默认值。
	DefaultSource = "cambridge"
	// DefaultImageProvider 是图片引擎的最终默认值。
	DefaultImageProvider = "duckduckgo"
	// DefaultMaxConfirmed 是确认建议数量的默认值。
	DefaultMaxConfirmed = 5
	// DefaultImageMaxResults 是图片结果数量的默认值。
	DefaultImageMaxResults = 12
)

// CLIArgs 只包含 CLI 暴露的入口，并保留“是否显式指定”的信息，
// 保证覆盖优先级可实现（如 -suggest=false 必须能覆盖配置文件的 true）。
type CLIArgs struct {
	ConfigPath string

	Source    string
	SourceSet bool

	Provider    string
	ProviderSet bool

	MaxResults    int
	MaxResultsSet bool

	Suggest    bool
	SuggestSet bool
}

// FileConfig 对应 dictfetch.json 的解析结构。
type FileConfig struct {
	Source          string                `json:"source"`
	DialectPriority []string              `json:"dialect_priority"`
	Proxy           *ProxyConfig          `json:"proxy"`
	Suggestions     *SuggestionsConfig    `json:"suggestions"`
	ImageSearch     *ImageSearchConfig    `json:"image_search"`
	FieldMap        map[string]FieldSlots `json:"field_map"`
	Wiktionary      *WiktionaryConfig     `json:"wiktionary"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

type SuggestionsConfig struct {
	Enabled      *bool `json:"enabled"`
	MaxConfirmed int   `json:"max_confirmed"`
}

type ImageSearchConfig struct {
	Provider   string `json:"provider"`
	MaxResults int    `json:"max_results"`
	SafeSearch *bool  `json:"safe_search"`
	APIKey     string `json:"api_key"`
}

// WiktionaryConfig 是 wiki 来源专用的字段映射覆盖层
// （比如把 syllables 额外映射到某个槽位）。
type WiktionaryConfig struct {
	FieldMap map[string]FieldSlots `json:"field_map"`
}

// FieldSlots 兼容两种 JSON 形态："A,B" 与 ["A","B"]，统一成列表。
type FieldSlots []string

func (s *FieldSlots) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err != nil {
		return fmt.Errorf("槽位必须是字符串或字符串列表")
	}
	*s = strings.Split(one, ",")
	return nil
}

// EffectiveConfig 是合并并规范化后的最终配置。
type EffectiveConfig struct {
	Source          string
	DialectPriority []string
	ProxyURL        string

	SuggestionsEnabled bool
	MaxConfirmed       int

	ImageProvider   string
	ImageMaxResults int
	SafeSearch      bool
	APIKey          string

	// FieldMap 是通用映射；WiktionaryFieldMap 是 wiki 来源的覆盖层。
	FieldMap           domain.FieldMap
	WiktionaryFieldMap domain.FieldMap
}

// FieldMapFor 返回指定来源生效的字段映射（wiki 来源叠加覆盖层）。
func (c EffectiveConfig) FieldMapFor(sourceID string) domain.FieldMap {
	out := domain.FieldMap{}
	for k, v := range c.FieldMap {
		out[k] = append([]string(nil), v...)
	}
	if sourceID == "wikien" || sourceID == "wikiru" {
		for k, v := range c.WiktionaryFieldMap {
			out[k] = append([]string(nil), v...)
		}
	}
	return out
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并。
//
// 发现规则（固定）：
// 1) CLI 提供 -config：该文件必须存在且可解析
// 2) 否则：<cwd>/dictfetch.json 可选，不存在时全走默认值
//
// 覆盖优先级（固定）：CLI > 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	var (
		cfgPath string
		fc      FileConfig
	)

	if strings.TrimSpace(cli.ConfigPath) != "" {
		cfgPath = absCleanFrom(cwd, cli.ConfigPath)
		fc2, exists, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		if !exists {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		fc = fc2
	} else {
		cfgPath = filepath.Join(cwd, FileName)
		fc2, _, err := readFileConfig(cfgPath)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
		}
		fc = fc2 // 不存在时是零值，全走默认
	}

	return merge(cli, fc, cfgPath)
}

func merge(cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	// source：CLI > config > 默认
	src := DefaultSource
	if cli.SourceSet {
		src = cli.Source
	} else if strings.TrimSpace(fc.Source) != "" {
		src = fc.Source
	}
	src = strings.ToLower(strings.TrimSpace(src))
	if err := validateSource(src); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	dialects := normalizeDialects(fc.DialectPriority)

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%q", proxyURL)}
		}
	}

	// suggestions：enabled 默认 true；max_confirmed 默认 5，截断到 [1,20]。
	suggest := true
	maxConfirmed := DefaultMaxConfirmed
	if fc.Suggestions != nil {
		if fc.Suggestions.Enabled != nil {
			suggest = *fc.Suggestions.Enabled
		}
		if fc.Suggestions.MaxConfirmed != 0 {
			maxConfirmed = fc.Suggestions.MaxConfirmed
		}
	}
	if cli.SuggestSet {
		suggest = cli.Suggest
	}
	maxConfirmed = clamp(maxConfirmed, 1, 20)

	// image_search：provider CLI > config > 默认；max_results 截断到 [1,50]。
	provider := DefaultImageProvider
	maxResults := DefaultImageMaxResults
	safeSearch := true
	apiKey := ""
	if fc.ImageSearch != nil {
		if strings.TrimSpace(fc.ImageSearch.Provider) != "" {
			provider = fc.ImageSearch.Provider
		}
		if fc.ImageSearch.MaxResults != 0 {
			maxResults = fc.ImageSearch.MaxResults
		}
		if fc.ImageSearch.SafeSearch != nil {
			safeSearch = *fc.ImageSearch.SafeSearch
		}
		apiKey = strings.TrimSpace(fc.ImageSearch.APIKey)
	}
	if cli.ProviderSet {
		provider = cli.Provider
	}
	if cli.MaxResultsSet {
		maxResults = cli.MaxResults
	}
	provider = strings.ToLower(strings.TrimSpace(provider))
	if err := validateImageProvider(provider); err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if provider == "pixabay" && apiKey == "" {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("image_search.provider=pixabay 但 image_search.api_key 为空")}
	}
	maxResults = clamp(maxResults, 1, 50)

	fieldMap, err := normalizeFieldMap(fc.FieldMap)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("field_map 无效：%w", err)}
	}
	var wikiMap domain.FieldMap
	if fc.Wiktionary != nil {
		wikiMap, err = normalizeFieldMap(fc.Wiktionary.FieldMap)
		if err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("wiktionary.field_map 无效：%w", err)}
		}
	}

	return EffectiveConfig{
		Source:             src,
		DialectPriority:    dialects,
		ProxyURL:           proxyURL,
		SuggestionsEnabled: suggest,
		MaxConfirmed:       maxConfirmed,
		ImageProvider:      provider,
		ImageMaxResults:    maxResults,
		SafeSearch:         safeSearch,
		APIKey:             apiKey,
		FieldMap:           fieldMap,
		WiktionaryFieldMap: wikiMap,
	}, nil
}

func validateSource(s string) error {
	switch s {
	case "cambridge", "wikien", "wikiru":
		return nil
	case "":
		return fmt.Errorf("source 不能为空")
	default:
		return fmt.Errorf("source 只能是 cambridge、wikien 或 wikiru，实际是 %q", s)
	}
}

func validateImageProvider(p string) error {
	switch p {
	case "duckduckgo", "wikimedia", "pixabay":
		return nil
	case "":
		return fmt.Errorf("image_search.provider 不能为空")
	default:
		return fmt.Errorf("image_search.provider 只能是 duckduckgo、wikimedia 或 pixabay，实际是 %q", p)
	}
}

// normalizeDialects 小写去空白去重；为空时给默认 ["uk","us"]。
func normalizeDialects(in []string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	if len(out) == 0 {
		return []string{"uk", "us"}
	}
	return out
}

// normalizeFieldMap 去槽位空白、丢空槽；键存在但规范化后没有任何槽位是错误。
func normalizeFieldMap(in map[string]FieldSlots) (domain.FieldMap, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := domain.FieldMap{}
	for key, slots := range in {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("存在空的逻辑键")
		}
		var kept []string
		for _, s := range slots {
			if s = strings.TrimSpace(s); s != "" {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			return nil, fmt.Errorf("键 %q 没有任何有效槽位", key)
		}
		out[key] = kept
	}
	return out, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 JSON 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return FileConfig{}, true, err
	}
	return fc, true, nil
}
