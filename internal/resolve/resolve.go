// Package resolve 负责把一次查词请求落到唯一的判定点：
// 命中即返回词条，未命中则（可选）生成并确认拼写建议。
// 建议永远不会被悄悄当成命中——调用方必须自己决定是否采纳。
package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/source"
)

var (
	// ErrEmptyWord 表示规范化后查询词为空。
	ErrEmptyWord = errors.New("查询词为空")
)

// Options 控制未命中时的建议行为。
type Options struct {
	// SuggestionsEnabled 为 false 时未命中直接返回空结果。
	SuggestionsEnabled bool
	// MaxConfirmed 是确认建议的数量上限（≥1）。
	MaxConfirmed int
}

// Result 是一次解析的结果：Entries 与 Suggestions 互斥。
// Entries 非空即命中；否则 Suggestions 里是已经过来源确认的替代拼写。
type Result struct {
	// Word 是来源规范化之后实际参与查询的词。
	Word        string              `json:"word"`
	Entries     []domain.Entry      `json:"entries,omitempty"`
	Suggestions []domain.Suggestion `json:"suggestions,omitempty"`
}

// Found 为 true 表示精确命中。
func (r Result) Found() bool { return len(r.Entries) > 0 }

// Resolve 在指定来源上解析一个词。
//
// 约束：
//   - 词先经来源 Normalize；规范化后为空返回 ErrEmptyWord。
//   - 首次查询的 FetchError/FormatError 原样上抛（与候选确认不同）。
//   - 未命中且未开启建议时，返回的 Result 两个切片都为空。
func Resolve(ctx context.Context, word, sourceID string, reg source.Registry, client *http.Client, opts Options) (Result, error) {
	src, ok := reg.Get(sourceID)
	if !ok {
		return Result{}, fmt.Errorf("未知来源 %q", sourceID)
	}
	norm := src.Normalize(word)
	if norm == "" {
		return Result{}, ErrEmptyWord
	}

	entries, err := src.Lookup(ctx, norm, client)
	if err != nil {
		return Result{}, err
	}
	if len(entries) > 0 {
		return Result{Word: norm, Entries: entries}, nil
	}
	if !opts.SuggestionsEnabled {
		return Result{Word: norm}, nil
	}

	suggestions, err := Suggest(ctx, norm, src, client, opts.MaxConfirmed)
	if err != nil {
		return Result{}, err
	}
	return Result{Word: norm, Suggestions: suggestions}, nil
}
