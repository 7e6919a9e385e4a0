package resolve

import (
	"context"
	"net/http"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/source"
)

// Suggest 为未命中的词生成并确认拼写建议。
//
// 候选是基于来源字母表的全部编辑距离 1 变体（删除、相邻换位、替换、
// 插入），按（编辑距离，长度差，字典序）排序后逐个回查来源确认；
// 单个候选的查询失败只跳过该候选，凑满 maxConfirmed 个即停。
// 只有 ctx 取消会让整个过程失败。
func Suggest(ctx context.Context, word string, src source.Source, client *http.Client, maxConfirmed int) ([]domain.Suggestion, error) {
	if maxConfirmed < 1 {
		maxConfirmed = 1
	}

	candidates := rank(word, edits1(word, src.Alphabet()))

	var out []domain.Suggestion
	for _, cand := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		entries, err := src.Lookup(ctx, cand, client)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// 候选确认失败不致命：跳过继续。
			continue
		}
		if len(entries) == 0 {
			continue
		}
		out = append(out, domain.Suggestion{Word: cand, Entries: entries})
		if len(out) >= maxConfirmed {
			break
		}
	}
	return out, nil
}

// edits1 枚举 word 的全部编辑距离 1 变体（去重、不含原词）。
func edits1(word, alphabet string) []string {
	w := []rune(word)
	letters := []rune(alphabet)

	seen := map[string]struct{}{word: {}}
	var out []string
	add := func(cand string) {
		if cand == "" {
			return
		}
		if _, dup := seen[cand]; dup {
			return
		}
		seen[cand] = struct{}{}
		out = append(out, cand)
	}

	// 删除
	for i := range w {
		add(string(w[:i]) + string(w[i+1:]))
	}
	// 相邻换位
	for i := 0; i+1 < len(w); i++ {
		t := append([]rune{}, w...)
		t[i], t[i+1] = t[i+1], t[i]
		add(string(t))
	}
	// 替换
	for i := range w {
		for _, r := range letters {
			if r == w[i] {
				continue
			}
			t := append([]rune{}, w...)
			t[i] = r
			add(string(t))
		}
	}
	// 插入
	for i := 0; i <= len(w); i++ {
		for _, r := range letters {
			add(string(w[:i]) + string(r) + string(w[i:]))
		}
	}
	return out
}

// rank 按（大小写折叠编辑距离，长度差，字典序）稳定排序，结果确定。
func rank(word string, candidates []string) []string {
	base := strings.ToLower(word)
	baseLen := len([]rune(word))

	type scored struct {
		cand string
		dist int
		diff int
		key  string
	}
	items := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c)
		if key == base {
			continue
		}
		diff := len([]rune(c)) - baseLen
		if diff < 0 {
			diff = -diff
		}
		items = append(items, scored{
			cand: c,
			dist: levenshtein.ComputeDistance(base, key),
			diff: diff,
			key:  key,
		})
	}
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.dist != b.dist {
			return a.dist < b.dist
		}
		if a.diff != b.diff {
			return a.diff < b.diff
		}
		if a.key != b.key {
			return a.key < b.key
		}
		return a.cand < b.cand
	})
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.cand
	}
	return out
}
