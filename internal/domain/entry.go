package domain

import "strings"

// Entry 是单个来源解析得到的一条义项（headword + senses 的最小稳定结构）。
//
// 约束：
// - Definitions 非空才是合法 Entry（parser 不得输出零定义的 Entry）
// - Definitions/Examples 保持来源页面的呈现顺序（顺序即义项排序，不得重排）
// - Synonyms 去重按 casefold，但保留首次出现的写法
// - 字段缺失允许为空，但结构必须稳定
type Entry struct {
	Word         string            `json:"word"`
	PartOfSpeech string            `json:"part_of_speech,omitempty"`
	Definitions  []string          `json:"definitions"`
	Examples     []string          `json:"examples,omitempty"`
	Synonyms     []string          `json:"synonyms,omitempty"`
	IPA          map[string]string `json:"ipa,omitempty"` // dialect -> ipa
	Audio        []AudioCandidate  `json:"audio,omitempty"`
	Images       []string          `json:"images,omitempty"`
	// Extra 承载来源特有的逻辑键（如 ru.wiktionary 的音节划分），
	// 避免为单一来源扩宽核心结构。
	Extra map[string]string `json:"extra,omitempty"`
}

// AudioCandidate 是一条发音音频（dialect 标签 + 源 URL）。
// dialect 推断失败时落入 "default" 桶（条目保留，不丢弃）。
type AudioCandidate struct {
	Dialect string `json:"dialect"`
	URL     string `json:"url"`
}

const DialectDefault = "default"

// Valid 报告该 Entry 是否满足“至少一条定义”的输出契约。
func (e Entry) Valid() bool {
	for _, d := range e.Definitions {
		if strings.TrimSpace(d) != "" {
			return true
		}
	}
	return false
}

// PrimaryIPA 按 priority 顺序挑选主 IPA；priority 未命中时回退 default，
// 再回退任意已有方言（按字典序，保证确定性）。两个方言都存在时全部可取回。
func (e Entry) PrimaryIPA(priority []string) string {
	return pickByDialect(e.IPA, priority)
}

// PrimaryAudio 按 priority 顺序挑选主音频候选。
// 同一方言存在多条时取第一条（Audio 保持插入顺序）。
func (e Entry) PrimaryAudio(priority []string) (AudioCandidate, bool) {
	if len(e.Audio) == 0 {
		return AudioCandidate{}, false
	}
	for _, d := range priority {
		d = strings.ToLower(strings.TrimSpace(d))
		for _, a := range e.Audio {
			if a.Dialect == d {
				return a, true
			}
		}
	}
	for _, a := range e.Audio {
		if a.Dialect == DialectDefault {
			return a, true
		}
	}
	return e.Audio[0], true
}

// AddSynonym 追加一个同义词：casefold 去重，保留首次出现的写法。
func (e *Entry) AddSynonym(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	key := strings.ToLower(s)
	for _, have := range e.Synonyms {
		if strings.ToLower(have) == key {
			return
		}
	}
	e.Synonyms = append(e.Synonyms, s)
}

// AddAudio 追加一条音频候选；仅做“完全相同 URL”级别的去重。
func (e *Entry) AddAudio(dialect, url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		return
	}
	dialect = strings.ToLower(strings.TrimSpace(dialect))
	if dialect == "" {
		dialect = DialectDefault
	}
	for _, have := range e.Audio {
		if have.URL == url {
			return
		}
	}
	e.Audio = append(e.Audio, AudioCandidate{Dialect: dialect, URL: url})
}

func pickByDialect(m map[string]string, priority []string) string {
	if len(m) == 0 {
		return ""
	}
	for _, d := range priority {
		if v := m[strings.ToLower(strings.TrimSpace(d))]; v != "" {
			return v
		}
	}
	if v := m[DialectDefault]; v != "" {
		return v
	}
	// 确定性兜底：字典序最小的 key。
	best := ""
	for k := range m {
		if best == "" || k < best {
			best = k
		}
	}
	return m[best]
}

// Suggestion 是一条“已验证”的拼写建议。
//
// 约束：Entries 非空（验证步骤必须拿到 ≥1 个合法 Entry 才允许对外暴露；
// 未验证的候选直接丢弃，不做“低置信度”标注）。
type Suggestion struct {
	Word    string  `json:"word"`
	Entries []Entry `json:"entries"`
}
