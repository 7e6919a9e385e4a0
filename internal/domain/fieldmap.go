package domain

import "strings"

// FieldMap 把逻辑字段名映射到一个或多个目标槽位标识。
// 纯配置：核心只读不改，仅在插入边界消费。
type FieldMap map[string][]string

// 逻辑字段名（FieldMap 的 key 集合；Extra 的 key 直接按原名映射）。
const (
	FieldWord       = "word"
	FieldDefinition = "definition"
	FieldExamples   = "examples"
	FieldSynonyms   = "synonyms"
	FieldIPA        = "ipa"
	FieldAudio      = "audio"
	FieldPicture    = "picture"
)

// Assign 把一个 Entry 的字段按 FieldMap 摊到目标槽位上。
//
// 约定（固定拼接策略）：
// - 多值字段（definitions/examples/synonyms）用换行符拼接
// - audio/picture 槽位只写入源 URL（媒体下载是调用方的事）
// - ipa/audio 的主值选取遵循 dialectPriority（与 Entry.PrimaryIPA 一致）
// - 值为空的逻辑字段不产生槽位赋值（不写空串覆盖调用方字段）
func Assign(e Entry, fm FieldMap, dialectPriority []string) map[string]string {
	out := make(map[string]string, len(fm))

	write := func(field, value string) {
		if value == "" {
			return
		}
		for _, slot := range fm[field] {
			slot = strings.TrimSpace(slot)
			if slot == "" {
				continue
			}
			if _, dup := out[slot]; dup {
				continue
			}
			out[slot] = value
		}
	}

	write(FieldWord, strings.TrimSpace(e.Word))
	write(FieldDefinition, joinLines(e.Definitions))
	write(FieldExamples, joinLines(e.Examples))
	write(FieldSynonyms, joinLines(e.Synonyms))
	write(FieldIPA, e.PrimaryIPA(dialectPriority))
	if a, ok := e.PrimaryAudio(dialectPriority); ok {
		write(FieldAudio, a.URL)
	}
	if len(e.Images) > 0 {
		write(FieldPicture, e.Images[0])
	}
	for key, val := range e.Extra {
		write(key, strings.TrimSpace(val))
	}
	return out
}

func joinLines(parts []string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "\n")
}
