// Package wikien 实现 en.wiktionary.org 的抓取与解析。
//
// 页面按语言 → 词源 → 发音/词性分节；发音（IPA/音频）挂在节级别，
// 需要在遍历标题时携带状态：遇到新的 Etymology 清零，遇到词性标题
// 则把当前发音附到该节产出的每个义项上。
package wikien

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/source"
	"github.com/John-Robertt/DictFetch/internal/source/wiki"
)

const (
	host    = "en.wiktionary.org"
	baseURL = "https://en.wiktionary.org/wiki/"

	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

// posTitles 是会产出义项的词性标题集合（固定白名单，未知标题跳过）。
var posTitles = map[string]struct{}{
	"noun": {}, "proper noun": {}, "verb": {}, "adjective": {}, "adverb": {},
	"pronoun": {}, "determiner": {}, "preposition": {}, "conjunction": {},
	"interjection": {}, "numeral": {}, "article": {}, "particle": {},
	"prefix": {}, "suffix": {}, "abbreviation": {}, "initialism": {},
	"acronym": {}, "phrase": {}, "idiom": {}, "proverb": {}, "symbol": {},
	"letter": {}, "noun phrase": {}, "verb phrase": {}, "adjective phrase": {},
	"adverb phrase": {}, "prepositional phrase": {},
}

// Source 实现 source.Source。wiki 词条区分大小写（March ≠ march）。
type Source struct{}

func (Source) ID() string { return "wikien" }

func (Source) Normalize(word string) string { return strings.TrimSpace(word) }

func (Source) Alphabet() string { return alphabet }

func (s Source) Lookup(ctx context.Context, word string, c *http.Client) ([]domain.Entry, error) {
	u := baseURL + url.PathEscape(strings.TrimSpace(word))
	body, status, err := source.GetPage(ctx, c, u, nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, &source.FetchError{URL: u, StatusCode: status}
	}
	return Parse(word, body, u)
}

// Parse 把词条页 HTML 解析为 Entry 列表。纯函数。
// 页面存在但没有 English 语言区段同样算“查无此词”。
func Parse(word string, html []byte, pageURL string) ([]domain.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &source.FormatError{Source: "wikien", URL: pageURL, Reason: "HTML 无法解析"}
	}
	if !looksLikeMediaWiki(doc) {
		return nil, &source.FormatError{Source: "wikien", URL: pageURL, Reason: "页面缺少 MediaWiki 骨架"}
	}

	sec := wiki.FindLanguageSection(doc, "English")
	if sec.Empty() {
		return nil, nil
	}

	var entries []domain.Entry
	curIPA := map[string]string{}
	var curAudio []domain.AudioCandidate

	for _, h := range sec.Headings() {
		title := normalizeTitle(wiki.HeadingText(h))
		titleCF := strings.ToLower(title)
		switch {
		case titleCF == "english":
			continue
		case strings.HasPrefix(titleCF, "etymology"):
			// 新词源：发音状态清零（发音属于词源块）。
			curIPA = map[string]string{}
			curAudio = nil
		case titleCF == "pronunciation":
			curIPA, curAudio = parsePronunciation(wiki.SectionContent(h))
		default:
			if _, ok := posTitles[titleCF]; !ok {
				continue
			}
			content := wiki.SectionContent(h)
			synonyms := parseSynonyms(content)
			for _, li := range definitionItems(content) {
				def := extractDefinition(li)
				if def == "" {
					continue
				}
				e := domain.Entry{
					Word:         word,
					PartOfSpeech: title,
					Definitions:  []string{def},
					Examples:     extractExamples(li),
				}
				for _, syn := range synonyms {
					e.AddSynonym(syn)
				}
				if len(curIPA) > 0 {
					e.IPA = make(map[string]string, len(curIPA))
					for k, v := range curIPA {
						e.IPA[k] = v
					}
				}
				for _, a := range curAudio {
					e.AddAudio(a.Dialect, a.URL)
				}
				entries = append(entries, e)
			}
		}
	}

	// 语言区段级别的配图：只补没有图的义项。
	if picture := wiki.PickImage(sec); picture != "" {
		for i := range entries {
			if len(entries[i].Images) == 0 {
				entries[i].Images = append(entries[i].Images, picture)
			}
		}
	}
	return entries, nil
}

func looksLikeMediaWiki(doc *goquery.Document) bool {
	return doc.Find("#mw-content-text, .mw-parser-output, .mw-body, body.mediawiki").Length() > 0
}

func parsePronunciation(content *goquery.Selection) (map[string]string, []domain.AudioCandidate) {
	ipa := map[string]string{}
	content.Find(".IPA, .ipa").Each(func(_ int, node *goquery.Selection) {
		text := cleanText(node.Text())
		if text == "" {
			return
		}
		key := wiki.DialectNear(node)
		if key == "" {
			key = domain.DialectDefault
		}
		if _, dup := ipa[key]; !dup {
			ipa[key] = text
		}
	})

	var audio []domain.AudioCandidate
	seen := map[string]struct{}{}
	content.Find("audio source, audio[src], a[href], source[src]").Each(func(_ int, tag *goquery.Selection) {
		u := ""
		if v, ok := tag.Attr("src"); ok {
			u = v
		} else if v, ok := tag.Attr("href"); ok {
			u = v
		}
		u = strings.TrimSpace(u)
		if u == "" || !isAudioURL(u, tag) {
			return
		}
		u = wiki.NormalizeFileURL(host, u)
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		key := wiki.DialectNear(tag)
		if key == "" {
			key = domain.DialectDefault
		}
		audio = append(audio, domain.AudioCandidate{Dialect: key, URL: u})
	})
	return ipa, audio
}

var audioExtRE = regexp.MustCompile(`(?i)\.(mp3|ogg|wav)(\b|$)`)

func isAudioURL(u string, tag *goquery.Selection) bool {
	if audioExtRE.MatchString(u) {
		return true
	}
	if strings.Contains(u, "Special:FilePath") {
		return true
	}
	if strings.Contains(u, "upload.wikimedia.org") {
		typ, _ := tag.Attr("type")
		return strings.Contains(typ, "audio")
	}
	return false
}

// parseSynonyms 取词性块下 Synonyms 小节里的词（链接优先，无链接的 li 兜底）。
func parseSynonyms(content *goquery.Selection) []string {
	var out []string
	content.Find("h3, h4, h5, h6").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if strings.ToLower(normalizeTitle(wiki.HeadingText(h))) != "synonyms" {
			return true
		}
		scope := wiki.SectionContent(h)
		scope.Find("a").Each(func(_ int, a *goquery.Selection) {
			if t := cleanText(a.Text()); t != "" {
				out = append(out, t)
			}
		})
		scope.Find("li").Each(func(_ int, li *goquery.Selection) {
			if li.Find("a").Length() > 0 {
				return
			}
			if t := cleanText(li.Text()); t != "" {
				out = append(out, t)
			}
		})
		return false
	})
	return out
}

// definitionItems 取词性块里顶层定义列表（ol）的直接 li。
// 嵌套在 li 里的列表是引文/用例，不算独立义项。
// classic 布局下内容本身就是兄弟节点，ol 可能是选集成员而非后代。
func definitionItems(content *goquery.Selection) []*goquery.Selection {
	var out []*goquery.Selection
	content.Filter("ol").AddSelection(content.Find("ol")).Each(func(_ int, ol *goquery.Selection) {
		if ol.ParentsFiltered("li").Length() > 0 {
			return
		}
		ol.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			out = append(out, li)
		})
	})
	return out
}

func extractDefinition(li *goquery.Selection) string {
	cp := li.Clone()
	cp.Find("ul, ol, dl, sup").Remove()
	return cleanText(cp.Text())
}

// extractExamples 取义项下的用例/引文：先收固定 class 的节点，
// 再收嵌套 li/dd；引文的出处前缀（年份、出版信息）截掉只留正文。
func extractExamples(li *goquery.Selection) []string {
	var out []string
	seen := map[string]struct{}{}

	add := func(node *goquery.Selection) {
		cp := node.Clone()
		cp.Find("sup, .reference, .citation").Remove()
		text := cleanText(cp.Text())
		text = strings.TrimLeft(text, "•*-–— ")
		if idx := strings.Index(text, ":"); idx > 0 && looksLikeCitationPrefix(text[:idx]) {
			text = strings.TrimSpace(text[idx+1:])
		}
		text = strings.Trim(text, " \t-–—:;")
		if text == "" {
			return
		}
		key := normExample(text)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, text)
	}

	li.Find(".quotation, .quote, .usage-example, .example, .use-with-mention, .h-usage-example").
		Each(func(_ int, node *goquery.Selection) { add(node) })
	li.Find("ul > li, dl > dd").Each(func(_ int, node *goquery.Selection) { add(node) })
	return out
}

var citationYearRE = regexp.MustCompile(`\b(1[5-9]\d{2}|20\d{2})\b`)

func looksLikeCitationPrefix(prefix string) bool {
	low := strings.ToLower(prefix)
	if citationYearRE.MatchString(low) {
		return true
	}
	for _, tok := range []string{
		"published", "chapter", "volume", "vol.", "edition",
		"press", "company", "oclc", "isbn",
	} {
		if strings.Contains(low, tok) {
			return true
		}
	}
	return false
}

var refMarkerRE = regexp.MustCompile(`\[\d+\]`)

func cleanText(s string) string {
	s = refMarkerRE.ReplaceAllString(s, "")
	return wiki.NormSpace(s)
}

var (
	titleParenRE = regexp.MustCompile(`\s*\([^)]*\)`)
	titleNumRE   = regexp.MustCompile(`\s*\d+$`)
)

// normalizeTitle 去掉标题的括注与编号（"Etymology 2"、"Noun (countable)"）。
func normalizeTitle(t string) string {
	t = titleParenRE.ReplaceAllString(t, "")
	t = titleNumRE.ReplaceAllString(t, "")
	return wiki.NormSpace(t)
}

var nonWordRE = regexp.MustCompile(`[\W_]+`)

// normExample 是用例去重键：小写、去引号、只留字母数字。
func normExample(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "", "‘", "", "’", "").Replace(s)
	return nonWordRE.ReplaceAllString(s, "")
}
