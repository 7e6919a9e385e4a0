// Package wikiru 实现 ru.wiktionary.org 的抓取与解析。
//
// 俄文词条不分词性块：义项统一挂在«Значение»小节，«Синонимы»对全部
// 义项共享；音节划分（重音标注）是该来源独有的，放进 Extra["syllables"]。
package wikiru

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/source"
	"github.com/John-Robertt/DictFetch/internal/source/wiki"
)

const (
	host    = "ru.wiktionary.org"
	baseURL = "https://ru.wiktionary.org/wiki/"

	alphabet = "абвгдеёжзийклмнопрстуфхцчшщъыьэюяabcdefghijklmnopqrstuvwxyz"

	// 音节文本超过此长度视为误取整句。
	maxSyllableRunes = 40
)

// Source 实现 source.Source。词条区分大小写。
type Source struct{}

func (Source) ID() string { return "wikiru" }

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
// 页面存在但没有«Русский»区段同样算“查无此词”。
func Parse(word string, htmlBody []byte, pageURL string) ([]domain.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(htmlBody))
	if err != nil {
		return nil, &source.FormatError{Source: "wikiru", URL: pageURL, Reason: "HTML 无法解析"}
	}
	if doc.Find("#mw-content-text, .mw-parser-output, .mw-body, body.mediawiki").Length() == 0 {
		return nil, &source.FormatError{Source: "wikiru", URL: pageURL, Reason: "页面缺少 MediaWiki 骨架"}
	}

	sec := wiki.FindLanguageSection(doc, "Русский")
	if sec.Empty() {
		return nil, nil
	}

	var entries []domain.Entry
	for _, li := range wiki.SubsectionLists(sec, "Значение") {
		blockExamples := exampleBlocks(li)
		raw := cleanText(definitionText(li))
		if raw == "" {
			continue
		}
		def, inline := splitInlineExamples(raw)
		if def == "" {
			continue
		}
		examples := blockExamples
		if len(examples) == 0 {
			examples = inline
		}
		entries = append(entries, domain.Entry{
			Word:        word,
			Definitions: []string{def},
			Examples:    examples,
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	// «Синонимы»不区分义项编号，对全部义项共享。
	for _, syn := range parseSynonyms(sec) {
		for i := range entries {
			entries[i].AddSynonym(syn)
		}
	}

	if syl := extractSyllables(sec); syl != "" {
		for i := range entries {
			if entries[i].Extra == nil {
				entries[i].Extra = map[string]string{}
			}
			entries[i].Extra["syllables"] = syl
		}
	}

	if picture := wiki.PickImage(sec); picture != "" {
		for i := range entries {
			entries[i].Images = append(entries[i].Images, picture)
		}
	}
	return entries, nil
}

// definitionText 取 li 的定义文本（去掉例句块与出处）。
func definitionText(li *goquery.Selection) string {
	cp := li.Clone()
	cp.Find(".example-fullblock, .example-block, .source, .example-details").Remove()
	return cp.Text()
}

// exampleBlocks 取 li 里的结构化例句块。出处/日期剥掉，
// 高亮的词形保留为 <b>，其余标签展开为纯文本。
func exampleBlocks(li *goquery.Selection) []string {
	var out []string
	seen := map[string]struct{}{}
	li.Find(".example-fullblock .example-block, .example-block").Each(func(_ int, block *goquery.Selection) {
		cp := block.Clone()
		cp.Find(".example-details, .citation-source, .example-date").Remove()
		if cp.Length() == 0 {
			return
		}
		rendered := tidyExample(renderExample(cp.Nodes[0]))
		if rendered == "" {
			return
		}
		key := strings.ToLower(wiki.NormSpace(tagRE.ReplaceAllString(rendered, "")))
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, rendered)
	})
	return out
}

var tagRE = regexp.MustCompile(`<[^>]+>`)

// renderExample 展开例句块：b/.example-select 保留为 <b>，br 变空格，
// 其余元素只取子内容。
func renderExample(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, root bool) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "br" {
				b.WriteString(" ")
				return
			}
			bold := !root && (n.Data == "b" || hasClass(n, "example-select"))
			if bold {
				b.WriteString("<b>")
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				walk(c, false)
			}
			if bold {
				b.WriteString("</b>")
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, false)
		}
	}
	walk(n, true)
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(a.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}

var (
	spaceBeforePunctRE = regexp.MustCompile(`\s+([,.;:!?])`)
	boldOpenSpaceRE    = regexp.MustCompile(`<b>\s+`)
	boldCloseSpaceRE   = regexp.MustCompile(`\s+</b>`)
)

func tidyExample(s string) string {
	s = wiki.NormSpace(s)
	s = spaceBeforePunctRE.ReplaceAllString(s, "$1")
	s = boldOpenSpaceRE.ReplaceAllString(s, "<b>")
	s = boldCloseSpaceRE.ReplaceAllString(s, "</b>")
	if tagRE.ReplaceAllString(s, "") == "" {
		return ""
	}
	return strings.TrimSpace(s)
}

// refMarkerRE 匹配«[1]»式引用标记（括号里允许夹杂非字母符号）。
var refMarkerRE = regexp.MustCompile(`\[\s*[^A-Za-zА-Яа-яЁё\]]*\d+[^A-Za-zА-Яа-яЁё\]]*\]`)

// cleanText 去引用标记、孤立方括号，折叠空白并吸掉标点前的空格。
func cleanText(s string) string {
	s = refMarkerRE.ReplaceAllString(s, "")
	fields := strings.Fields(strings.ReplaceAll(s, " ", " "))
	kept := fields[:0]
	for _, f := range fields {
		if f == "[" || f == "]" {
			continue
		}
		kept = append(kept, f)
	}
	s = strings.Join(kept, " ")
	return spaceBeforePunctRE.ReplaceAllString(s, "$1")
}

// splitInlineExamples 按 ◆ 拆开定义正文与行内例句。
func splitInlineExamples(raw string) (string, []string) {
	if !strings.Contains(raw, "◆") {
		return raw, nil
	}
	var parts []string
	for _, p := range strings.Split(raw, "◆") {
		if p = strings.Trim(p, " —:;"); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return raw, nil
	}
	return parts[0], parts[1:]
}

var letterRE = regexp.MustCompile(`[A-Za-zА-Яа-яЁё]`)

func parseSynonyms(sec wiki.Section) []string {
	var out []string
	for _, li := range wiki.SubsectionLists(sec, "Синонимы") {
		anchors := li.Find(".mw-reference-text a")
		if anchors.Length() == 0 {
			anchors = li.Find("a")
		}
		anchors.Each(func(_ int, a *goquery.Selection) {
			if a.ParentsFiltered(".mw-cite-backlink").Length() > 0 {
				return
			}
			t := cleanText(a.Text())
			if t == "" || t == "?" || t == "-" || t == "—" || !letterRE.MatchString(t) {
				return
			}
			out = append(out, t)
		})
	}
	return out
}

var (
	cyrillicRE    = regexp.MustCompile(`[А-Яа-я]`)
	syllableTplRE = regexp.MustCompile(`по-слогам\|([^}]+)`)
)

// extractSyllables 按优先级找音节划分：
// .hyph-dot 所在的加粗节点 → p > b 启发 → 含«·»的文本 → по-слогам 模板数据。
func extractSyllables(sec wiki.Section) string {
	contents := sec.Contents()
	if contents == nil {
		return ""
	}

	if hyph := contents.Filter(".hyph-dot").First(); hyph.Length() > 0 {
		// 只看祖先：.hyph-dot 自己就是 span，Closest 会命中自身。
		if parent := hyph.ParentsFiltered("b, strong, span").First(); parent.Length() > 0 {
			if t := wiki.NormSpace(parent.Text()); t != "" {
				return t
			}
		}
	}

	found := ""
	contents.Filter("p > b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		t := wiki.NormSpace(b.Text())
		if t == "" || strings.ContainsAny(t, "{}") {
			return true
		}
		if cyrillicRE.MatchString(t) && utf8.RuneCountInString(t) <= maxSyllableRunes {
			found = t
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	contents.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		for _, n := range node.Nodes {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type != html.TextNode {
					continue
				}
				t := wiki.NormSpace(c.Data)
				if strings.Contains(t, "·") && cyrillicRE.MatchString(t) &&
					utf8.RuneCountInString(t) <= maxSyllableRunes && !strings.ContainsAny(t, "{}") {
					found = t
					return false
				}
			}
		}
		return true
	})
	if found != "" {
		return found
	}

	contents.Filter("[data-mw]").EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		data, _ := tag.Attr("data-mw")
		m := syllableTplRE.FindStringSubmatch(data)
		if m == nil {
			return true
		}
		var parts []string
		for _, p := range strings.Split(m[1], "|") {
			if p != "" && p != "." {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			found = strings.Join(parts, "·")
			return false
		}
		return true
	})
	return found
}
