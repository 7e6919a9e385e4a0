// Package cambridge 实现商业词典（dictionary.cambridge.org）的抓取与解析。
//
// 该站点的页面结构无文档且经常变化，音频/图片分散在多个 DOM 位置，
// 因此这里的选择器全部按“固定优先级逐个尝试”，单个坏片段只跳过不报错。
package cambridge

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
)

const (
	baseURL = "https://dictionary.cambridge.org/dictionary/english/"
	// AMP 变体有时带有主页面缺失的显式媒体链接；
	// 仅当主页面完全没有音频时才作为兜底来源（主页面数据权威）。
	ampURL = "https://dictionary.cambridge.org/amp/english/"

	alphabet = "abcdefghijklmnopqrstuvwxyz"
)

var pageHeader = map[string]string{
	"Accept-Language": "en-US,en;q=0.9",
}

// Source 实现 source.Source。查询不区分大小写（站点按小写词条组织）。
type Source struct{}

func (Source) ID() string { return "cambridge" }

func (Source) Normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func (Source) Alphabet() string { return alphabet }

// Lookup 抓取词条页并解析；主页面有词条但全程无音频时，再抓 AMP 变体
// 并把其中的音频/图片并入（AMP 失败不影响主结果）。
func (s Source) Lookup(ctx context.Context, word string, c *http.Client) ([]domain.Entry, error) {
	u := pageURL(baseURL, word)
	body, status, err := source.GetPage(ctx, c, u, pageHeader)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status < 200 || status >= 300 {
		return nil, &source.FetchError{URL: u, StatusCode: status}
	}

	entries, err := Parse(word, body, u)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 || hasAudio(entries) {
		return entries, nil
	}

	ampU := pageURL(ampURL, word)
	ampBody, ampStatus, ampErr := source.GetPage(ctx, c, ampU, pageHeader)
	if ampErr != nil || ampStatus < 200 || ampStatus >= 300 {
		return entries, nil
	}
	if ampEntries, perr := Parse(word, ampBody, ampU); perr == nil {
		mergeMedia(entries, ampEntries)
	}
	return entries, nil
}

// Parse 把词条页 HTML 解析为 Entry 列表。纯函数。
//
// 返回空列表 + nil 表示“页面可识别但查无此词”；
// 页面完全不是词典页（错误页/验证页）返回 *source.FormatError。
func Parse(word string, html []byte, pageURL string) ([]domain.Entry, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &source.FormatError{Source: "cambridge", URL: pageURL, Reason: "HTML 无法解析"}
	}

	var entries []domain.Entry
	doc.Find("div.entry").Each(func(_ int, entry *goquery.Selection) {
		entries = append(entries, parseEntry(word, entry, pageURL)...)
	})
	if len(entries) > 0 {
		return entries, nil
	}

	// 零词条时必须区分“查无此词”与“根本不是词典页”。
	if !looksLikeDictionaryPage(doc) {
		return nil, &source.FormatError{Source: "cambridge", URL: pageURL, Reason: "页面缺少词典骨架（疑似错误页/验证页）"}
	}
	return nil, nil
}

func looksLikeDictionaryPage(doc *goquery.Document) bool {
	if doc.Find("div.entry, div.di-body, .search_results, form.search-form, div.dictionary").Length() > 0 {
		return true
	}
	if href, ok := doc.Find("link[rel='canonical']").Attr("href"); ok &&
		strings.Contains(href, "dictionary.cambridge.org") {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Find("title").Text()), "cambridge")
}

func parseEntry(word string, entry *goquery.Selection, pageURL string) []domain.Entry {
	pos := text(entry.Find("span.pos.dpos").First())
	ipa := parseIPA(entry)
	audio := parseAudio(entry, pageURL)
	picture := parsePicture(entry, pageURL)

	var out []domain.Entry
	entry.Find("div.def-block").Each(func(_ int, block *goquery.Selection) {
		// 单个坏 def-block（无定义文本）只跳过，不中断同页其余义项。
		definition := firstText(block,
			"div.def.ddef_d.db", "div.def.ddef_d", "div.def")
		if definition == "" {
			return
		}
		e := domain.Entry{
			Word:         word,
			PartOfSpeech: pos,
			Definitions:  []string{definition},
			Examples:     parseExamples(block),
		}
		for _, syn := range parseSynonyms(block) {
			e.AddSynonym(syn)
		}
		if len(ipa) > 0 {
			e.IPA = make(map[string]string, len(ipa))
			for k, v := range ipa {
				e.IPA[k] = v
			}
		}
		for _, a := range audio {
			e.AddAudio(a.Dialect, a.URL)
		}
		if picture != "" {
			e.Images = append(e.Images, picture)
		}
		out = append(out, e)
	})
	return out
}

// exampleSelectors 按优先级排列；站点改版时通常只有前几个失效。
var exampleSelectors = []string{
	".eg", ".deg", ".examp", ".dexamp",
	"span.eg", "span.deg",
	".example", ".dexample", "li.example",
}

var exampleClassRE = regexp.MustCompile(`(?i)(^|\s)(eg|deg|example|examp|dexamp)(\s|$)`)

func parseExamples(block *goquery.Selection) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(s string) {
		s = text2(s)
		if s == "" {
			return
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	for _, sel := range exampleSelectors {
		block.Find(sel).Each(func(_ int, ex *goquery.Selection) {
			add(ex.Text())
		})
	}
	if len(out) > 0 {
		return out
	}
	// 更宽的兜底：class 里含 eg/example 字样的任何元素。
	block.Find("[class]").Each(func(_ int, ex *goquery.Selection) {
		cls, _ := ex.Attr("class")
		if exampleClassRE.MatchString(cls) {
			add(ex.Text())
		}
	})
	return out
}

func parseSynonyms(block *goquery.Selection) []string {
	var out []string
	block.Find("div.thesref a, div.daccord a, div.daccordLink a, .synonyms a, .daccord-h a").
		Each(func(_ int, a *goquery.Selection) {
			if t := text(a); t != "" {
				out = append(out, t)
			}
		})
	return out
}

func parseIPA(entry *goquery.Selection) map[string]string {
	out := make(map[string]string)
	entry.Find(".dpron-i, .pron-info").Each(func(_ int, blk *goquery.Selection) {
		ipa := text(blk.Find(".ipa").First())
		if ipa == "" {
			return
		}
		key := dialectOf(blk, blk)
		if key == "" {
			key = domain.DialectDefault
		}
		if _, dup := out[key]; !dup {
			out[key] = ipa
		}
	})
	if len(out) > 0 {
		return out
	}
	// 改版兜底：孤立的 .ipa 节点。
	entry.Find(".ipa").Each(func(_ int, node *goquery.Selection) {
		ipa := text(node)
		if ipa == "" {
			return
		}
		key := dialectOf(node, node)
		if key == "" {
			key = domain.DialectDefault
		}
		if _, dup := out[key]; !dup {
			out[key] = ipa
		}
	})
	return out
}

// audioAttrs 是音频 URL 的固定属性优先级。
var audioAttrs = []string{"data-src-mp3", "data-src-ogg", "src", "href"}

var audioURLRE = regexp.MustCompile(`(?i)\.(mp3|ogg)(\b|$)`)

// parseAudio 汇集多个 DOM 位置的发音音频（站点在不同版式下用过所有这些）。
// 顺序即发现顺序；方言推断失败的候选落 default 桶，保留不丢。
func parseAudio(entry *goquery.Selection, base string) []domain.AudioCandidate {
	var out []domain.AudioCandidate
	seen := make(map[string]struct{})

	entry.Find("[data-src-mp3], [data-src-ogg], source[src], audio[src], a[href*='/media/'], amp-audio source[src]").
		Each(func(_ int, tag *goquery.Selection) {
			u := ""
			for _, attr := range audioAttrs {
				if v, ok := tag.Attr(attr); ok && strings.TrimSpace(v) != "" {
					u = strings.TrimSpace(v)
					break
				}
			}
			if u == "" {
				return
			}
			if !audioURLRE.MatchString(u) && !strings.Contains(u, "/media/") {
				return
			}
			u = resolveURL(base, u)
			if _, dup := seen[u]; dup {
				return
			}
			seen[u] = struct{}{}
			d := dialectOf(tag, tag)
			if d == "" {
				d = domain.DialectDefault
			}
			out = append(out, domain.AudioCandidate{Dialect: d, URL: u})
		})
	return out
}

var imageExtRE = regexp.MustCompile(`(?i)\.(jpg|jpeg|png|gif|webp)(\b|$)`)

// parsePicture 取词条配图。纯 URL 字面启发：路径必须落在站点的
// 内容媒体目录（/media/），否则当作 UI 图标丢弃。
func parsePicture(entry *goquery.Selection, base string) string {
	picked := ""
	entry.Find("img, source, picture source").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := ""
		for _, attr := range []string{"data-src", "srcset", "src"} {
			if v, ok := img.Attr(attr); ok && strings.TrimSpace(v) != "" {
				src = strings.TrimSpace(v)
				break
			}
		}
		if src == "" {
			return true
		}
		// srcset 可能含多个候选：取第一个。
		src = strings.TrimSpace(strings.Split(src, ",")[0])
		if src == "" {
			return true
		}
		src = strings.Fields(src)[0]
		if !imageExtRE.MatchString(src) || !strings.Contains(src, "/media/") {
			return true
		}
		picked = resolveURL(base, src)
		return false
	})
	if picked != "" {
		return picked
	}
	if amp := entry.Find("amp-img").First(); amp.Length() > 0 {
		for _, attr := range []string{"data-src", "src"} {
			if v, ok := amp.Attr(attr); ok && strings.TrimSpace(v) != "" {
				return resolveURL(base, strings.TrimSpace(v))
			}
		}
	}
	return ""
}

// dialectOf 从标签邻域推断方言：先沿父链（最多 5 层）找 .region/.dregion
// 标注，再看自身 class 提示。推断不出返回空串。
func dialectOf(tag, start *goquery.Selection) string {
	cur := start
	for i := 0; i < 5 && cur != nil && cur.Length() > 0; i++ {
		if region := cur.Find(".region, .dregion").First(); region.Length() > 0 {
			t := strings.ToLower(text(region))
			if strings.Contains(t, "us") {
				return "us"
			}
			if strings.Contains(t, "uk") {
				return "uk"
			}
		}
		cur = cur.Parent()
	}
	cls, _ := tag.Attr("class")
	cls = strings.ToLower(cls)
	if strings.Contains(cls, "us") {
		return "us"
	}
	if strings.Contains(cls, "uk") {
		return "uk"
	}
	return ""
}

func hasAudio(entries []domain.Entry) bool {
	for _, e := range entries {
		if len(e.Audio) > 0 {
			return true
		}
	}
	return false
}

// mergeMedia 把 AMP 变体解析结果里的音频/图片按索引并入主结果。
// 只补缺，不覆盖（主页面数据权威）。
func mergeMedia(primary, amp []domain.Entry) {
	for i := range primary {
		if i >= len(amp) {
			break
		}
		if len(primary[i].Audio) == 0 {
			for _, a := range amp[i].Audio {
				primary[i].AddAudio(a.Dialect, a.URL)
			}
		}
		if len(primary[i].Images) == 0 {
			primary[i].Images = append(primary[i].Images, amp[i].Images...)
		}
	}
}

func pageURL(base, word string) string {
	w := strings.ReplaceAll(strings.TrimSpace(word), " ", "-")
	return base + url.PathEscape(w)
}

func resolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	bu, err := url.Parse(base)
	if err != nil {
		return href
	}
	ru, err := url.Parse(href)
	if err != nil {
		return href
	}
	return bu.ResolveReference(ru).String()
}

func text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return text2(sel.Text())
}

func text2(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

func firstText(scope *goquery.Selection, selectors ...string) string {
	for _, sel := range selectors {
		if t := text(scope.Find(sel).First()); t != "" {
			return t
		}
	}
	return ""
}
