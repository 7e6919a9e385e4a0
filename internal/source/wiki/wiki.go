// Package wiki 汇集两个 Wiktionary 来源（en/ru）共享的页面结构处理：
// 语言区段定位、小节枚举、图片筛选与 Wikimedia URL 规范化。
//
// Wiktionary 同时存在两种渲染形态：Parsoid（嵌套 <section aria-labelledby>）
// 与 classic（平铺 h2/.mw-headline）。这里对两种形态都做定位，
// 解析失败一律按“未找到”处理，绝不对单个坏片段抛错。
package wiki

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// MinImageSize 以下的图片视为装饰性元素（图标等），直接丢弃。
	MinImageSize = 80
)

// 图片 URL 黑名单片段：UI 图标/站点标志，不是词条配图。
var imageBlacklist = []string{"icon", "logo", "svg", "favicon"}

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Section 是某个语言（或小节）在页面里的根。
// Parsoid 下是 <section> 元素本身；classic 下是标题元素 + 其后的兄弟节点。
type Section struct {
	root *goquery.Selection // Parsoid section；classic 时为 nil
	head *goquery.Selection // classic 布局的标题
}

func (s Section) Empty() bool { return s.root == nil && s.head == nil }

// Contents 返回区段内的全部节点（用于图片扫描等全量遍历）。
func (s Section) Contents() *goquery.Selection {
	if s.root != nil {
		return s.root.Find("*")
	}
	if s.head != nil {
		return s.head.NextUntil("h1, h2").Find("*").AddSelection(s.head.NextUntil("h1, h2"))
	}
	return nil
}

// Headings 按文档序返回区段内的小节标题（调用方自行跳过语言标题本身）。
func (s Section) Headings() []*goquery.Selection {
	var out []*goquery.Selection
	var scope *goquery.Selection
	switch {
	case s.root != nil:
		// Parsoid：标题散落在嵌套 section 里，Find 保持文档序。
		scope = s.root.Find(headingSelector)
	case s.head != nil:
		// classic：标题都是语言标题之后的兄弟节点。
		scope = s.head.NextUntil("h1, h2").Filter(headingSelector)
	default:
		return nil
	}
	scope.Each(func(_ int, h *goquery.Selection) {
		out = append(out, h)
	})
	return out
}

// FindLanguageSection 定位目标语言的区段。
// 依次尝试：Parsoid aria-labelledby → 标题 id → .mw-headline 文本/id →
// URL 转义形式的 id（ru.wiktionary 的 .D… 形式）。
func FindLanguageSection(doc *goquery.Document, language string) Section {
	langCF := strings.ToLower(language)

	var found Section
	doc.Find("section[aria-labelledby]").EachWithBreak(func(_ int, sec *goquery.Selection) bool {
		aria, _ := sec.Attr("aria-labelledby")
		if strings.Contains(strings.ToLower(decodeFragmentID(aria)), langCF) {
			found = Section{root: sec}
			return false
		}
		return true
	})
	if !found.Empty() {
		return found
	}

	head := headlineByName(doc, language)
	if head == nil {
		return Section{}
	}
	// 标题可能包在 Parsoid section 里；能找到就用 section。
	if sec := head.Closest("section"); sec.Length() > 0 {
		return Section{root: sec}
	}
	if !head.Is(headingSelector) {
		if h := head.Closest(headingSelector); h.Length() > 0 {
			head = h
		}
	}
	return Section{head: head}
}

func headlineByName(doc *goquery.Document, language string) *goquery.Selection {
	langCF := strings.ToLower(language)

	if sel := doc.Find("#" + cssEscapeID(language)); sel.Length() > 0 {
		return sel.First()
	}
	var found *goquery.Selection
	doc.Find(".mw-headline").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		id, _ := span.Attr("id")
		if strings.ToLower(strings.TrimSpace(span.Text())) == langCF ||
			strings.ToLower(decodeFragmentID(id)) == langCF {
			found = span
			return false
		}
		return true
	})
	if found != nil {
		return found
	}
	// ru.wiktionary 的旧式 id：кириллица 被转义成 ".D0.A0..." 形式。
	doc.Find("[id]").EachWithBreak(func(_ int, tag *goquery.Selection) bool {
		id, _ := tag.Attr("id")
		if !strings.HasPrefix(id, ".D") {
			return true
		}
		if strings.ToLower(decodeFragmentID(id)) == langCF {
			found = tag
			return false
		}
		return true
	})
	return found
}

// SubsectionLists 枚举区段内标题为 title 的小节里第一份列表的顶层 li。
// 同名小节可能出现多次（如多个词性块后的«Синонимы»），全部返回。
func SubsectionLists(s Section, title string) []*goquery.Selection {
	var out []*goquery.Selection
	titleCF := strings.ToLower(title)

	addList := func(scope *goquery.Selection) {
		// classic 布局下 scope 是兄弟节点选集，列表可能是成员本身。
		list := scope.Filter("ol, ul").AddSelection(scope.Find("ol, ul")).First()
		if list.Length() == 0 {
			return
		}
		list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
			out = append(out, li)
		})
	}

	if s.root != nil {
		s.root.Find("section").Each(func(_ int, sec *goquery.Selection) {
			aria, _ := sec.Attr("aria-labelledby")
			if strings.Contains(strings.ToLower(decodeFragmentID(aria)), titleCF) {
				addList(sec)
				return
			}
			head := sec.ChildrenFiltered(headingSelector).First()
			if head.Length() > 0 && strings.ToLower(HeadingText(head)) == titleCF {
				addList(sec)
			}
		})
		return out
	}
	if s.head == nil {
		return out
	}
	s.head.NextUntil("h1, h2").Filter(headingSelector).Each(func(_ int, h *goquery.Selection) {
		if strings.ToLower(HeadingText(h)) != titleCF {
			return
		}
		addList(h.NextUntil(headingSelector))
	})
	return out
}

// SectionContent 返回一个小节标题所辖的内容：
// Parsoid 下是包含该标题的 <section>（含其嵌套子小节）；
// classic 下是该标题之后、下一个标题之前的兄弟节点。
func SectionContent(h *goquery.Selection) *goquery.Selection {
	if sec := h.Closest("section"); sec.Length() > 0 {
		return sec
	}
	return h.NextUntil(headingSelector)
}

// HeadingText 取标题的展示文本（优先 .mw-headline）。
func HeadingText(h *goquery.Selection) string {
	if h == nil || h.Length() == 0 {
		return ""
	}
	if hl := h.Find(".mw-headline").First(); hl.Length() > 0 {
		return NormSpace(hl.Text())
	}
	return NormSpace(h.Text())
}

// PickImage 在区段内挑选一张有代表性的配图。
// 只接受 wikimedia 托管、非黑名单、声明尺寸 ≥ MinImageSize 的图片，
// 并把缩略图 URL 还原为原始文件 URL。找不到返回空串。
func PickImage(s Section) string {
	contents := s.Contents()
	if contents == nil {
		return ""
	}
	picked := ""
	contents.Filter("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := firstAttr(img, "src", "data-src")
		src = firstOfSrcset(src)
		if src == "" {
			return true
		}
		low := strings.ToLower(src)
		for _, bad := range imageBlacklist {
			if strings.Contains(low, bad) {
				return true
			}
		}
		if !strings.Contains(low, "wikimedia.org") {
			return true
		}
		w := intAttr(img, "data-file-width", "width")
		h := intAttr(img, "data-file-height", "height")
		if w != 0 && h != 0 && (w < MinImageSize || h < MinImageSize) {
			return true
		}
		picked = NormalizeImageURL(src)
		return false
	})
	return picked
}

// NormalizeImageURL 把 Wikimedia 缩略图 URL 还原为原始文件 URL。
// 非 Wikimedia 或非缩略图路径原样返回。
func NormalizeImageURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.Contains(u.Host, "wikimedia.org") || !strings.Contains(u.Path, "/thumb/") {
		return raw
	}
	segments := strings.Split(u.Path, "/")
	thumbIdx := -1
	for i, seg := range segments {
		if seg == "thumb" {
			thumbIdx = i
			break
		}
	}
	// /.../thumb/<hash1>/<hash2>/<FileName>/<thumb-file-name>
	if thumbIdx < 0 || len(segments)-thumbIdx < 5 {
		return raw
	}
	original := append(append([]string{}, segments[:thumbIdx]...), segments[thumbIdx+1:len(segments)-1]...)
	u.Path = strings.Join(original, "/")
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	u.RawQuery = ""
	u.Fragment = ""
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	return u.String()
}

// NormalizeFileURL 把 wiki 页面内的媒体链接規范化为可直接下载的绝对 URL。
// host 形如 "en.wiktionary.org"。
func NormalizeFileURL(host, raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "/wiki/File:"):
		name := strings.TrimPrefix(raw, "/wiki/File:")
		if dec, err := url.PathUnescape(name); err == nil {
			name = dec
		}
		return "https://" + host + "/wiki/Special:FilePath/" + url.PathEscape(name)
	case strings.HasPrefix(raw, "/"):
		return "https://" + host + raw
	default:
		return raw
	}
}

var (
	usHintRE = regexp.MustCompile(`(?i)\b(us|u\.s\.)\b|american`)
	ukHintRE = regexp.MustCompile(`(?i)\b(uk|u\.k\.)\b|british|received pronunciation`)
)

// DialectFromText 从邻近文本推断发音方言。推断不出返回空串。
func DialectFromText(text string) string {
	if usHintRE.MatchString(text) {
		return "us"
	}
	if ukHintRE.MatchString(text) {
		return "uk"
	}
	return ""
}

// DialectNear 沿父节点向上（最多 5 层）找方言提示文本。
func DialectNear(tag *goquery.Selection) string {
	cur := tag
	for i := 0; i < 5 && cur != nil && cur.Length() > 0; i++ {
		// 只看当前层的浅层文本，避免把整个区段吞进来。
		if d := DialectFromText(shallowText(cur)); d != "" {
			return d
		}
		cur = cur.Parent()
	}
	if tr := tag.Closest("tr"); tr.Length() > 0 {
		return DialectFromText(tr.Text())
	}
	return ""
}

// NormSpace 折叠空白（含 NBSP）。
func NormSpace(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}

func shallowText(sel *goquery.Selection) string {
	// 自身文本 + 直接子节点里的纯标签文本已足够承载 “(UK)” 这类提示。
	txt := sel.Clone()
	txt.Find("ul, ol, table, section").Remove()
	return txt.Text()
}

func firstAttr(sel *goquery.Selection, names ...string) string {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// firstOfSrcset 从 srcset 形态（逗号分隔、带宽度描述符）取第一个 URL。
func firstOfSrcset(v string) string {
	v = strings.TrimSpace(strings.Split(v, ",")[0])
	if v == "" {
		return ""
	}
	return strings.Fields(v)[0]
}

func intAttr(sel *goquery.Selection, names ...string) int {
	for _, n := range names {
		if v, ok := sel.Attr(n); ok {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				return i
			}
		}
	}
	return 0
}

// decodeFragmentID 解码 MediaWiki 片段 id 的 ".D0.A0" 转义形式。
func decodeFragmentID(id string) string {
	if !strings.Contains(id, ".") {
		return id
	}
	if dec, err := url.QueryUnescape(strings.ReplaceAll(id, ".", "%")); err == nil {
		return dec
	}
	return id
}

func cssEscapeID(id string) string {
	var b strings.Builder
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r > 127:
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
