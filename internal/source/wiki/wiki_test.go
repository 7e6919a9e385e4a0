package wiki

import (
	"bytes"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func TestNormalizeImageURL_ThumbRewrite(t *testing.T) {
	cases := []struct{ in, want string }{
		{
			"//upload.wikimedia.org/wikipedia/commons/thumb/a/a4/Cat.jpg/330px-Cat.jpg",
			"https://upload.wikimedia.org/wikipedia/commons/a/a4/Cat.jpg",
		},
		{
			"https://upload.wikimedia.org/wikipedia/commons/thumb/a/a4/Cat.jpg/330px-Cat.jpg?x=1",
			"https://upload.wikimedia.org/wikipedia/commons/a/a4/Cat.jpg",
		},
		// 非缩略图路径原样返回。
		{
			"https://upload.wikimedia.org/wikipedia/commons/a/a4/Cat.jpg",
			"https://upload.wikimedia.org/wikipedia/commons/a/a4/Cat.jpg",
		},
		// 段数不足的 thumb 路径不动。
		{
			"https://upload.wikimedia.org/thumb/Cat.jpg",
			"https://upload.wikimedia.org/thumb/Cat.jpg",
		},
		// 非 Wikimedia 域名不动。
		{
			"https://example.com/thumb/a/a4/Cat.jpg/330px-Cat.jpg",
			"https://example.com/thumb/a/a4/Cat.jpg/330px-Cat.jpg",
		},
	}
	for _, c := range cases {
		if got := NormalizeImageURL(c.in); got != c.want {
			t.Fatalf("NormalizeImageURL(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeFileURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"//upload.wikimedia.org/a.ogg", "https://upload.wikimedia.org/a.ogg"},
		{"/wiki/File:en-us-house.ogg", "https://en.wiktionary.org/wiki/Special:FilePath/en-us-house.ogg"},
		{"/w/extensions/audio.ogg", "https://en.wiktionary.org/w/extensions/audio.ogg"},
		{"https://other.example/a.ogg", "https://other.example/a.ogg"},
	}
	for _, c := range cases {
		if got := NormalizeFileURL("en.wiktionary.org", c.in); got != c.want {
			t.Fatalf("NormalizeFileURL(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestDialectFromText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"(UK) IPA:", "uk"},
		{"(US) enPR:", "us"},
		{"Received Pronunciation", "uk"},
		{"General American", "us"},
		{"(Canada)", ""},
		// 单词内部的 us/uk 不算提示。
		{"/haʊs/ business", ""},
	}
	for _, c := range cases {
		if got := DialectFromText(c.in); got != c.want {
			t.Fatalf("DialectFromText(%q)=%q，期望 %q", c.in, got, c.want)
		}
	}
}

func TestFindLanguageSection_EncodedID(t *testing.T) {
	// ru.wiktionary 旧式 id：кириллица 转义成 .D0… 形式。
	html := `<html><body class="mediawiki"><div id="mw-content-text">
<h1><span class="mw-headline" id=".D0.A0.D1.83.D1.81.D1.81.D0.BA.D0.B8.D0.B9">Ру́сский</span></h1>
<p>содержимое</p>
</div></body></html>`
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatalf("解析失败：%v", err)
	}
	sec := FindLanguageSection(doc, "Русский")
	if sec.Empty() {
		t.Fatal("应通过 .D… 转义 id 命中语言区段")
	}
}

func TestPickImage_BlacklistAndSize(t *testing.T) {
	html := `<html><body><section aria-labelledby="X"><h2 id="X">X</h2>
<img src="//upload.wikimedia.org/logo.png" data-file-width="500" data-file-height="500">
<img src="//upload.wikimedia.org/tiny.jpg" data-file-width="40" data-file-height="40">
<img src="https://example.com/big.jpg" data-file-width="900" data-file-height="900">
<img src="//upload.wikimedia.org/wikipedia/commons/thumb/a/a4/Cat.jpg/330px-Cat.jpg" data-file-width="900" data-file-height="900">
</section></body></html>`
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatalf("解析失败：%v", err)
	}
	sec := FindLanguageSection(doc, "X")
	if sec.Empty() {
		t.Fatal("区段定位失败")
	}
	want := "https://upload.wikimedia.org/wikipedia/commons/a/a4/Cat.jpg"
	if got := PickImage(sec); got != want {
		t.Fatalf("应跳过黑名单/过小/非 wikimedia 图片并还原缩略图：%q", got)
	}
}

func TestDecodeFragmentID(t *testing.T) {
	if got := decodeFragmentID(".D0.A0.D1.83.D1.81.D1.81.D0.BA.D0.B8.D0.B9"); got != "Русский" {
		t.Fatalf("decodeFragmentID 不符：%q", got)
	}
	if got := decodeFragmentID("English"); got != "English" {
		t.Fatalf("无转义的 id 应原样返回：%q", got)
	}
}
