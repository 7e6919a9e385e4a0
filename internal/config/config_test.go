package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadEffective_DefaultsWithoutFile(t *testing.T) {
	cwd := t.TempDir()

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("缺省配置文件不是错误：%v", err)
	}
	if eff.Source != DefaultSource || eff.ImageProvider != DefaultImageProvider {
		t.Fatalf("默认值不符：%+v", eff)
	}
	if !eff.SuggestionsEnabled || eff.MaxConfirmed != DefaultMaxConfirmed {
		t.Fatalf("建议默认应开启、上限默认 %d：%+v", DefaultMaxConfirmed, eff)
	}
	if eff.ImageMaxResults != DefaultImageMaxResults || !eff.SafeSearch {
		t.Fatalf("图片搜索默认值不符：%+v", eff)
	}
	if want := []string{"uk", "us"}; !reflect.DeepEqual(eff.DialectPriority, want) {
		t.Fatalf("方言优先级默认值不符：%v", eff.DialectPriority)
	}
}

func TestLoadEffective_ExplicitConfigMustExist(t *testing.T) {
	cwd := t.TempDir()

	_, err := LoadEffective(cwd, CLIArgs{ConfigPath: "nope.json"})
	if Code(err) != ErrCodeNotFound {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeNotFound, err, Code(err))
	}
}

func TestLoadEffective_SourceMergeOrder(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"source":"wikiru"}`))

	// CLI 未指定 source，则应使用配置文件的值。
	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.Source != "wikiru" {
		t.Fatalf("期望 source=wikiru，实际=%q", eff.Source)
	}

	// CLI 显式指定，则覆盖配置文件（大小写折叠）。
	eff2, err := LoadEffective(cwd, CLIArgs{Source: " WikiEN ", SourceSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff2.Source != "wikien" {
		t.Fatalf("期望 source=wikien，实际=%q", eff2.Source)
	}
}

func TestLoadEffective_SuggestCLIOverride(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName),
		[]byte(`{"suggestions":{"enabled":true,"max_confirmed":100}}`))

	eff, err := LoadEffective(cwd, CLIArgs{Suggest: false, SuggestSet: true})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.SuggestionsEnabled {
		t.Fatal("-suggest=false 必须覆盖配置文件的 true")
	}
	if eff.MaxConfirmed != 20 {
		t.Fatalf("max_confirmed 应截断到 [1,20]，实际=%d", eff.MaxConfirmed)
	}
}

func TestLoadEffective_ImageClampAndSafeSearch(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName),
		[]byte(`{"image_search":{"provider":"wikimedia","max_results":500,"safe_search":false}}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if eff.ImageProvider != "wikimedia" || eff.SafeSearch {
		t.Fatalf("image_search 合并不符：%+v", eff)
	}
	if eff.ImageMaxResults != 50 {
		t.Fatalf("max_results 应截断到 [1,50]，实际=%d", eff.ImageMaxResults)
	}
}

func TestLoadEffective_PixabayRequiresAPIKey(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName),
		[]byte(`{"image_search":{"provider":"pixabay"}}`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("pixabay 无 api_key 必须在加载阶段失败：err=%v (code=%q)", err, Code(err))
	}

	writeFile(t, filepath.Join(cwd, FileName),
		[]byte(`{"image_search":{"provider":"pixabay","api_key":"k"}}`))
	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil || eff.APIKey != "k" {
		t.Fatalf("带 key 的 pixabay 应通过：%+v err=%v", eff, err)
	}
}

func TestLoadEffective_UnknownSourceOrProvider(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"source":"webster"}`))
	if _, err := LoadEffective(cwd, CLIArgs{}); Code(err) != ErrCodeInvalid {
		t.Fatalf("未知 source 必须报 %q：%v", ErrCodeInvalid, err)
	}

	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"image_search":{"provider":"bing"}}`))
	if _, err := LoadEffective(cwd, CLIArgs{}); Code(err) != ErrCodeInvalid {
		t.Fatalf("未知 provider 必须报 %q：%v", ErrCodeInvalid, err)
	}
}

func TestLoadEffective_FieldMapForms(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{
  "field_map": {"word": "Front, Back", "definition": ["Meaning"]},
  "wiktionary": {"field_map": {"syllables": "Syllables"}}
}`))

	eff, err := LoadEffective(cwd, CLIArgs{})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if want := []string{"Front", "Back"}; !reflect.DeepEqual([]string(eff.FieldMap["word"]), want) {
		t.Fatalf("字符串形态应按逗号拆分并去空白：%v", eff.FieldMap["word"])
	}
	if want := []string{"Meaning"}; !reflect.DeepEqual([]string(eff.FieldMap["definition"]), want) {
		t.Fatalf("列表形态不符：%v", eff.FieldMap["definition"])
	}

	// 覆盖层只对 wiki 来源生效。
	if _, ok := eff.FieldMapFor("cambridge")["syllables"]; ok {
		t.Fatal("wiktionary 覆盖层不得作用于 cambridge")
	}
	if got := eff.FieldMapFor("wikiru")["syllables"]; len(got) != 1 || got[0] != "Syllables" {
		t.Fatalf("wiki 来源应叠加覆盖层：%v", got)
	}
}

func TestLoadEffective_FieldMapEmptySlots(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"field_map":{"word":" , "}}`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("规范化后没有任何槽位必须报错：err=%v (code=%q)", err, Code(err))
	}
}

func TestLoadEffective_InvalidProxyURL(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{"proxy":{"url":"not a url"}}`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func TestLoadEffective_InvalidJSON(t *testing.T) {
	cwd := t.TempDir()
	writeFile(t, filepath.Join(cwd, FileName), []byte(`{`))

	_, err := LoadEffective(cwd, CLIArgs{})
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("期望 %q，实际 err=%v (code=%q)", ErrCodeInvalid, err, Code(err))
	}
}

func writeFile(t *testing.T, path string, b []byte) {
	t.Helper()
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("写入文件失败 %q：%v", path, err)
	}
}
