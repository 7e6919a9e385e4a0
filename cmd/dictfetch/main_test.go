package main

import "testing"

func TestParseArgs_FlagForms(t *testing.T) {
	ca, err := parseArgs([]string{"house", "--source=wikien", "--suggest=false", "--fields"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca.Word != "house" || ca.Source != "wikien" || !ca.SourceSet {
		t.Fatalf("解析不符：%+v", ca)
	}
	if ca.Suggest || !ca.SuggestSet || !ca.Fields {
		t.Fatalf("布尔参数解析不符：%+v", ca)
	}

	ca2, err := parseArgs([]string{"--provider", "pixabay", "--max", "7", "кошка"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ca2.Word != "кошка" || ca2.Provider != "pixabay" || ca2.Max != 7 || !ca2.MaxSet {
		t.Fatalf("分离值形态解析不符：%+v", ca2)
	}
}

func TestParseArgs_Errors(t *testing.T) {
	cases := [][]string{
		{},                          // 缺少查询词
		{"a", "b"},                  // 重复查询词
		{"w", "--max", "x"},         // 非整数
		{"w", "--suggest=maybe"},    // 非布尔
		{"w", "--nope"},             // 未知参数
		{"w", "--source"},           // 缺少值
	}
	for _, args := range cases {
		if _, err := parseArgs(args); err == nil {
			t.Fatalf("参数 %v 应报错", args)
		}
	}
}
