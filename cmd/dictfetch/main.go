package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/John-Robertt/DictFetch/internal/config"
	"github.com/John-Robertt/DictFetch/internal/domain"
	"github.com/John-Robertt/DictFetch/internal/imagesearch"
	"github.com/John-Robertt/DictFetch/internal/imagesearch/duckduckgo"
	"github.com/John-Robertt/DictFetch/internal/imagesearch/pixabay"
	"github.com/John-Robertt/DictFetch/internal/imagesearch/wikimedia"
	"github.com/John-Robertt/DictFetch/internal/infra/httpx"
	"github.com/John-Robertt/DictFetch/internal/resolve"
	"github.com/John-Robertt/DictFetch/internal/source"
	"github.com/John-Robertt/DictFetch/internal/source/cambridge"
	"github.com/John-Robertt/DictFetch/internal/source/wikien"
	"github.com/John-Robertt/DictFetch/internal/source/wikiru"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "lookup":
		if code := lookupCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "images":
		if code := imagesCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

type cliArgs struct {
	Word string

	ConfigPath string

	Source    string
	SourceSet bool

	Provider    string
	ProviderSet bool

	Max    int
	MaxSet bool

	Suggest    bool
	SuggestSet bool

	Fields bool
}

func parseArgs(args []string) (cliArgs, error) {
	ca := cliArgs{}

	takeValue := func(i *int, name string) (string, error) {
		if *i+1 >= len(args) {
			return "", fmt.Errorf("%s 需要一个值", name)
		}
		*i++
		return args[*i], nil
	}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--config":
			v, err := takeValue(&i, "--config")
			if err != nil {
				return cliArgs{}, err
			}
			ca.ConfigPath = v
		case strings.HasPrefix(a, "--config="):
			ca.ConfigPath = strings.TrimPrefix(a, "--config=")
		case a == "--source":
			v, err := takeValue(&i, "--source")
			if err != nil {
				return cliArgs{}, err
			}
			ca.Source = v
			ca.SourceSet = true
		case strings.HasPrefix(a, "--source="):
			ca.Source = strings.TrimPrefix(a, "--source=")
			ca.SourceSet = true
		case a == "--provider":
			v, err := takeValue(&i, "--provider")
			if err != nil {
				return cliArgs{}, err
			}
			ca.Provider = v
			ca.ProviderSet = true
		case strings.HasPrefix(a, "--provider="):
			ca.Provider = strings.TrimPrefix(a, "--provider=")
			ca.ProviderSet = true
		case a == "--max":
			v, err := takeValue(&i, "--max")
			if err != nil {
				return cliArgs{}, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return cliArgs{}, fmt.Errorf("--max 必须是整数，实际是 %q", v)
			}
			ca.Max = n
			ca.MaxSet = true
		case strings.HasPrefix(a, "--max="):
			v := strings.TrimPrefix(a, "--max=")
			n, err := strconv.Atoi(v)
			if err != nil {
				return cliArgs{}, fmt.Errorf("--max 必须是整数，实际是 %q", v)
			}
			ca.Max = n
			ca.MaxSet = true
		case a == "--suggest":
			ca.Suggest = true
			ca.SuggestSet = true
		case strings.HasPrefix(a, "--suggest="):
			switch v := strings.TrimPrefix(a, "--suggest="); v {
			case "true":
				ca.Suggest = true
			case "false":
				ca.Suggest = false
			default:
				return cliArgs{}, fmt.Errorf("--suggest 只能是 true 或 false，实际是 %q", v)
			}
			ca.SuggestSet = true
		case a == "--fields":
			ca.Fields = true
		case strings.HasPrefix(a, "-"):
			return cliArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ca.Word != "" {
				return cliArgs{}, fmt.Errorf("重复的查询词：%q 与 %q", ca.Word, a)
			}
			ca.Word = a
		}
	}

	if strings.TrimSpace(ca.Word) == "" {
		return cliArgs{}, fmt.Errorf("缺少查询词")
	}
	return ca, nil
}

func loadConfig(ca cliArgs) (config.EffectiveConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.EffectiveConfig{}, err
	}
	return config.LoadEffective(cwd, config.CLIArgs{
		ConfigPath:    ca.ConfigPath,
		Source:        ca.Source,
		SourceSet:     ca.SourceSet,
		Provider:      ca.Provider,
		ProviderSet:   ca.ProviderSet,
		MaxResults:    ca.Max,
		MaxResultsSet: ca.MaxSet,
		Suggest:       ca.Suggest,
		SuggestSet:    ca.SuggestSet,
	})
}

// lookupOutput 是 lookup 的 stdout JSON：Result 外加可选的字段映射。
type lookupOutput struct {
	resolve.Result
	Fields map[string]string `json:"fields,omitempty"`
}

func lookupCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printLookupUsage()
			return 0
		}
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printLookupUsage()
		return 2
	}

	eff, err := loadConfig(ca)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	client, err := httpx.NewClient(eff.ProxyURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 HTTP client 失败：%v\n", err)
		return 1
	}

	reg, err := source.NewRegistry(cambridge.Source{}, wikien.Source{}, wikiru.Source{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 source registry 失败：%v\n", err)
		return 1
	}

	res, err := resolve.Resolve(context.Background(), ca.Word, eff.Source, reg, client, resolve.Options{
		SuggestionsEnabled: eff.SuggestionsEnabled,
		MaxConfirmed:       eff.MaxConfirmed,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	out := lookupOutput{Result: res}
	if ca.Fields && res.Found() {
		out.Fields = domain.Assign(res.Entries[0], eff.FieldMapFor(eff.Source), eff.DialectPriority)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}

func imagesCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printImagesUsage()
			return 0
		}
	}

	ca, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printImagesUsage()
		return 2
	}

	eff, err := loadConfig(ca)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	client, err := httpx.NewClient(eff.ProxyURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 HTTP client 失败：%v\n", err)
		return 1
	}

	reg, err := imagesearch.NewRegistry(
		duckduckgo.Provider{},
		wikimedia.Provider{},
		pixabay.Provider{},
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化 provider registry 失败：%v\n", err)
		return 1
	}
	p, ok := reg.Get(eff.ImageProvider)
	if !ok {
		fmt.Fprintf(os.Stderr, "未知 provider：%q（可用：%s）\n", eff.ImageProvider, strings.Join(reg.IDs(), "、"))
		return 1
	}

	results, err := p.Search(context.Background(), ca.Word, imagesearch.Options{
		MaxResults: eff.ImageMaxResults,
		SafeSearch: eff.SafeSearch,
		APIKey:     eff.APIKey,
	}, client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	if results == nil {
		results = []domain.ImageResult{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		fmt.Fprintf(os.Stderr, "输出失败：%v\n", err)
		return 1
	}
	return 0
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  dictfetch lookup <word> [--source cambridge|wikien|wikiru] [--suggest[=true|false]] [--fields] [--config 路径]
  dictfetch images <word> [--provider duckduckgo|wikimedia|pixabay] [--max N] [--config 路径]

命令：
  lookup   查词（未命中时给出经来源确认的拼写建议）
  images   搜索配图（单一引擎，绝不静默切换）

使用 "dictfetch <命令> --help" 查看详细说明。
`)
}

func printLookupUsage() {
	fmt.Fprint(os.Stdout, `用法：
  dictfetch lookup <word> [--source cambridge|wikien|wikiru] [--suggest[=true|false]] [--fields] [--config 路径]

参数：
  --source    词典来源（未指定则读配置文件；最终默认 cambridge）
  --suggest   未命中时是否生成拼写建议（默认 true）；--suggest=false 覆盖配置
  --fields    在输出中附带按 field_map 映射的字段赋值（取首个词条）
  --config    指定配置文件路径（默认读 cwd 下的 dictfetch.json，可缺省）
  -h, --help  显示帮助
`)
}

func printImagesUsage() {
	fmt.Fprint(os.Stdout, `用法：
  dictfetch images <word> [--provider duckduckgo|wikimedia|pixabay] [--max N] [--config 路径]

参数：
  --provider  图片引擎（未指定则读配置文件；最终默认 duckduckgo）
  --max       结果数量上限（截断到 [1,50]）
  --config    指定配置文件路径
  -h, --help  显示帮助
`)
}
