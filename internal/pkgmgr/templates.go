package pkgmgr

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/alessio/shellescape"
)

// 操作名，同时作为模板名
const (
	opIsInstalled = "is_installed"
	opInstall     = "install"
	opRemove      = "remove"
	opUpdate      = "update"
	opUpgrade     = "upgrade"
	opSearch      = "search"
)

// Templates 一个后端的命令模板集合，空字符串表示后端不支持该操作
//
// 模板中可以使用 {{ .Package }} 以及 sprig 函数和 shellQuote。
type Templates struct {
	IsInstalled string
	Install     string
	Remove      string
	Update      string
	Upgrade     string
	Search      string
}

// commandData 模板渲染数据
type commandData struct {
	Package string
}

func funcMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["shellQuote"] = shellescape.Quote
	return funcs
}

// compile 编译模板集合，跳过空模板
func (t Templates) compile(backend string) (map[string]*template.Template, error) {
	sources := map[string]string{
		opIsInstalled: t.IsInstalled,
		opInstall:     t.Install,
		opRemove:      t.Remove,
		opUpdate:      t.Update,
		opUpgrade:     t.Upgrade,
		opSearch:      t.Search,
	}

	compiled := make(map[string]*template.Template, len(sources))
	for op, source := range sources {
		if source == "" {
			continue
		}
		tmpl, err := template.New(backend + "/" + op).Funcs(funcMap()).Option("missingkey=error").Parse(source)
		if err != nil {
			return nil, fmt.Errorf("解析 %s 的 %s 模板失败: %w", backend, op, err)
		}
		compiled[op] = tmpl
	}

	return compiled, nil
}

// mustCompile 用于包内固定模板
func (t Templates) mustCompile(backend string) map[string]*template.Template {
	compiled, err := t.compile(backend)
	if err != nil {
		panic(err)
	}
	return compiled
}

// renderTemplate 渲染模板为命令字符串
func renderTemplate(tmpl *template.Template, pkg string) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, commandData{Package: pkg}); err != nil {
		return "", fmt.Errorf("渲染模板 %s 失败: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
