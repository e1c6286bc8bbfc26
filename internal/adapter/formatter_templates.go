package adapter

import (
	"embed"
	"strings"
	"sync"
	"text/template"

	"github.com/kapu/nyaay-triage-go/internal/domain"
	"github.com/kapu/nyaay-triage-go/internal/util"
)

//go:embed templates/*.tmpl
var formatterTemplateFS embed.FS

var (
	formatterTemplates *template.Template
	formatterOnce      sync.Once
	formatterErr       error
)

func executeFormatterTemplate(name string, data any) (string, error) {
	formatterOnce.Do(func() {
		funcMap := template.FuncMap{
			"add":      func(a, b int) int { return a + b },
			"cell":     cell,
			"truncate": util.TruncateString,
		}
		tmpl := template.New("formatter").Funcs(funcMap)
		formatterTemplates, formatterErr = tmpl.ParseFS(formatterTemplateFS, "templates/*.tmpl")
	})

	if formatterErr != nil {
		return "", formatterErr
	}

	var builder strings.Builder
	if err := formatterTemplates.ExecuteTemplate(&builder, name, data); err != nil {
		return "", err
	}

	return strings.TrimRight(builder.String(), "\n"), nil
}

func cell(record domain.ProviderRecord, column string) string {
	if v, ok := record.Text(column); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return "-"
}
