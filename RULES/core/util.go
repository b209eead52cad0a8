package core

import (
	"bytes"
	"sort"
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

// CompileTemplate compiles a go text template, executes it, and returns the result as a string.
func CompileTemplate(tmpl, name string, data interface{}) (string, error) {
	t, err := template.New(name).Funcs(template.FuncMap{
		"hasSuffix": strings.HasSuffix,
		"join":      strings.Join,
	}).Parse(tmpl)
	if err != nil {
		return "", errors.Wrapf(err, "cannot parse template %s", name)
	}

	var buff bytes.Buffer
	if err := t.Execute(&buff, data); err != nil {
		return "", errors.Wrapf(err, "cannot execute template %s", name)
	}
	return buff.String(), nil
}

// SortedKeys returns the keys of a string map in sorted order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
