// Package template renders prompt templates with {{name}} placeholders.
// Rendering is a pure string operation; it never touches storage.
package template

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// MissingParamError reports placeholders the caller did not supply a value for.
type MissingParamError struct {
	Params []string
}

func (e *MissingParamError) Error() string {
	return fmt.Sprintf("missing template parameters: %s", strings.Join(e.Params, ", "))
}

// Render substitutes {{name}} placeholders in tmpl with values from params.
// Every placeholder in the template must have a value; otherwise a
// *MissingParamError listing the absent names is returned.
func Render(tmpl string, params map[string]string) (string, error) {
	var missing []string
	for _, name := range Placeholders(tmpl) {
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", &MissingParamError{Params: missing}
	}

	result := placeholderPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := match[2 : len(match)-2]
		return params[name]
	})
	return result, nil
}

// Placeholders returns the distinct placeholder names in tmpl, in order of
// first appearance.
func Placeholders(tmpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	seen := make(map[string]bool)
	var names []string
	for _, m := range matches {
		if !seen[m[1]] {
			names = append(names, m[1])
			seen[m[1]] = true
		}
	}
	return names
}
