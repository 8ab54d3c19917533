package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/JailtonJunior94/pointkit/pkg/point"
)

var placeholder = regexp.MustCompile(`\{([^{}]*)\}`)

func validateTemplate(tmpl string) error {
	for _, m := range placeholder.FindAllStringSubmatch(tmpl, -1) {
		switch name := m[1]; {
		case name == "point", name == "remote":
		case strings.HasPrefix(name, "arg.") && len(name) > len("arg."):
		default:
			return fmt.Errorf("unknown placeholder {%s}", name)
		}
	}
	return nil
}

// renderSpanName fills the placeholders of tmpl from pc. {remote} falls back
// to the point name; unresolvable arguments render empty.
func renderSpanName(tmpl string, pc point.Context) string {
	if tmpl == "" {
		tmpl = "{point}"
	}

	out := placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		name := m[1 : len(m)-1]
		switch {
		case name == "point":
			return pc.Name()
		case name == "remote":
			if remote, ok := pc.Reuse(point.ReuseRemoteName); ok {
				if s, ok := remote.(string); ok && s != "" {
					return s
				}
			}
			return pc.Name()
		case strings.HasPrefix(name, "arg."):
			arg, path := splitPath(strings.TrimPrefix(name, "arg."))
			v, ok := pc.Arg(arg)
			if !ok {
				return ""
			}
			resolved, err := resolve(v, path)
			if err != nil || resolved == nil {
				return ""
			}
			return fmt.Sprint(resolved)
		default:
			return m
		}
	})

	if out = strings.TrimSpace(out); out == "" {
		return pc.Name()
	}
	return out
}
