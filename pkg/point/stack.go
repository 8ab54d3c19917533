package point

import (
	"fmt"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

const (
	DefaultStackOffset   = 0
	DefaultStackWindow   = 5
	DefaultStackMaxDepth = 32
)

// alwaysSkipped are frames that never describe application code.
var alwaysSkipped = []string{
	"github.com/JailtonJunior94/pointkit/pkg/point.",
	"runtime.",
	"reflect.",
}

// StackConfig bounds the call-stack snapshot. Offset frames are dropped
// after filtering, at most Window frames are kept, and no more than
// MaxDepth raw frames are ever inspected.
type StackConfig struct {
	Offset         int
	Window         int
	MaxDepth       int
	IgnoreFuncs    []string
	IgnorePackages []string
}

func DefaultStackConfig() StackConfig {
	return StackConfig{
		Offset:   DefaultStackOffset,
		Window:   DefaultStackWindow,
		MaxDepth: DefaultStackMaxDepth,
	}
}

type stackFilter struct {
	cfg      StackConfig
	funcs    map[string]struct{}
	packages []*regexp.Regexp
}

func newStackFilter(cfg StackConfig) (*stackFilter, error) {
	if cfg.Offset < 0 || cfg.Window < 0 || cfg.MaxDepth < 0 {
		return nil, fmt.Errorf("point: stack bounds must not be negative: %+v", cfg)
	}

	f := &stackFilter{cfg: cfg, funcs: make(map[string]struct{}, len(cfg.IgnoreFuncs))}
	for _, fn := range cfg.IgnoreFuncs {
		f.funcs[fn] = struct{}{}
	}
	for _, pattern := range cfg.IgnorePackages {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("point: invalid ignore pattern %q: %w", pattern, err)
		}
		f.packages = append(f.packages, re)
	}
	return f, nil
}

func (f *stackFilter) ignored(fn string) bool {
	if slices.ContainsFunc(alwaysSkipped, func(prefix string) bool { return strings.HasPrefix(fn, prefix) }) {
		return true
	}
	if _, ok := f.funcs[fn]; ok {
		return true
	}
	if _, ok := f.funcs[shortFuncName(fn)]; ok {
		return true
	}
	return slices.ContainsFunc(f.packages, func(re *regexp.Regexp) bool { return re.MatchString(fn) })
}

// capture returns head followed, when collect is set, by the filtered
// window of the caller's stack.
func (f *stackFilter) capture(head string, collect bool) []string {
	stack := []string{head}
	if !collect || f.cfg.Window == 0 || f.cfg.MaxDepth == 0 {
		return stack
	}

	pcs := make([]uintptr, f.cfg.MaxDepth)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	offset := f.cfg.Offset
	for {
		frame, more := frames.Next()
		if frame.Function != "" && !f.ignored(frame.Function) {
			if offset > 0 {
				offset--
			} else {
				stack = append(stack, fmt.Sprintf("%s %s:%d", frame.Function, frame.File, frame.Line))
				if len(stack)-1 >= f.cfg.Window {
					break
				}
			}
		}
		if !more {
			break
		}
	}

	return stack
}

// shortFuncName strips the import path: "a/b/pkg.(*T).M" becomes "(*T).M".
func shortFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 {
		fn = fn[i+1:]
	}
	if i := strings.Index(fn, "."); i >= 0 {
		return fn[i+1:]
	}
	return fn
}
