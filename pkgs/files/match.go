// Package files provides the file helpers recipes use to lay out sources
// and packages: pattern copy, pattern removal and rooted atomic writes.
package files

import (
	"regexp"
	"strings"
	"sync"
)

var (
	patternMu    sync.Mutex
	patternCache = map[string]*regexp.Regexp{}
)

// Match reports whether name matches the shell pattern. name uses forward
// slashes. Unlike path.Match, '*' also matches '/', so "*.h" matches
// "sub/dir/a.h" while "libembag*" only matches names starting with
// "libembag". A malformed pattern matches nothing.
func Match(pattern, name string) bool {
	re := compile(pattern)
	return re != nil && re.MatchString(name)
}

func compile(pattern string) *regexp.Regexp {
	patternMu.Lock()
	defer patternMu.Unlock()
	if re, ok := patternCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		re = nil
	}
	patternCache[pattern] = re
	return re
}

// translate converts a shell pattern into an anchored regular expression.
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString(`(?s)\A`)
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j >= len(pattern) {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : j]
			class = strings.ReplaceAll(class, `\`, `\\`)
			if strings.HasPrefix(class, "!") {
				class = "^" + class[1:]
			} else if strings.HasPrefix(class, "^") {
				class = `\` + class
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(`\z`)
	return b.String()
}
