// Package discovery resolves glob patterns to files.
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"astcensus/internal/core/errors"
	"astcensus/internal/shared/util"

	"github.com/gobwas/glob"
)

// Resolver expands patterns such as "projects/*/transform/**/*.js".
//
// "*" and "?" stay within one path segment, "**" crosses segments, and
// "{a,b}" and "[abc]" work as usual. Relative patterns are resolved against
// Root. Directories whose base name matches an exclude glob are not entered.
type Resolver struct {
	Root    string
	exclude []glob.Glob
}

func NewResolver(root string, excludeDirs []string) (*Resolver, error) {
	r := &Resolver{Root: root}
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeValidationError, fmt.Sprintf("invalid exclude dir pattern %q", p))
		}
		r.exclude = append(r.exclude, g)
	}
	return r, nil
}

// Resolve returns the sorted, de-duplicated files matching pattern. No match
// is not an error; a malformed pattern or an unreadable directory is.
func (r *Resolver) Resolve(pattern string) ([]string, error) {
	pattern = util.NormalizePatternPath(pattern)
	if pattern == "" {
		return nil, errors.New(errors.CodeDiscovery, "empty glob pattern")
	}
	g, err := compilePattern(pattern)
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeDiscovery, "invalid glob pattern"),
			"pattern", pattern,
		)
	}

	base := StaticBase(pattern)
	walkRoot := r.abs(base)
	info, err := os.Stat(walkRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDiscovery, "stat glob base")
	}
	if !info.IsDir() {
		if g.Match(r.subject(pattern, walkRoot)) {
			return []string{walkRoot}, nil
		}
		return nil, nil
	}

	seen := make(map[string]bool)
	var files []string
	err = filepath.WalkDir(walkRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != walkRoot && r.excluded(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if g.Match(r.subject(pattern, p)) && !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(
			errors.Wrap(err, errors.CodeDiscovery, "walk glob base"),
			errors.CtxPath, walkRoot,
		)
	}
	sort.Strings(files)
	return files, nil
}

// Match reports whether file would be selected by pattern. Watch mode uses it
// to ignore changes no spec selects.
func (r *Resolver) Match(pattern, file string) bool {
	pattern = util.NormalizePatternPath(pattern)
	g, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return g.Match(r.subject(pattern, file))
}

func (r *Resolver) excluded(name string) bool {
	for _, g := range r.exclude {
		if g.Match(name) {
			return true
		}
	}
	return false
}

func (r *Resolver) abs(p string) string {
	if filepath.IsAbs(p) || r.Root == "" {
		if p == "" {
			return "."
		}
		return filepath.FromSlash(p)
	}
	return filepath.Join(r.Root, filepath.FromSlash(p))
}

// subject is the string a file is matched as: absolute for absolute
// patterns, otherwise relative to Root.
func (r *Resolver) subject(pattern, p string) string {
	if path.IsAbs(pattern) {
		if abs, err := filepath.Abs(p); err == nil {
			return filepath.ToSlash(abs)
		}
		return filepath.ToSlash(p)
	}
	return r.rel(p)
}

// rel renders p the way patterns are written: slash separated and relative
// to Root unless the path lies outside it.
func (r *Resolver) rel(p string) string {
	if r.Root != "" {
		if rel, err := filepath.Rel(r.Root, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
	}
	return util.NormalizePatternPath(filepath.ToSlash(p))
}

// patternSet matches when any of its globs does.
type patternSet []glob.Glob

func (s patternSet) Match(subject string) bool {
	for _, g := range s {
		if g.Match(subject) {
			return true
		}
	}
	return false
}

// compilePattern compiles pattern with '/' as separator. A "**/" segment
// also matches zero directories, so "src/**/*.js" selects "src/a.js".
func compilePattern(pattern string) (patternSet, error) {
	variants := globstarVariants(pattern)
	set := make(patternSet, 0, len(variants))
	for _, v := range variants {
		g, err := glob.Compile(v, '/')
		if err != nil {
			return nil, err
		}
		set = append(set, g)
	}
	return set, nil
}

// globstarVariants returns pattern with every subset of its "**/" segments
// removed, pattern itself first.
func globstarVariants(pattern string) []string {
	idx := -1
	for i := 0; i+3 <= len(pattern); i++ {
		if pattern[i:i+3] == "**/" && (i == 0 || pattern[i-1] == '/') {
			idx = i
			break
		}
	}
	if idx < 0 {
		return []string{pattern}
	}
	head, tail := pattern[:idx], pattern[idx+3:]
	var out []string
	for _, rest := range globstarVariants(tail) {
		out = append(out, head+"**/"+rest)
	}
	for _, rest := range globstarVariants(tail) {
		out = append(out, head+rest)
	}
	return out
}

// StaticBase returns the leading segments of pattern that contain no glob
// meta characters.
func StaticBase(pattern string) string {
	segments := strings.Split(pattern, "/")
	var static []string
	for _, seg := range segments {
		if strings.ContainsAny(seg, "*?[{\\") {
			break
		}
		static = append(static, seg)
	}
	base := strings.Join(static, "/")
	if base == "" && strings.HasPrefix(pattern, "/") {
		return "/"
	}
	if len(static) == len(segments) {
		return pattern
	}
	return path.Clean(base)
}
