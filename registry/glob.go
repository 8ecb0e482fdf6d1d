package registry

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// globRecursive walks the directory tree rooted at the static prefix
// of pattern (everything before the first '*') and matches each file's
// path against the remainder using filepath.Match, treating a leading
// "**/" of the remainder as matching any number of intermediate
// directories; a "**" elsewhere in the remainder gets no special meaning.
//
// No third-party glob library in the retrieval pack implements the
// recursive "**" syntax spec's registry construction relies on
// (NewFromGlob("templates/**/*")), so this walks stdlib's fs.WalkDir
// directly rather than reaching for an ungrounded dependency.
func globRecursive(pattern, base string) ([]string, error) {
	root := filepath.Clean(base)
	if root == "" {
		root = "."
	}
	rest := strings.TrimPrefix(pattern, base)

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if matchGlobRest(filepath.ToSlash(rel), rest) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// matchGlobRest matches rel (a slash-separated relative path) against
// rest (the pattern remainder after the static prefix, e.g. "*/*" or
// "**/*.html"). A leading "**/" matches zero or more path segments.
func matchGlobRest(rel, rest string) bool {
	rest = strings.TrimPrefix(rest, "/")
	if strings.HasPrefix(rest, "**/") {
		suffix := strings.TrimPrefix(rest, "**/")
		segs := strings.Split(rel, "/")
		for i := range segs {
			candidate := strings.Join(segs[i:], "/")
			if ok, _ := filepath.Match(suffix, candidate); ok {
				return true
			}
		}
		return false
	}
	if rest == "**" {
		return true
	}
	ok, _ := filepath.Match(rest, rel)
	return ok
}
