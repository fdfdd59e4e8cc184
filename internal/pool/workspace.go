package pool

import (
	"net/url"
	"path/filepath"
	"strings"
)

// skipSegments are path components that never name an actual project —
// carried from the teacher's detectWorkspace skip-list.
var skipSegments = map[string]bool{
	"":          true,
	"Documents": true,
	"Desktop":   true,
	"Downloads": true,
	"Source":    true,
	"Work":      true,
}

// NormalizeWorkspace extracts a stable project-directory name from a
// free-form path or URL, per spec.md §4.5. It accepts either a bare
// filesystem path (the common case, e.g. a WorkspaceBinding's
// WorkspacePath) or text containing an embedded file:// URL (the shape the
// assistant's own DOM content uses).
func NormalizeWorkspace(input string) string {
	if idx := strings.Index(input, "file://"); idx != -1 {
		if name := fromFileURL(input[idx:]); name != "" {
			return name
		}
	}
	return fromPlainPath(input)
}

// fromFileURL mirrors the teacher's detectWorkspace verbatim: find a
// file:///Users/ marker, skip the username segment that follows it, then
// return the first remaining segment that isn't a well-known non-project
// directory.
func fromFileURL(content string) string {
	const marker = "file:///Users/"
	idx := strings.Index(content, marker)
	if idx == -1 {
		return ""
	}
	path := content[idx+len(marker):]

	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return ""
	}

	// parts[0] is the username; parts[1] onward is project or Documents/Desktop.
	for i := 1; i < len(parts); i++ {
		name := decodeSegment(parts[i])
		if skipSegments[name] {
			continue
		}
		if endIdx := strings.Index(name, ")"); endIdx != -1 {
			name = name[:endIdx]
		}
		if name != "" {
			return name
		}
	}
	return ""
}

func decodeSegment(p string) string {
	if decoded, err := url.QueryUnescape(p); err == nil {
		return decoded
	}
	return strings.ReplaceAll(p, "%20", " ")
}

// fromPlainPath treats input as an ordinary filesystem path and returns its
// final path component, skipping the same non-project directory names.
func fromPlainPath(input string) string {
	clean := filepath.Clean(strings.TrimRight(input, "/"))
	for clean != "." && clean != string(filepath.Separator) {
		name := filepath.Base(clean)
		if !skipSegments[name] {
			return name
		}
		clean = filepath.Dir(clean)
	}
	return filepath.Base(input)
}
