package validate

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeText trims free text, normalizes line endings and drops control
// characters other than newline and tab.
func SanitizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(StripControlChars(text))
}

// SanitizeTags cleans every tag and drops empties and duplicates.
func SanitizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = SanitizeTag(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// IsWithinDirectory checks if a path is within the given base directory.
func IsWithinDirectory(path, baseDir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return false
	}

	if !strings.HasSuffix(absBase, string(filepath.Separator)) {
		absBase += string(filepath.Separator)
	}

	return strings.HasPrefix(absPath, absBase) || absPath == strings.TrimSuffix(absBase, string(filepath.Separator))
}

// SanitizeTag cleans a tag for safe use.
func SanitizeTag(tag string) string {
	tag = strings.TrimSpace(tag)

	tag = strings.ToLower(tag)

	var sb strings.Builder
	for _, r := range tag {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-' {
			sb.WriteRune(r)
		}
	}

	return sb.String()
}

// StripControlChars removes control characters except newline and tab.
func StripControlChars(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if !unicode.IsControl(r) || r == '\n' || r == '\t' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
