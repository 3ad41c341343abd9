package insight

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// truncate cuts s to at most n bytes without splitting a rune, preferring
// the last whitespace in the tail so words stay whole.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if ws := strings.LastIndexFunc(s[:cut], unicode.IsSpace); ws > cut*3/4 {
		cut = ws
	}
	return strings.TrimSpace(s[:cut])
}

// scrubString trims surrounding punctuation and whitespace from text.
func scrubString(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".,!?;:\"'`()[]{}—–-*#•", r)
	})
}

// stripListMarker removes a leading bullet or "1." / "2)" style numbering.
func stripListMarker(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-*•+ ")
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		line = line[i+1:]
	}
	return strings.TrimSpace(line)
}

// isListLine reports whether line starts with a bullet or a number.
func isListLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	switch line[0] {
	case '-', '*', '+':
		return true
	}
	if strings.HasPrefix(line, "•") {
		return true
	}
	return line[0] >= '0' && line[0] <= '9'
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
