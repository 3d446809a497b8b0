package utils

import "strings"

// ExtractJSONObject returns the outermost {...} span of raw, dropping markdown fences or
// chatter around it. It returns "" when raw holds no object.
func ExtractJSONObject(raw string) string {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start >= 0 && end > start {
		return clean[start : end+1]
	}
	return ""
}

// NormalizeLabel lowercases a single-word model answer and strips quotes and punctuation.
func NormalizeLabel(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = strings.Trim(label, ".\"'`*")
	if i := strings.IndexAny(label, " \n\t"); i >= 0 {
		label = label[:i]
	}
	return strings.TrimRight(label, ".,;:\"'`*")
}
