// Package embedlang detects embedded languages (SQL, shell, XML, HTML,
// JSON, YAML, regex) inside string literals, with a confidence score per
// detection. It is consulted while building string-literal IR nodes, which
// record the detected language and its confidence in their attrs.
package embedlang

import (
	"encoding/json"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Language is a detected embedded-language tag.
type Language string

const (
	SQL    Language = "sql"
	Shell  Language = "shell"
	HTML   Language = "html"
	XML    Language = "xml"
	JSON   Language = "json"
	YAML   Language = "yaml"
	Regex  Language = "regex"
	Length          = 5 // minimum trimmed length to consider detection
)

// scored pairs a compiled pattern with the confidence it contributes.
type scored struct {
	pattern *regexp.Regexp
	score   float64
}

var sqlPatterns = []scored{
	{regexp.MustCompile(`(?is)\bSELECT\b.+\bFROM\b`), 0.95},
	{regexp.MustCompile(`(?is)\bINSERT\s+INTO\b.+\bVALUES\b`), 0.95},
	{regexp.MustCompile(`(?is)\bUPDATE\b.+\bSET\b`), 0.95},
	{regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`), 0.95},
	{regexp.MustCompile(`(?is)\b(INSERT|UPDATE|DELETE|CREATE|ALTER|DROP)\b.*\b(FROM|WHERE|JOIN|SET|VALUES|TABLE)\b`), 0.85},
}

var shellKeywords = []string{
	"cd", "ls", "pwd", "mkdir", "rmdir", "rm", "cp", "mv", "cat", "grep", "awk", "sed", "find", "xargs",
	"curl", "wget", "ssh", "scp", "nc", "netcat",
	"echo", "printf", "export", "source", "chmod", "chown", "ps", "kill", "top", "df", "du", "tar", "gzip",
	"apt", "yum", "dnf", "brew", "pip", "npm",
}

var sqlKeywords = []string{
	"select", "insert", "update", "delete", "merge",
	"create", "alter", "drop", "truncate",
	"from", "where", "join", "inner", "outer", "left", "right", "group", "having", "order", "limit", "offset",
	"union", "distinct", "as", "on", "and", "or", "not", "table", "database", "index", "view", "procedure",
}

var shellPatterns = []scored{
	{regexp.MustCompile(`\S+\s*\|\s*\S+`), 0.85},
	{regexp.MustCompile(`(?i)\b(` + strings.Join(shellKeywords, "|") + `)\s+-[a-zA-Z]+`), 0.90},
	{regexp.MustCompile(`(>>|>|<|2>&1)`), 0.80},
	{regexp.MustCompile("\\$\\(.*\\)|`.*`"), 0.90},
	{regexp.MustCompile(`\$\{?\w+\}?`), 0.70},
	{regexp.MustCompile(`(?i)\b(` + strings.Join(shellKeywords[:10], "|") + `)\b.*(&&|\|\||;)`), 0.85},
}

var htmlPatterns = []scored{
	{regexp.MustCompile(`(?is)<\s*([a-zA-Z][a-zA-Z0-9]*)\b[^>]*>.*?</\s*[a-zA-Z][a-zA-Z0-9]*\s*>`), 0.95},
	{regexp.MustCompile(`<\s*[a-zA-Z][a-zA-Z0-9]*\b[^>]*/\s*>`), 0.90},
	{regexp.MustCompile(`(?i)<!DOCTYPE\s+html>`), 0.95},
	{regexp.MustCompile(`(?i)<\s*(html|head|body|div|span|p|a|img|script|style)\b`), 0.85},
}

var xmlPatterns = []scored{
	{regexp.MustCompile(`(?i)<\?xml\s+version=`), 0.95},
	{regexp.MustCompile(`xmlns[:=]`), 0.90},
}

var yamlPatterns = []scored{
	{regexp.MustCompile(`(?m)^\s*[\w-]+\s*:\s*.+`), 0.65},
	{regexp.MustCompile(`(?m)^\s*-\s+\w+`), 0.60},
}

var regexPatterns = []scored{
	{regexp.MustCompile(`(\[[\^]?[^\]]+\]|\\[dDwWsS]|\{[\d,]+\}|\(.*\)|\.\*|\.\+)`), 0.75},
	{regexp.MustCompile(`(\^|\$|\\b|\\B)`), 0.65},
}

var naturalLanguageLeaders = map[string]bool{
	"please": true, "can": true, "could": true, "would": true, "should": true,
	"may": true, "might": true, "the": true, "a": true, "an": true, "this": true, "that": true,
}

var wordRe = regexp.MustCompile(`\S+`)

// Detect returns the highest-confidence embedded language found in value,
// or ("" , 0) if none clears the 0.5 threshold.
func Detect(value string) (Language, float64) {
	if len(strings.TrimSpace(value)) < Length {
		return "", 0
	}

	type hit struct {
		lang  Language
		score float64
	}
	var hits []hit

	if s := detectSQL(value); s > 0.5 {
		hits = append(hits, hit{SQL, s})
	}
	if s := detectPatterns(value, shellPatterns); s > 0.5 || detectShellKeywords(value) > 0.5 {
		s = maxf(s, detectShellKeywords(value))
		hits = append(hits, hit{Shell, s})
	}
	if s := detectPatterns(value, xmlPatterns); s > 0.5 {
		hits = append(hits, hit{XML, s})
	}
	if s := detectPatterns(value, htmlPatterns); s > 0.5 {
		hits = append(hits, hit{HTML, s})
	}
	if s := detectJSON(value); s > 0.5 {
		hits = append(hits, hit{JSON, s})
	}
	if s := detectYAML(value); s > 0.5 {
		hits = append(hits, hit{YAML, s})
	}
	if s := detectRegex(value); s > 0.5 {
		hits = append(hits, hit{Regex, s})
	}

	if len(hits) == 0 {
		return "", 0
	}
	best := hits[0]
	for _, h := range hits[1:] {
		if h.score > best.score {
			best = h
		}
	}
	return best.lang, best.score
}

func detectSQL(value string) float64 {
	words := wordRe.FindAllString(value, -1)
	if len(words) > 0 && naturalLanguageLeaders[strings.ToLower(words[0])] {
		return 0
	}
	score := detectPatterns(value, sqlPatterns)
	found := countKeywords(value, sqlKeywords)
	if found >= 3 {
		score = maxf(score, 0.80)
	} else if found >= 2 {
		score = maxf(score, 0.65)
	}
	return score
}

func detectShellKeywords(value string) float64 {
	if countKeywords(value, shellKeywords) >= 2 {
		return 0.75
	}
	return 0
}

func detectJSON(value string) float64 {
	var v any
	if err := json.Unmarshal([]byte(value), &v); err == nil {
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			return 0.95
		}
		return 0.70
	}
	for _, p := range []scored{{regexp.MustCompile(`(?s)^\s*[\{\[].*[\}\]]\s*$`), 0.60}} {
		if p.pattern.MatchString(value) {
			return 0.50
		}
	}
	return 0
}

func detectYAML(value string) float64 {
	var v any
	if err := yaml.Unmarshal([]byte(value), &v); err != nil {
		if detectPatterns(value, yamlPatterns) > 0 {
			return 0.55
		}
		return 0
	}
	switch v.(type) {
	case map[string]any, []any:
		trimmed := strings.TrimSpace(value)
		if strings.HasPrefix(trimmed, "{") && strings.Contains(value, "invalid") {
			return 0
		}
		if strings.Contains(value, ":") && !strings.HasPrefix(trimmed, "{") {
			return 0.90
		}
		return 0.75
	default:
		return 0
	}
}

func detectRegex(value string) float64 {
	score := detectPatterns(value, regexPatterns)
	features := []string{
		`[\[][\^]?[^\]]+[\]]`,
		`\\[dDwWsS]`,
		`\{[\d,]+\}`,
		`\(.*\)`,
		`\.\*|\.\+`,
		`\^|\$`,
	}
	found := 0
	for _, f := range features {
		if regexp.MustCompile(f).MatchString(value) {
			found++
		}
	}
	if found >= 3 {
		score = maxf(score, 0.85)
	} else if found >= 2 {
		score = maxf(score, 0.70)
	}
	return score
}

func detectPatterns(value string, patterns []scored) float64 {
	score := 0.0
	for _, p := range patterns {
		if p.pattern.MatchString(value) {
			score = maxf(score, p.score)
		}
	}
	return score
}

func countKeywords(value string, keywords []string) int {
	found := 0
	lower := strings.ToLower(value)
	for _, kw := range keywords {
		if regexp.MustCompile(`\b` + kw + `\b`).MatchString(lower) {
			found++
		}
	}
	return found
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
