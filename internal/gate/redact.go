package gate

import "regexp"

const redacted = "[REDACTED]"

const secretKey = `(?i)\b([A-Za-z0-9_\-]*(?:password|passwd|secret|token|api[_-]?key|access[_-]?key)[A-Za-z0-9_\-]*)`

var redactions = []struct {
	pattern *regexp.Regexp
	replace string
}{
	{regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----[\s\S]*?-----END [A-Z ]*PRIVATE KEY-----`), redacted},
	{regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`), redacted},
	{regexp.MustCompile(`(?i)\b(bearer)\s+[A-Za-z0-9\-._~+/]+=*`), "$1 " + redacted},
	// quoted values keep their quotes so JSON and YAML snippets stay readable
	{regexp.MustCompile(secretKey + `("?\s*[:=]\s*)"[^"]*"`), `$1$2"` + redacted + `"`},
	{regexp.MustCompile(secretKey + `(\s*[:=]\s*)([^\s,;"']+)`), "$1$2" + redacted},
}

// Redact masks credentials in text before it is embedded in a gate request.
func Redact(text string) string {
	for _, r := range redactions {
		text = r.pattern.ReplaceAllString(text, r.replace)
	}
	return text
}
