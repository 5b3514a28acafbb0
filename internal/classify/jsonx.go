package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Generation services rarely return clean JSON: the object arrives wrapped
// in prose or markdown fences, with smart quotes, single quotes, trailing
// commas, or raw newlines inside string values. ExtractObject recovers the
// object through independent layers, each of which is a plain function so
// it can be tested on its own:
//
//	locate -> strict parse -> Normalize -> strict parse -> error
//
// Field-level regex fallback lives in fieldFallback and is applied by the
// classifier when the object cannot be recovered at all.

var (
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	pyNull        = regexp.MustCompile(`:\s*None\b`)
	pyTrue        = regexp.MustCompile(`:\s*True\b`)
	pyFalse       = regexp.MustCompile(`:\s*False\b`)
)

// ExtractObject finds the outermost {...} span in text and parses it,
// normalizing common malformations first if the strict parse fails.
func ExtractObject(text string) (map[string]any, error) {
	candidate := locateObject(text)
	if candidate == "" {
		return nil, fmt.Errorf("no JSON object found in output")
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(candidate), &out); err == nil {
		return out, nil
	}

	cleaned := Normalize(candidate)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("parse JSON object: %w", err)
	}
	return out, nil
}

// locateObject returns the outermost brace-delimited span of text, or ""
// when there is no such span.
func locateObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// Normalize rewrites the common malformations seen in model output so the
// strict parser can accept it.
func Normalize(s string) string {
	cleaned := strings.TrimSpace(s)

	// Smart quotes
	replacer := strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'")
	cleaned = replacer.Replace(cleaned)

	// Single-quoted objects (only when there are no double quotes to clash with)
	if !strings.Contains(cleaned, `"`) && strings.Count(cleaned, "'") >= 2 {
		cleaned = strings.ReplaceAll(cleaned, "'", `"`)
	}

	// Python-style literals, with or without a space after the colon
	cleaned = pyNull.ReplaceAllString(cleaned, ": null")
	cleaned = pyTrue.ReplaceAllString(cleaned, ": true")
	cleaned = pyFalse.ReplaceAllString(cleaned, ": false")

	// Trailing commas before } or ]
	cleaned = trailingComma.ReplaceAllString(cleaned, "$1")

	// Raw newlines inside string values
	cleaned = escapeNewlinesInStrings(cleaned)

	return cleaned
}

// escapeNewlinesInStrings replaces literal newlines that occur inside a
// double-quoted string with the escaped form.
func escapeNewlinesInStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		switch {
		case escaped:
			escaped = false
			b.WriteRune(r)
		case r == '\\' && inString:
			escaped = true
			b.WriteRune(r)
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case (r == '\n' || r == '\r') && inString:
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// fieldFallback pulls individual string fields out of raw text with a
// per-field regex. Last line of defense when the object is beyond repair.
func fieldFallback(text string, fields []string) map[string]string {
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		re := regexp.MustCompile(`(?i)["']?` + regexp.QuoteMeta(f) + `["']?\s*[:=]\s*["']?([a-zA-Z_/|-]+)["']?`)
		if m := re.FindStringSubmatch(text); m != nil {
			out[f] = strings.ToLower(m[1])
		}
	}
	return out
}
