package scanning

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// Candidate is one value parsed out of an LLM list response
type Candidate struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

var (
	bulletPrefix = regexp.MustCompile(`^(?:[-*•·–]+|\d+\s*[.)\-:]|\(\d+\))\s*`)
	unitParens   = regexp.MustCompile(`^(.+?)\s*\(([^()]+)\)$`)
	unitDash     = regexp.MustCompile(`^(.+?)\s+[-–—]\s+(.+)$`)
)

// listKeys are the object keys searched first when a response wraps its list
// in an object
var listKeys = []string{
	"categories", "categorias",
	"brands", "marcas",
	"units", "unidades",
	"items", "itens", "data",
}

const maxCandidateLen = 60

// ParseCandidates leniently extracts a list of names from a model response.
// It tries strict JSON first and falls back to one candidate per line with
// bullets and numbering removed. Unusable input yields an empty slice,
// including a response that starts as JSON but holds no list or was cut off.
func ParseCandidates(text string) []Candidate {
	text = stripCodeFence(text)
	if text == "" {
		return []Candidate{}
	}

	if out, ok := parseJSONCandidates(text); ok {
		return dedupCandidates(out)
	}
	if strings.HasPrefix(text, "[") || strings.HasPrefix(text, "{") {
		return []Candidate{}
	}
	return dedupCandidates(parseLineCandidates(text))
}

// stripCodeFence removes a surrounding markdown code block if present
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func parseJSONCandidates(text string) ([]Candidate, bool) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		// Models like to wrap JSON in prose; retry on the outermost brackets
		inner, found := outermost(text)
		if !found {
			return nil, false
		}
		if err := json.Unmarshal([]byte(inner), &doc); err != nil {
			return nil, false
		}
	}
	return candidatesFromValue(doc)
}

func outermost(text string) (string, bool) {
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start != -1 && end > start {
			return text[start : end+1], true
		}
	}
	return "", false
}

func candidatesFromValue(v any) ([]Candidate, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]Candidate, 0, len(t))
		for _, el := range t {
			switch e := el.(type) {
			case string:
				out = append(out, Candidate{Name: e})
			case map[string]any:
				c := Candidate{
					Name:         firstString(e, "name", "nome"),
					Abbreviation: firstString(e, "abbreviation", "sigla", "abreviacao", "abreviação", "symbol"),
				}
				out = append(out, c)
			}
		}
		return out, true
	case map[string]any:
		for _, k := range listKeys {
			if inner, ok := t[k]; ok {
				return candidatesFromValue(inner)
			}
		}
		// Any other key holding a list, in a stable order
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if inner, ok := t[k].([]any); ok {
				return candidatesFromValue(inner)
			}
		}
	}
	return nil, false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}

func parseLineCandidates(text string) []Candidate {
	out := make([]Candidate, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		line = strings.Trim(line, `"'`+"`,;")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasSuffix(line, ":") || isPunctuation(line) {
			continue
		}
		out = append(out, Candidate{Name: line})
	}
	return out
}

// isPunctuation reports whether line holds nothing but JSON structure
func isPunctuation(line string) bool {
	return strings.Trim(line, "[]{}(),;:\"' \t") == ""
}

// ParseUnitCandidates is ParseCandidates for unit lists, where plain entries
// like "Quilograma (kg)" carry the abbreviation inside the name
func ParseUnitCandidates(text string) []Candidate {
	cs := ParseCandidates(text)
	for i, c := range cs {
		if c.Abbreviation == "" {
			cs[i] = splitUnit(c.Name)
		}
	}
	return dedupCandidates(cs)
}

// splitUnit turns "Quilograma (kg)" or "Quilograma - kg" into name and
// abbreviation
func splitUnit(line string) Candidate {
	if m := unitParens.FindStringSubmatch(line); m != nil {
		return Candidate{Name: m[1], Abbreviation: m[2]}
	}
	if m := unitDash.FindStringSubmatch(line); m != nil {
		return Candidate{Name: m[1], Abbreviation: m[2]}
	}
	return Candidate{Name: line}
}

func dedupCandidates(in []Candidate) []Candidate {
	seen := make(map[string]bool, len(in))
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		c.Name = strings.TrimSpace(c.Name)
		c.Abbreviation = strings.TrimSpace(c.Abbreviation)
		if c.Name == "" || utf8.RuneCountInString(c.Name) > maxCandidateLen {
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// Names returns just the candidate names
func Names(cs []Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Name
	}
	return out
}

// parseQRPayload cleans the vision model's answer to a QR read request
func parseQRPayload(text string) (string, error) {
	text = stripCodeFence(text)
	text = strings.Trim(text, `"'`+"`")
	text = strings.TrimSpace(text)
	if text == "" || strings.EqualFold(text, "none") {
		return "", ErrNoQRCode
	}
	if i := strings.IndexByte(text, '\n'); i != -1 {
		text = strings.TrimSpace(text[:i])
	}
	if text == "" {
		return "", fmt.Errorf("empty first line in model response: %w", ErrNoQRCode)
	}
	return text, nil
}
