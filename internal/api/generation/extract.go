package generation

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var ErrNoJSON = errors.New("no JSON object in generated text")

var fencePattern = regexp.MustCompile("(?s)```\\s*(.*?)\\s*```")

// ExtractJSON returns the JSON object of a model response, compacted. The
// first fenced block wins (an optional "json" tag is dropped); without a
// fence the text between the first '{' and the last '}' is used.
func ExtractJSON(text string) (string, error) {
	body := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(body); m != nil {
		body = strings.TrimSpace(strings.TrimPrefix(m[1], "json"))
	}

	first := strings.Index(body, "{")
	last := strings.LastIndex(body, "}")
	if first == -1 || last <= first {
		return "", ErrNoJSON
	}
	body = body[first : last+1]

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(body)); err != nil {
		return "", errors.Join(ErrNoJSON, err)
	}
	return buf.String(), nil
}
