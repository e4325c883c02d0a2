package provider

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Strategy maps one documented response schema to reply text. Path is a gjson
// path; when it resolves to an array the string elements are concatenated.
type Strategy struct {
	Name string
	Path string
}

// Extract tries each strategy in declared order and returns the first
// non-empty text along with the name of the strategy that produced it.
func Extract(body []byte, strategies ...Strategy) (string, string, error) {
	if !gjson.ValidBytes(body) {
		return "", "", fmt.Errorf("%w: body is not valid JSON", ErrNoMatchingShape)
	}

	for _, s := range strategies {
		res := gjson.GetBytes(body, s.Path)
		if !res.Exists() {
			continue
		}
		text := resultText(res)
		if strings.TrimSpace(text) != "" {
			return text, s.Name, nil
		}
	}

	return "", "", fmt.Errorf("%w: tried %s", ErrNoMatchingShape, strategyNames(strategies))
}

func resultText(res gjson.Result) string {
	if !res.IsArray() {
		if res.Type != gjson.String {
			return ""
		}
		return res.String()
	}

	var b strings.Builder
	for _, el := range res.Array() {
		if el.Type == gjson.String {
			b.WriteString(el.String())
		}
	}
	return b.String()
}

func strategyNames(strategies []Strategy) string {
	names := make([]string, 0, len(strategies))
	for _, s := range strategies {
		names = append(names, s.Name)
	}
	return strings.Join(names, ",")
}
