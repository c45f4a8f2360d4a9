package services

import (
	"encoding/json"
	"regexp"
	"strings"
)

type ParseQuality string

const (
	QualityParsed   ParseQuality = "parsed"
	QualityDegraded ParseQuality = "degraded"
	QualityFailed   ParseQuality = "failed"
)

// ParseResult carries a value decoded from model output together with how
// much of it could be trusted. Callers always get a usable Value.
type ParseResult[T any] struct {
	Quality ParseQuality
	Value   T
	Reason  string
}

func Parsed[T any](v T) ParseResult[T] {
	return ParseResult[T]{Quality: QualityParsed, Value: v}
}

func Degraded[T any](v T, reason string) ParseResult[T] {
	return ParseResult[T]{Quality: QualityDegraded, Value: v, Reason: reason}
}

func Failed[T any](fallback T, reason string) ParseResult[T] {
	return ParseResult[T]{Quality: QualityFailed, Value: fallback, Reason: reason}
}

func (r ParseResult[T]) OK() bool {
	return r.Quality == QualityParsed
}

var (
	fencedObjectRe = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*\\})\\s*```")
	bareObjectRe   = regexp.MustCompile(`(\{[\s\S]*\})`)
)

// ExtractObject finds the JSON object in model output: a fenced block first,
// then the outermost brace span, else the raw text.
func ExtractObject(text string) string {
	if m := fencedObjectRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	if m := bareObjectRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// StripFences returns the body of the first markdown code block, preferring
// a ```json block, or the trimmed text when there is none.
func StripFences(text string) string {
	clean := text
	if _, after, ok := strings.Cut(clean, "```json"); ok {
		clean, _, _ = strings.Cut(after, "```")
	} else if _, after, ok := strings.Cut(clean, "```"); ok {
		clean, _, _ = strings.Cut(after, "```")
	}
	return strings.TrimSpace(clean)
}

// DecodeJSON decodes candidate into T, reporting failure through the result.
func DecodeJSON[T any](candidate string) ParseResult[T] {
	var v T
	if err := json.Unmarshal([]byte(strings.TrimSpace(candidate)), &v); err != nil {
		return Failed(v, err.Error())
	}
	return Parsed(v)
}
