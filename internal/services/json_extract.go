// internal/services/json_extract.go
package services

import (
	"math"
	"strconv"
	"strings"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/tidwall/gjson"
)

// 模型输出中常见的Markdown围栏与BOM
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```JSON", "",
	"```", "",
	"\ufeff", "",
)

// extractJSONObject finds the JSON object in model output: the whole trimmed content when it
// is an object, else the span from the first '{' to the last '}'.
func extractJSONObject(content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", apperrors.NewParseError("Empty LLM response", nil)
	}

	trimmed := strings.TrimSpace(jsonNoiseReplacer.Replace(content))
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		return trimmed, nil
	}

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first == -1 || last == -1 || last <= first {
		return "", apperrors.NewParseError("LLM response was not valid JSON", nil)
	}
	return trimmed[first : last+1], nil
}

// assessment is the model's self-reported verdict.
type assessment struct {
	Toxicity      float64
	RewrittenText string
}

// parseAssessment decodes {toxicity, rewrittenText} from model output. A missing or
// non-numeric toxicity is an error, never a default.
func parseAssessment(content string) (*assessment, error) {
	candidate, err := extractJSONObject(content)
	if err != nil {
		return nil, err
	}
	if !gjson.Valid(candidate) {
		return nil, apperrors.NewParseError("LLM response was not valid JSON", nil)
	}

	parsed := gjson.Parse(candidate)
	toxicity, ok := numericField(parsed.Get("toxicity"))
	if !ok {
		return nil, apperrors.NewParseError("LLM response missing toxicity score", nil)
	}

	rewritten := parsed.Get("rewrittenText")
	text := ""
	if rewritten.Type == gjson.String {
		text = strings.TrimSpace(rewritten.Str)
	}

	return &assessment{
		Toxicity:      clampScore(toxicity),
		RewrittenText: text,
	}, nil
}

// numericField accepts JSON numbers and numeric strings.
func numericField(value gjson.Result) (float64, bool) {
	switch value.Type {
	case gjson.Number:
		return value.Num, true
	case gjson.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(value.Str), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(1, score))
}
