package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mock-test/backend/internal/models"
	"go.uber.org/zap"
)

// ErrNoJSONArray is returned when neither the cleaned body nor any
// bracketed substring of it decodes to a list of records.
var ErrNoJSONArray = errors.New("no JSON array in provider response")

var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

type record map[string]any

// ParseResponse decodes a provider response body into raw records. It accepts a
// bare JSON array, an object with a "questions" array, or either wrapped in
// prose or markdown fences.
func ParseResponse(responseBody string) ([]record, error) {
	cleaned := stripCodeFences(responseBody)

	if records, err := decodeRecords(cleaned); err == nil {
		return records, nil
	}

	match := arrayPattern.FindString(cleaned)
	if match == "" {
		return nil, ErrNoJSONArray
	}
	records, err := decodeRecords(match)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONArray, err)
	}
	return records, nil
}

func decodeRecords(s string) ([]record, error) {
	var list []record
	if err := json.Unmarshal([]byte(s), &list); err == nil {
		return list, nil
	}

	var wrapped struct {
		Questions []record `json:"questions"`
	}
	if err := json.Unmarshal([]byte(s), &wrapped); err != nil {
		return nil, err
	}
	if wrapped.Questions == nil {
		return nil, errors.New("object has no questions array")
	}
	return wrapped.Questions, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimSpace(s)
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSuffix(s, "```")
		s = strings.TrimSpace(s)
	}
	return s
}

// Tags applied to every normalized record.
type Tags struct {
	Topic           string
	Source          string
	DifficultyLevel int
	CompanyName     string
}

// Normalize coerces records into candidates. Records missing the stem or any
// option are dropped; an absent or invalid correct_option becomes "A". At most
// limit candidates are returned.
func Normalize(records []record, tags Tags, limit int, log *zap.Logger) []models.CandidateQuestion {
	if log == nil {
		log = zap.NewNop()
	}

	out := make([]models.CandidateQuestion, 0, len(records))
	for i, r := range records {
		if len(out) >= limit {
			break
		}

		q := models.CandidateQuestion{
			Topic:           tags.Topic,
			QuestionText:    r.str("question_text"),
			OptionA:         r.str("option_a"),
			OptionB:         r.str("option_b"),
			OptionC:         r.str("option_c"),
			OptionD:         r.str("option_d"),
			CorrectOption:   strings.ToUpper(r.str("correct_option")),
			Source:          tags.Source,
			DifficultyLevel: tags.DifficultyLevel,
			CompanyName:     tags.CompanyName,
		}
		if _, ok := q.CorrectIndex(); !ok {
			q.CorrectOption = "A"
		}

		if missing := missingFields(q); len(missing) > 0 {
			log.Warn("dropping incomplete record",
				zap.Int("record", i+1),
				zap.Strings("missing", missing))
			continue
		}
		out = append(out, q)
	}

	checkDistribution(out, log)
	checkStemDiversity(out, log)
	return out
}

func missingFields(q models.CandidateQuestion) []string {
	var missing []string
	if q.QuestionText == "" {
		missing = append(missing, "question_text")
	}
	for i, opt := range q.Options() {
		if opt == "" {
			missing = append(missing, "option_"+strings.ToLower(models.OptionLetters[i]))
		}
	}
	return missing
}

func (r record) str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

// checkDistribution warns (but does not reject) when correct answers cluster on one letter.
func checkDistribution(questions []models.CandidateQuestion, log *zap.Logger) {
	if len(questions) < 4 {
		return
	}
	counts := make(map[string]int)
	for _, q := range questions {
		counts[q.CorrectOption]++
	}
	for letter, n := range counts {
		if n*2 > len(questions) {
			log.Warn("correct answers clustered",
				zap.String("letter", letter),
				zap.Int("count", n),
				zap.Int("batch", len(questions)))
		}
	}
}

// checkStemDiversity warns if any two stems share more than 80% keyword overlap.
func checkStemDiversity(questions []models.CandidateQuestion, log *zap.Logger) {
	if len(questions) < 2 {
		return
	}

	tokenSets := make([]map[string]bool, len(questions))
	for i, q := range questions {
		tokenSets[i] = tokenize(q.QuestionText)
	}

	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			if overlap := jaccardSimilarity(tokenSets[i], tokenSets[j]); overlap > 0.80 {
				log.Warn("near-duplicate question stems",
					zap.Int("first", i+1),
					zap.Int("second", j+1),
					zap.Float64("overlap", overlap))
			}
		}
	}
}

func tokenize(s string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(s)) {
		if len(word) > 3 {
			tokens[word] = true
		}
	}
	return tokens
}

func jaccardSimilarity(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
