package models

import "strings"

// Correct-option letters, in option_order.
var OptionLetters = [4]string{"A", "B", "C", "D"}

var difficultyNames = map[int]string{
	1: "Novice",
	2: "Easy",
	3: "Intermediate",
	4: "Master",
	5: "Expert",
}

const (
	MinDifficulty = 1
	MaxDifficulty = 5
)

// DifficultyName returns the display name for a 1-5 level, or "" when out of range.
func DifficultyName(level int) string {
	return difficultyNames[level]
}

type DifficultyLevel struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CandidateQuestion is a generated, not yet approved question. It lives in
// the staging pool (ai_generated_questions) or arrives edited from a client.
type CandidateQuestion struct {
	ID              int64  `json:"id,omitempty"`
	Topic           string `json:"topic"`
	QuestionText    string `json:"question_text" validate:"required"`
	OptionA         string `json:"option_a" validate:"required"`
	OptionB         string `json:"option_b" validate:"required"`
	OptionC         string `json:"option_c" validate:"required"`
	OptionD         string `json:"option_d" validate:"required"`
	CorrectOption   string `json:"correct_option"`
	Source          string `json:"source,omitempty"`
	DifficultyLevel int    `json:"difficulty_level,omitempty"`
	CompanyName     string `json:"company_name,omitempty"`
}

func (q CandidateQuestion) Options() [4]string {
	return [4]string{q.OptionA, q.OptionB, q.OptionC, q.OptionD}
}

// CorrectIndex returns the 0-based position of the correct option.
func (q CandidateQuestion) CorrectIndex() (int, bool) {
	letter := strings.ToUpper(strings.TrimSpace(q.CorrectOption))
	for i, l := range OptionLetters {
		if l == letter {
			return i, true
		}
	}
	return 0, false
}

// NewQuestion is a row bound for the normalized questions table. Seq is the
// correlation key used to pair the returned id with its options.
type NewQuestion struct {
	Seq          int
	TestID       int64
	DifficultyID int
	QuestionText string
	Marks        int
	Options      [4]AnswerOption
}

type AnswerOption struct {
	QuestionID int64  `json:"question_id"`
	Text       string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
	Order      int    `json:"option_order"`
}

type GenerationRequest struct {
	Topic           string `json:"topic" validate:"required"`
	CompanyName     string `json:"company_name"`
	RolePosition    string `json:"role_position"`
	Description     string `json:"description"`
	DifficultyLevel int    `json:"difficulty_level" validate:"min=1,max=5"`
	AIProvider      string `json:"ai_provider"`
	Count           int    `json:"count" validate:"min=1,max=500"`
}

const (
	DefaultGenerationCount = 30
	DefaultDifficulty      = 3
	DefaultProvider        = "openai"
)

// ApplyDefaults fills zero-valued fields the way the admin UI expects.
func (r *GenerationRequest) ApplyDefaults() {
	r.Topic = strings.TrimSpace(r.Topic)
	r.CompanyName = strings.TrimSpace(r.CompanyName)
	r.RolePosition = strings.TrimSpace(r.RolePosition)
	r.AIProvider = strings.ToLower(strings.TrimSpace(r.AIProvider))
	if r.DifficultyLevel == 0 {
		r.DifficultyLevel = DefaultDifficulty
	}
	if r.AIProvider == "" {
		r.AIProvider = DefaultProvider
	}
	if r.Count == 0 {
		r.Count = DefaultGenerationCount
	}
}

type GenerateAllRequest struct {
	Topic                  string `json:"topic" validate:"required"`
	CompanyName            string `json:"company_name"`
	RolePosition           string `json:"role_position"`
	Description            string `json:"description"`
	AIProvider             string `json:"ai_provider"`
	QuestionsPerDifficulty int    `json:"questions_per_difficulty" validate:"min=0,max=100"`
}

type ApprovalRequest struct {
	Topic                  string              `json:"topic" validate:"required"`
	TestID                 int64               `json:"test_id" validate:"required,gt=0"`
	DifficultyID           int                 `json:"difficulty_id" validate:"min=0,max=5"`
	ApproveAllDifficulties bool                `json:"approve_all_difficulties"`
	Questions              []CandidateQuestion `json:"questions" validate:"omitempty,dive"`
}

type PreviewResponse struct {
	Message   string              `json:"message"`
	Topic     string              `json:"topic"`
	Count     int                 `json:"count"`
	Questions []CandidateQuestion `json:"questions"`
}

type LevelPreview struct {
	DifficultyLevel int                 `json:"difficulty_level"`
	Difficulty      string              `json:"difficulty"`
	Count           int                 `json:"count"`
	Questions       []CandidateQuestion `json:"questions"`
}

type GenerateAllResponse struct {
	Message string         `json:"message"`
	Topic   string         `json:"topic"`
	Total   int            `json:"total"`
	Levels  []LevelPreview `json:"levels"`
}

type ApproveResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
}
