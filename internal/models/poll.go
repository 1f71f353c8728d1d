package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PollType is the discriminant of the interactive element union.
type PollType string

const (
	PollMultipleChoice PollType = "multiple_choice"
	PollWordCloud      PollType = "word_cloud"
	PollOpenEnded      PollType = "open_ended"
	PollScale          PollType = "scale"
	PollSlider         PollType = "slider"
	PollRanking        PollType = "ranking"
	PollQA             PollType = "qa"
	PollQuiz           PollType = "quiz"
	PollImageChoice    PollType = "image_choice"
)

// PollTypes lists every known variant.
var PollTypes = []PollType{
	PollMultipleChoice, PollWordCloud, PollOpenEnded, PollScale,
	PollSlider, PollRanking, PollQA, PollQuiz, PollImageChoice,
}

// Valid reports whether t is one of the nine known variants.
func (t PollType) Valid() bool {
	for _, known := range PollTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Poll is one interactive element attached to a session. Type is immutable
// after creation; changing a poll's type is delete + recreate. Data holds
// the variant payload as persisted JSON.
type Poll struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Type      PollType        `json:"type"`
	Position  int             `json:"position"`
	Data      json.RawMessage `json:"data"`
	Launched  bool            `json:"launched"`
	Closed    bool            `json:"closed"`
	CreatedAt time.Time       `json:"created_at"`
}

// Option is one choice in a multiple-choice or ranking poll.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// QuizOption is one choice in a quiz poll. IsCorrect never leaves the server
// for participant views; handlers strip it.
type QuizOption struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// ImageOption is one choice in an image-choice poll.
type ImageOption struct {
	ID       string `json:"id"`
	ImageURL string `json:"image_url"`
	Caption  string `json:"caption,omitempty"`
}

// MultipleChoiceData is the payload for multiple_choice polls.
type MultipleChoiceData struct {
	Question             string   `json:"question"`
	Options              []Option `json:"options"`
	AllowMultipleAnswers bool     `json:"allow_multiple_answers"`
}

// WordCloudData is the payload for word_cloud polls. MaxEntries bounds
// submissions per participant; 0 means unlimited.
type WordCloudData struct {
	Question   string `json:"question"`
	MaxEntries int    `json:"max_entries"`
}

// OpenEndedData is the payload for open_ended polls. MaxResponseLength of 0
// means no cap.
type OpenEndedData struct {
	Question          string `json:"question"`
	MaxResponseLength int    `json:"max_response_length,omitempty"`
}

// ScaleData is the payload for scale polls. Valid answers are Min + k*Step
// within [Min, Max].
type ScaleData struct {
	Question string            `json:"question"`
	Min      float64           `json:"min"`
	Max      float64           `json:"max"`
	Step     float64           `json:"step"`
	Labels   map[string]string `json:"labels,omitempty"`
}

// SliderData is the payload for slider polls (bipolar preference). Valid
// answers are integers in [0, Steps].
type SliderData struct {
	Question    string `json:"question"`
	LeftOption  string `json:"left_option"`
	RightOption string `json:"right_option"`
	Steps       int    `json:"steps"`
}

// RankingData is the payload for ranking polls. A valid answer is a
// permutation of all option ids.
type RankingData struct {
	Question string   `json:"question"`
	Options  []Option `json:"options"`
}

// QAData is the payload for qa polls. QA elements collect threaded questions
// rather than single answers; see the questions package.
type QAData struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	AllowAnonymous bool   `json:"allow_anonymous"`
	AllowUpvoting  bool   `json:"allow_upvoting"`
}

// QuizData is the payload for quiz polls. Grading is server-side only.
type QuizData struct {
	Question          string       `json:"question"`
	Options           []QuizOption `json:"options"`
	ShowCorrectAnswer bool         `json:"show_correct_answer"`
	PointsPerQuestion int          `json:"points_per_question,omitempty"`
}

// ImageChoiceData is the payload for image_choice polls.
type ImageChoiceData struct {
	Question string        `json:"question"`
	Options  []ImageOption `json:"options"`
}

// DecodeData unmarshals the poll's payload into its variant-specific type.
// The switch is exhaustive over PollTypes; an unknown discriminant is an
// error, never a silent fallthrough.
func (p *Poll) DecodeData() (interface{}, error) {
	switch p.Type {
	case PollMultipleChoice:
		var d MultipleChoiceData
		return &d, json.Unmarshal(p.Data, &d)
	case PollWordCloud:
		var d WordCloudData
		return &d, json.Unmarshal(p.Data, &d)
	case PollOpenEnded:
		var d OpenEndedData
		return &d, json.Unmarshal(p.Data, &d)
	case PollScale:
		var d ScaleData
		return &d, json.Unmarshal(p.Data, &d)
	case PollSlider:
		var d SliderData
		return &d, json.Unmarshal(p.Data, &d)
	case PollRanking:
		var d RankingData
		return &d, json.Unmarshal(p.Data, &d)
	case PollQA:
		var d QAData
		return &d, json.Unmarshal(p.Data, &d)
	case PollQuiz:
		var d QuizData
		return &d, json.Unmarshal(p.Data, &d)
	case PollImageChoice:
		var d ImageChoiceData
		return &d, json.Unmarshal(p.Data, &d)
	default:
		return nil, fmt.Errorf("unknown poll type %q", p.Type)
	}
}

// EncodeData marshals a variant payload and verifies it decodes under the
// given type, so a poll row never holds a payload its discriminant cannot
// read back.
func EncodeData(t PollType, data interface{}) (json.RawMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode %s data: %w", t, err)
	}
	trial := Poll{Type: t, Data: raw}
	if _, err := trial.DecodeData(); err != nil {
		return nil, fmt.Errorf("encode %s data: %w", t, err)
	}
	return raw, nil
}
