package polls

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/grouppulse/backend/internal/models"
)

// Grade is the server-side result of checking a quiz submission. Correctness
// is never trusted from the client.
type Grade struct {
	Correct bool `json:"correct"`
	Points  int  `json:"points"`
}

// scaleEpsilon absorbs float rounding when checking step reachability.
const scaleEpsilon = 1e-9

// Validate checks that a submitted payload matches the poll variant's
// expected answer shape. priorEntries is the participant's number of earlier
// submissions to this poll (word-cloud bounds entries per participant).
// For quiz polls the returned grade carries server-side correctness and
// points; it is nil for every other variant. A mismatch returns a
// models.ShapeError naming the violated constraint; payloads are never
// coerced or truncated.
func Validate(p *models.Poll, payload json.RawMessage, priorEntries int) (*Grade, error) {
	data, err := p.DecodeData()
	if err != nil {
		return nil, fmt.Errorf("decode poll data: %w", err)
	}

	switch d := data.(type) {
	case *models.MultipleChoiceData:
		return nil, validateChoice(payload, optionIDs(d.Options), d.AllowMultipleAnswers)
	case *models.WordCloudData:
		return nil, validateWordCloud(payload, d, priorEntries)
	case *models.OpenEndedData:
		return nil, validateOpenEnded(payload, d)
	case *models.ScaleData:
		return nil, validateScale(payload, d)
	case *models.SliderData:
		return nil, validateSlider(payload, d)
	case *models.RankingData:
		return nil, validateRanking(payload, d)
	case *models.QAData:
		return nil, models.NewShapeError("variant", "qa polls collect questions, not poll responses")
	case *models.QuizData:
		return validateQuiz(payload, d)
	case *models.ImageChoiceData:
		return nil, validateChoice(payload, imageOptionIDs(d.Options), false)
	default:
		return nil, fmt.Errorf("unhandled poll type %q", p.Type)
	}
}

func optionIDs(opts []models.Option) map[string]bool {
	ids := make(map[string]bool, len(opts))
	for _, o := range opts {
		ids[o.ID] = true
	}
	return ids
}

func imageOptionIDs(opts []models.ImageOption) map[string]bool {
	ids := make(map[string]bool, len(opts))
	for _, o := range opts {
		ids[o.ID] = true
	}
	return ids
}

// validateChoice covers multiple-choice shaped answers: a single option id
// string when multi-select is off, a non-empty set of distinct known option
// ids when it is on.
func validateChoice(payload json.RawMessage, known map[string]bool, allowMultiple bool) error {
	if !allowMultiple {
		var id string
		if err := json.Unmarshal(payload, &id); err != nil {
			return models.NewShapeError("single_option", "payload must be a single option id string")
		}
		if !known[id] {
			return models.NewShapeError("option_membership", fmt.Sprintf("option %q does not exist on this poll", id))
		}
		return nil
	}

	var ids []string
	if err := json.Unmarshal(payload, &ids); err != nil {
		return models.NewShapeError("option_set", "payload must be an array of option ids")
	}
	if len(ids) == 0 {
		return models.NewShapeError("option_set", "at least one option id is required")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			return models.NewShapeError("option_membership", fmt.Sprintf("option %q does not exist on this poll", id))
		}
		if seen[id] {
			return models.NewShapeError("option_set", fmt.Sprintf("option %q selected more than once", id))
		}
		seen[id] = true
	}
	return nil
}

func validateWordCloud(payload json.RawMessage, d *models.WordCloudData, priorEntries int) error {
	var entry string
	if err := json.Unmarshal(payload, &entry); err != nil {
		return models.NewShapeError("entry", "payload must be a string")
	}
	if entry == "" {
		return models.NewShapeError("entry", "entry must not be empty")
	}
	if d.MaxEntries > 0 && priorEntries >= d.MaxEntries {
		return models.NewShapeError("max_entries", fmt.Sprintf("participant already submitted %d of %d entries", priorEntries, d.MaxEntries))
	}
	return nil
}

func validateOpenEnded(payload json.RawMessage, d *models.OpenEndedData) error {
	var text string
	if err := json.Unmarshal(payload, &text); err != nil {
		return models.NewShapeError("text", "payload must be a string")
	}
	if text == "" {
		return models.NewShapeError("text", "response must not be empty")
	}
	if d.MaxResponseLength > 0 && len([]rune(text)) > d.MaxResponseLength {
		return models.NewShapeError("max_response_length", fmt.Sprintf("response exceeds %d characters", d.MaxResponseLength))
	}
	return nil
}

func validateScale(payload json.RawMessage, d *models.ScaleData) error {
	var v float64
	if err := json.Unmarshal(payload, &v); err != nil {
		return models.NewShapeError("number", "payload must be a number")
	}
	if v < d.Min || v > d.Max {
		return models.NewShapeError("range", fmt.Sprintf("value %v outside [%v, %v]", v, d.Min, d.Max))
	}
	if d.Step > 0 {
		steps := (v - d.Min) / d.Step
		if math.Abs(steps-math.Round(steps)) > scaleEpsilon {
			return models.NewShapeError("step", fmt.Sprintf("value %v not reachable from %v in steps of %v", v, d.Min, d.Step))
		}
	}
	return nil
}

func validateSlider(payload json.RawMessage, d *models.SliderData) error {
	var v float64
	if err := json.Unmarshal(payload, &v); err != nil {
		return models.NewShapeError("number", "payload must be a number")
	}
	if v != math.Trunc(v) {
		return models.NewShapeError("integer", fmt.Sprintf("value %v must be an integer", v))
	}
	if v < 0 || v > float64(d.Steps) {
		return models.NewShapeError("range", fmt.Sprintf("value %v outside [0, %d]", v, d.Steps))
	}
	return nil
}

// validateRanking requires a permutation of every option id: no omissions,
// no duplicates, no unknown ids.
func validateRanking(payload json.RawMessage, d *models.RankingData) error {
	var order []string
	if err := json.Unmarshal(payload, &order); err != nil {
		return models.NewShapeError("ranking", "payload must be an ordered array of option ids")
	}
	known := optionIDs(d.Options)
	if len(order) != len(known) {
		return models.NewShapeError("ranking", fmt.Sprintf("ranking has %d entries, poll has %d options", len(order), len(known)))
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !known[id] {
			return models.NewShapeError("option_membership", fmt.Sprintf("option %q does not exist on this poll", id))
		}
		if seen[id] {
			return models.NewShapeError("ranking", fmt.Sprintf("option %q ranked more than once", id))
		}
		seen[id] = true
	}
	return nil
}

func validateQuiz(payload json.RawMessage, d *models.QuizData) (*Grade, error) {
	var id string
	if err := json.Unmarshal(payload, &id); err != nil {
		return nil, models.NewShapeError("single_option", "payload must be a single option id string")
	}
	var chosen *models.QuizOption
	for i := range d.Options {
		if d.Options[i].ID == id {
			chosen = &d.Options[i]
			break
		}
	}
	if chosen == nil {
		return nil, models.NewShapeError("option_membership", fmt.Sprintf("option %q does not exist on this poll", id))
	}
	grade := &Grade{Correct: chosen.IsCorrect}
	if grade.Correct {
		grade.Points = d.PointsPerQuestion
	}
	return grade, nil
}
