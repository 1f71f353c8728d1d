package polls

import (
	"fmt"

	"github.com/grouppulse/backend/internal/models"
)

// ValidateConfig checks a poll's variant payload at creation time: the data
// must decode under the declared type and satisfy the variant's structural
// rules (enough options, unique option ids, sane numeric ranges).
func ValidateConfig(p *models.Poll) error {
	data, err := p.DecodeData()
	if err != nil {
		return fmt.Errorf("poll data does not match type %s: %w", p.Type, err)
	}

	switch d := data.(type) {
	case *models.MultipleChoiceData:
		return checkOptions(optionList(d.Options), 2)
	case *models.WordCloudData:
		if d.Question == "" {
			return fmt.Errorf("word cloud requires a question")
		}
		if d.MaxEntries < 0 {
			return fmt.Errorf("max_entries must not be negative")
		}
	case *models.OpenEndedData:
		if d.Question == "" {
			return fmt.Errorf("open ended poll requires a question")
		}
		if d.MaxResponseLength < 0 {
			return fmt.Errorf("max_response_length must not be negative")
		}
	case *models.ScaleData:
		if d.Max <= d.Min {
			return fmt.Errorf("scale max must exceed min")
		}
		if d.Step <= 0 {
			return fmt.Errorf("scale step must be positive")
		}
	case *models.SliderData:
		if d.Steps <= 0 {
			return fmt.Errorf("slider steps must be positive")
		}
		if d.LeftOption == "" || d.RightOption == "" {
			return fmt.Errorf("slider requires both end labels")
		}
	case *models.RankingData:
		return checkOptions(optionList(d.Options), 2)
	case *models.QAData:
		if d.Title == "" {
			return fmt.Errorf("qa element requires a title")
		}
	case *models.QuizData:
		ids := make([]string, len(d.Options))
		correct := 0
		for i, o := range d.Options {
			ids[i] = o.ID
			if o.IsCorrect {
				correct++
			}
		}
		if err := checkOptions(ids, 2); err != nil {
			return err
		}
		if correct == 0 {
			return fmt.Errorf("quiz requires at least one correct option")
		}
	case *models.ImageChoiceData:
		ids := make([]string, len(d.Options))
		for i, o := range d.Options {
			ids[i] = o.ID
			if o.ImageURL == "" {
				return fmt.Errorf("image option %q has no image_url", o.ID)
			}
		}
		return checkOptions(ids, 2)
	}
	return nil
}

func optionList(opts []models.Option) []string {
	ids := make([]string, len(opts))
	for i, o := range opts {
		ids[i] = o.ID
	}
	return ids
}

func checkOptions(ids []string, min int) error {
	if len(ids) < min {
		return fmt.Errorf("at least %d options are required", min)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return fmt.Errorf("option ids must not be empty")
		}
		if seen[id] {
			return fmt.Errorf("duplicate option id %q", id)
		}
		seen[id] = true
	}
	return nil
}
