package responses

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/grouppulse/backend/internal/models"
)

// BuildAggregate reduces a poll's responses to the summary shape rendered on
// presenter result views and persisted in result snapshots. Malformed stored
// payloads are counted as skipped rather than failing the whole aggregate.
func BuildAggregate(p *models.Poll, list []models.PollResponse) (map[string]interface{}, error) {
	data, err := p.DecodeData()
	if err != nil {
		return nil, fmt.Errorf("decode poll data: %w", err)
	}

	switch d := data.(type) {
	case *models.MultipleChoiceData:
		return aggregateChoices(list, d.AllowMultipleAnswers), nil
	case *models.WordCloudData:
		return aggregateWords(list), nil
	case *models.OpenEndedData:
		return aggregateTexts(list), nil
	case *models.ScaleData:
		return aggregateNumbers(list), nil
	case *models.SliderData:
		return aggregateNumbers(list), nil
	case *models.RankingData:
		return aggregateRankings(list, d.Options), nil
	case *models.QAData:
		return nil, fmt.Errorf("qa polls aggregate questions, not responses")
	case *models.QuizData:
		agg := aggregateChoices(list, false)
		correct := 0
		for _, resp := range list {
			if resp.IsCorrect != nil && *resp.IsCorrect {
				correct++
			}
		}
		agg["correct"] = correct
		return agg, nil
	case *models.ImageChoiceData:
		return aggregateChoices(list, false), nil
	default:
		return nil, fmt.Errorf("unhandled poll type %q", p.Type)
	}
}

func aggregateChoices(list []models.PollResponse, multi bool) map[string]interface{} {
	counts := map[string]int{}
	skipped := 0
	for _, resp := range list {
		if multi {
			var ids []string
			if err := json.Unmarshal(resp.Payload, &ids); err != nil {
				skipped++
				continue
			}
			for _, id := range ids {
				counts[id]++
			}
			continue
		}
		var id string
		if err := json.Unmarshal(resp.Payload, &id); err != nil {
			skipped++
			continue
		}
		counts[id]++
	}
	return map[string]interface{}{"total": len(list) - skipped, "counts": counts}
}

func aggregateWords(list []models.PollResponse) map[string]interface{} {
	freq := map[string]int{}
	skipped := 0
	for _, resp := range list {
		var word string
		if err := json.Unmarshal(resp.Payload, &word); err != nil || word == "" {
			skipped++
			continue
		}
		freq[strings.ToLower(strings.TrimSpace(word))]++
	}
	return map[string]interface{}{"total": len(list) - skipped, "words": freq}
}

func aggregateTexts(list []models.PollResponse) map[string]interface{} {
	texts := make([]string, 0, len(list))
	for _, resp := range list {
		var text string
		if err := json.Unmarshal(resp.Payload, &text); err != nil {
			continue
		}
		texts = append(texts, text)
	}
	return map[string]interface{}{"total": len(texts), "responses": texts}
}

func aggregateNumbers(list []models.PollResponse) map[string]interface{} {
	var sum float64
	distribution := map[string]int{}
	n := 0
	for _, resp := range list {
		var v float64
		if err := json.Unmarshal(resp.Payload, &v); err != nil {
			continue
		}
		sum += v
		n++
		distribution[trimFloat(v)]++
	}
	avg := 0.0
	if n > 0 {
		avg = sum / float64(n)
	}
	return map[string]interface{}{"total": n, "average": avg, "distribution": distribution}
}

// aggregateRankings computes the average rank per option; 1 is the top spot.
func aggregateRankings(list []models.PollResponse, options []models.Option) map[string]interface{} {
	rankSums := map[string]int{}
	n := 0
	for _, resp := range list {
		var order []string
		if err := json.Unmarshal(resp.Payload, &order); err != nil || len(order) != len(options) {
			continue
		}
		for rank, id := range order {
			rankSums[id] += rank + 1
		}
		n++
	}
	averages := map[string]float64{}
	if n > 0 {
		for id, sum := range rankSums {
			averages[id] = float64(sum) / float64(n)
		}
	}
	return map[string]interface{}{"total": n, "average_rank": averages}
}

func trimFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}
