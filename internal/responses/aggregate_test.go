package responses

import (
	"encoding/json"
	"testing"

	"github.com/grouppulse/backend/internal/models"
)

func mustPoll(t *testing.T, typ models.PollType, data interface{}) *models.Poll {
	t.Helper()
	raw, err := models.EncodeData(typ, data)
	if err != nil {
		t.Fatalf("encode poll data: %v", err)
	}
	return &models.Poll{Type: typ, Data: raw}
}

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return b
}

func TestBuildAggregateChoices(t *testing.T) {
	p := mustPoll(t, models.PollMultipleChoice, &models.MultipleChoiceData{
		Question: "Favorite?",
		Options:  []models.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
	})
	list := []models.PollResponse{
		{Payload: raw(t, "a")},
		{Payload: raw(t, "a")},
		{Payload: raw(t, "b")},
		{Payload: json.RawMessage(`{broken`)},
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		t.Fatalf("BuildAggregate: %v", err)
	}
	if got := agg["total"].(int); got != 3 {
		t.Errorf("total = %d, want 3", got)
	}
	counts := agg["counts"].(map[string]int)
	if counts["a"] != 2 || counts["b"] != 1 {
		t.Errorf("counts = %v, want a:2 b:1", counts)
	}
}

func TestBuildAggregateWordsFoldsCase(t *testing.T) {
	p := mustPoll(t, models.PollWordCloud, &models.WordCloudData{Question: "One word?"})
	list := []models.PollResponse{
		{Payload: raw(t, "Go")},
		{Payload: raw(t, "go ")},
		{Payload: raw(t, "rust")},
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		t.Fatalf("BuildAggregate: %v", err)
	}
	words := agg["words"].(map[string]int)
	if words["go"] != 2 || words["rust"] != 1 {
		t.Errorf("words = %v, want go:2 rust:1", words)
	}
}

func TestBuildAggregateNumbers(t *testing.T) {
	p := mustPoll(t, models.PollScale, &models.ScaleData{Question: "Rate", Min: 1, Max: 5, Step: 1})
	list := []models.PollResponse{
		{Payload: raw(t, 2)},
		{Payload: raw(t, 4)},
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		t.Fatalf("BuildAggregate: %v", err)
	}
	if got := agg["average"].(float64); got != 3 {
		t.Errorf("average = %v, want 3", got)
	}
	dist := agg["distribution"].(map[string]int)
	if dist["2"] != 1 || dist["4"] != 1 {
		t.Errorf("distribution = %v", dist)
	}
}

func TestBuildAggregateRankings(t *testing.T) {
	p := mustPoll(t, models.PollRanking, &models.RankingData{
		Question: "Order these",
		Options:  []models.Option{{ID: "x", Text: "X"}, {ID: "y", Text: "Y"}},
	})
	list := []models.PollResponse{
		{Payload: raw(t, []string{"x", "y"})},
		{Payload: raw(t, []string{"y", "x"})},
		{Payload: raw(t, []string{"x"})}, // wrong length, skipped
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		t.Fatalf("BuildAggregate: %v", err)
	}
	if got := agg["total"].(int); got != 2 {
		t.Errorf("total = %d, want 2", got)
	}
	avgs := agg["average_rank"].(map[string]float64)
	if avgs["x"] != 1.5 || avgs["y"] != 1.5 {
		t.Errorf("average_rank = %v, want x:1.5 y:1.5", avgs)
	}
}

func TestBuildAggregateQuizCountsCorrect(t *testing.T) {
	p := mustPoll(t, models.PollQuiz, &models.QuizData{
		Question: "2+2?",
		Options: []models.QuizOption{
			{ID: "three", Text: "3"},
			{ID: "four", Text: "4", IsCorrect: true},
		},
		PointsPerQuestion: 10,
	})
	yes, no := true, false
	list := []models.PollResponse{
		{Payload: raw(t, "four"), IsCorrect: &yes},
		{Payload: raw(t, "three"), IsCorrect: &no},
	}
	agg, err := BuildAggregate(p, list)
	if err != nil {
		t.Fatalf("BuildAggregate: %v", err)
	}
	if got := agg["correct"].(int); got != 1 {
		t.Errorf("correct = %d, want 1", got)
	}
}

func TestBuildAggregateRejectsQA(t *testing.T) {
	p := mustPoll(t, models.PollQA, &models.QAData{Title: "Ask away"})
	if _, err := BuildAggregate(p, nil); err == nil {
		t.Fatal("expected error for qa polls")
	}
}
