package polls

import (
	"encoding/json"
	"testing"

	"github.com/grouppulse/backend/internal/models"
)

func mustPoll(t *testing.T, typ models.PollType, data interface{}) *models.Poll {
	t.Helper()
	raw, err := models.EncodeData(typ, data)
	if err != nil {
		t.Fatalf("encode %s data: %v", typ, err)
	}
	return &models.Poll{Type: typ, Data: raw}
}

func TestValidateMultipleChoice(t *testing.T) {
	single := mustPoll(t, models.PollMultipleChoice, models.MultipleChoiceData{
		Question: "Favorite?",
		Options:  []models.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}},
	})
	multi := mustPoll(t, models.PollMultipleChoice, models.MultipleChoiceData{
		Question:             "Pick several",
		Options:              []models.Option{{ID: "a"}, {ID: "b"}, {ID: "c"}},
		AllowMultipleAnswers: true,
	})

	tests := []struct {
		name    string
		poll    *models.Poll
		payload string
		wantOK  bool
	}{
		{"single valid", single, `"a"`, true},
		{"single unknown option", single, `"z"`, false},
		{"single rejects array", single, `["a","b"]`, false},
		{"single rejects number", single, `3`, false},
		{"multi valid", multi, `["a","c"]`, true},
		{"multi rejects empty set", multi, `[]`, false},
		{"multi rejects duplicates", multi, `["a","a"]`, false},
		{"multi rejects unknown option", multi, `["a","z"]`, false},
		{"multi rejects bare string", multi, `"a"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(tt.poll, json.RawMessage(tt.payload), 0)
			if tt.wantOK && err != nil {
				t.Errorf("Validate(%s) = %v, want ok", tt.payload, err)
			}
			if !tt.wantOK {
				if err == nil {
					t.Fatalf("Validate(%s) accepted malformed payload", tt.payload)
				}
				if !models.IsShapeError(err) {
					t.Errorf("Validate(%s) error = %v, want ShapeError", tt.payload, err)
				}
			}
		})
	}
}

func TestValidateWordCloud(t *testing.T) {
	poll := mustPoll(t, models.PollWordCloud, models.WordCloudData{Question: "One word?", MaxEntries: 3})

	if _, err := Validate(poll, json.RawMessage(`"golang"`), 0); err != nil {
		t.Errorf("first entry rejected: %v", err)
	}
	if _, err := Validate(poll, json.RawMessage(`"golang"`), 2); err != nil {
		t.Errorf("entry below cap rejected: %v", err)
	}
	if _, err := Validate(poll, json.RawMessage(`"golang"`), 3); !models.IsShapeError(err) {
		t.Errorf("entry at cap = %v, want ShapeError", err)
	}
	if _, err := Validate(poll, json.RawMessage(`""`), 0); !models.IsShapeError(err) {
		t.Errorf("empty entry = %v, want ShapeError", err)
	}
	if _, err := Validate(poll, json.RawMessage(`42`), 0); !models.IsShapeError(err) {
		t.Errorf("numeric entry = %v, want ShapeError", err)
	}
}

func TestValidateOpenEnded(t *testing.T) {
	capped := mustPoll(t, models.PollOpenEnded, models.OpenEndedData{Question: "Thoughts?", MaxResponseLength: 10})
	uncapped := mustPoll(t, models.PollOpenEnded, models.OpenEndedData{Question: "Thoughts?"})

	if _, err := Validate(capped, json.RawMessage(`"short"`), 0); err != nil {
		t.Errorf("short response rejected: %v", err)
	}
	if _, err := Validate(capped, json.RawMessage(`"way too long answer"`), 0); !models.IsShapeError(err) {
		t.Errorf("over-length response = %v, want ShapeError", err)
	}
	if _, err := Validate(uncapped, json.RawMessage(`"any length is fine when no cap is set on the poll"`), 0); err != nil {
		t.Errorf("uncapped response rejected: %v", err)
	}
}

func TestValidateScale(t *testing.T) {
	poll := mustPoll(t, models.PollScale, models.ScaleData{Question: "Rate", Min: 1, Max: 10, Step: 1})

	tests := []struct {
		payload string
		wantOK  bool
	}{
		{`7`, true},
		{`1`, true},
		{`10`, true},
		{`11`, false},
		{`0`, false},
		{`7.5`, false}, // not reachable by step
		{`"7"`, false},
	}
	for _, tt := range tests {
		_, err := Validate(poll, json.RawMessage(tt.payload), 0)
		if tt.wantOK && err != nil {
			t.Errorf("Validate(%s) = %v, want ok", tt.payload, err)
		}
		if !tt.wantOK && !models.IsShapeError(err) {
			t.Errorf("Validate(%s) = %v, want ShapeError", tt.payload, err)
		}
	}

	fractional := mustPoll(t, models.PollScale, models.ScaleData{Question: "Rate", Min: 0, Max: 1, Step: 0.1})
	if _, err := Validate(fractional, json.RawMessage(`0.3`), 0); err != nil {
		t.Errorf("0.3 on 0.1 steps rejected: %v", err)
	}
	if _, err := Validate(fractional, json.RawMessage(`0.35`), 0); !models.IsShapeError(err) {
		t.Errorf("0.35 on 0.1 steps = %v, want ShapeError", err)
	}
}

func TestValidateSlider(t *testing.T) {
	poll := mustPoll(t, models.PollSlider, models.SliderData{
		Question: "Lean?", LeftOption: "Cats", RightOption: "Dogs", Steps: 10,
	})

	tests := []struct {
		payload string
		wantOK  bool
	}{
		{`0`, true},
		{`10`, true},
		{`5`, true},
		{`11`, false},
		{`-1`, false},
		{`4.5`, false},
		{`"5"`, false},
	}
	for _, tt := range tests {
		_, err := Validate(poll, json.RawMessage(tt.payload), 0)
		if tt.wantOK && err != nil {
			t.Errorf("Validate(%s) = %v, want ok", tt.payload, err)
		}
		if !tt.wantOK && !models.IsShapeError(err) {
			t.Errorf("Validate(%s) = %v, want ShapeError", tt.payload, err)
		}
	}
}

func TestValidateRanking(t *testing.T) {
	poll := mustPoll(t, models.PollRanking, models.RankingData{
		Question: "Order these",
		Options:  []models.Option{{ID: "x"}, {ID: "y"}, {ID: "z"}},
	})

	tests := []struct {
		name    string
		payload string
		wantOK  bool
	}{
		{"full permutation", `["y","x","z"]`, true},
		{"missing option", `["x","y"]`, false},
		{"duplicate option", `["x","x","z"]`, false},
		{"unknown option", `["x","y","w"]`, false},
		{"too many entries", `["x","y","z","x"]`, false},
		{"not an array", `"x"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate(poll, json.RawMessage(tt.payload), 0)
			if tt.wantOK && err != nil {
				t.Errorf("Validate(%s) = %v, want ok", tt.payload, err)
			}
			if !tt.wantOK && !models.IsShapeError(err) {
				t.Errorf("Validate(%s) = %v, want ShapeError", tt.payload, err)
			}
		})
	}
}

func TestValidateQuizGradesServerSide(t *testing.T) {
	poll := mustPoll(t, models.PollQuiz, models.QuizData{
		Question: "2+2?",
		Options: []models.QuizOption{
			{ID: "a", Text: "3"},
			{ID: "b", Text: "4", IsCorrect: true},
		},
		ShowCorrectAnswer: true,
		PointsPerQuestion: 100,
	})

	grade, err := Validate(poll, json.RawMessage(`"b"`), 0)
	if err != nil {
		t.Fatalf("correct answer rejected: %v", err)
	}
	if grade == nil || !grade.Correct || grade.Points != 100 {
		t.Errorf("grade = %+v, want correct with 100 points", grade)
	}

	grade, err = Validate(poll, json.RawMessage(`"a"`), 0)
	if err != nil {
		t.Fatalf("incorrect answer rejected: %v", err)
	}
	if grade == nil || grade.Correct || grade.Points != 0 {
		t.Errorf("grade = %+v, want incorrect with 0 points", grade)
	}

	if _, err := Validate(poll, json.RawMessage(`"z"`), 0); !models.IsShapeError(err) {
		t.Errorf("unknown quiz option = %v, want ShapeError", err)
	}
}

func TestValidateImageChoice(t *testing.T) {
	poll := mustPoll(t, models.PollImageChoice, models.ImageChoiceData{
		Question: "Which slide?",
		Options: []models.ImageOption{
			{ID: "img1", ImageURL: "https://cdn.example.com/1.png"},
			{ID: "img2", ImageURL: "https://cdn.example.com/2.png", Caption: "Second"},
		},
	})

	if _, err := Validate(poll, json.RawMessage(`"img2"`), 0); err != nil {
		t.Errorf("valid image option rejected: %v", err)
	}
	if _, err := Validate(poll, json.RawMessage(`"nope"`), 0); !models.IsShapeError(err) {
		t.Errorf("unknown image option = %v, want ShapeError", err)
	}
	if _, err := Validate(poll, json.RawMessage(`["img1","img2"]`), 0); !models.IsShapeError(err) {
		t.Errorf("array payload on image choice = %v, want ShapeError", err)
	}
}

func TestValidateQARejectsResponses(t *testing.T) {
	poll := mustPoll(t, models.PollQA, models.QAData{Title: "Ask anything", AllowAnonymous: true, AllowUpvoting: true})
	if _, err := Validate(poll, json.RawMessage(`"hi"`), 0); !models.IsShapeError(err) {
		t.Errorf("qa response = %v, want ShapeError", err)
	}
}
