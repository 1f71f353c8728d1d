package polls

import (
	"encoding/json"
	"testing"

	"github.com/grouppulse/backend/internal/models"
)

func configPoll(t *testing.T, typ models.PollType, data string) *models.Poll {
	t.Helper()
	return &models.Poll{Type: typ, Data: json.RawMessage(data)}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		poll   *models.Poll
		wantOK bool
	}{
		{
			"multiple choice with two options",
			configPoll(t, models.PollMultipleChoice, `{"question":"?","options":[{"id":"a","text":"A"},{"id":"b","text":"B"}]}`),
			true,
		},
		{
			"multiple choice with one option",
			configPoll(t, models.PollMultipleChoice, `{"question":"?","options":[{"id":"a","text":"A"}]}`),
			false,
		},
		{
			"multiple choice with duplicate option ids",
			configPoll(t, models.PollMultipleChoice, `{"question":"?","options":[{"id":"a","text":"A"},{"id":"a","text":"B"}]}`),
			false,
		},
		{
			"scale with inverted range",
			configPoll(t, models.PollScale, `{"question":"?","min":5,"max":1,"step":1}`),
			false,
		},
		{
			"scale with zero step",
			configPoll(t, models.PollScale, `{"question":"?","min":1,"max":5,"step":0}`),
			false,
		},
		{
			"slider without end labels",
			configPoll(t, models.PollSlider, `{"question":"?","left_option":"","right_option":"agree","steps":10}`),
			false,
		},
		{
			"quiz without a correct option",
			configPoll(t, models.PollQuiz, `{"question":"?","options":[{"id":"a","text":"A"},{"id":"b","text":"B"}]}`),
			false,
		},
		{
			"quiz with a correct option",
			configPoll(t, models.PollQuiz, `{"question":"?","options":[{"id":"a","text":"A","is_correct":true},{"id":"b","text":"B"}]}`),
			true,
		},
		{
			"image choice missing image url",
			configPoll(t, models.PollImageChoice, `{"question":"?","options":[{"id":"a","image_url":""},{"id":"b","image_url":"https://x/b.png"}]}`),
			false,
		},
		{
			"word cloud without question",
			configPoll(t, models.PollWordCloud, `{"question":""}`),
			false,
		},
		{
			"qa with title",
			configPoll(t, models.PollQA, `{"title":"Ask me anything"}`),
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfig(tt.poll)
			if tt.wantOK && err != nil {
				t.Errorf("ValidateConfig() = %v, want ok", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("ValidateConfig() accepted invalid config")
			}
		})
	}
}
