package models

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/uuid"
)

// variantFixtures covers every member of the poll union.
func variantFixtures() map[PollType]interface{} {
	return map[PollType]interface{}{
		PollMultipleChoice: MultipleChoiceData{
			Question:             "Pick one",
			Options:              []Option{{ID: "a", Text: "Alpha"}, {ID: "b", Text: "Beta"}},
			AllowMultipleAnswers: false,
		},
		PollWordCloud: WordCloudData{Question: "One word", MaxEntries: 3},
		PollOpenEnded: OpenEndedData{Question: "Thoughts?", MaxResponseLength: 280},
		PollScale: ScaleData{
			Question: "Rate it", Min: 1, Max: 10, Step: 1,
			Labels: map[string]string{"1": "awful", "10": "great"},
		},
		PollSlider: SliderData{Question: "Lean?", LeftOption: "Cats", RightOption: "Dogs", Steps: 10},
		PollRanking: RankingData{
			Question: "Order these",
			Options:  []Option{{ID: "x", Text: "X"}, {ID: "y", Text: "Y"}, {ID: "z", Text: "Z"}},
		},
		PollQA: QAData{Title: "AMA", Description: "Ask anything", AllowAnonymous: true, AllowUpvoting: true},
		PollQuiz: QuizData{
			Question: "2+2?",
			Options: []QuizOption{
				{ID: "a", Text: "3"},
				{ID: "b", Text: "4", IsCorrect: true},
			},
			ShowCorrectAnswer: true,
			PointsPerQuestion: 100,
		},
		PollImageChoice: ImageChoiceData{
			Question: "Which slide?",
			Options: []ImageOption{
				{ID: "img1", ImageURL: "https://cdn.example.com/1.png"},
				{ID: "img2", ImageURL: "https://cdn.example.com/2.png", Caption: "Second"},
			},
		},
	}
}

func TestPollTypesCoverAllVariants(t *testing.T) {
	fixtures := variantFixtures()
	if len(fixtures) != len(PollTypes) {
		t.Fatalf("fixtures cover %d variants, union has %d", len(fixtures), len(PollTypes))
	}
	for _, typ := range PollTypes {
		if !typ.Valid() {
			t.Errorf("PollType %q not reported valid", typ)
		}
		if _, ok := fixtures[typ]; !ok {
			t.Errorf("no fixture for variant %q", typ)
		}
	}
	if PollType("karaoke").Valid() {
		t.Error("unknown type reported valid")
	}
}

// TestPollRoundTrip serializes each variant to its persisted shape and back,
// checking that discriminant and payload survive unchanged.
func TestPollRoundTrip(t *testing.T) {
	for typ, data := range variantFixtures() {
		t.Run(string(typ), func(t *testing.T) {
			raw, err := EncodeData(typ, data)
			if err != nil {
				t.Fatalf("EncodeData: %v", err)
			}
			original := Poll{
				ID:        uuid.New(),
				SessionID: uuid.New(),
				Type:      typ,
				Position:  2,
				Data:      raw,
			}

			serialized, err := json.Marshal(original)
			if err != nil {
				t.Fatalf("marshal poll: %v", err)
			}
			var restored Poll
			if err := json.Unmarshal(serialized, &restored); err != nil {
				t.Fatalf("unmarshal poll: %v", err)
			}

			if restored.Type != original.Type {
				t.Errorf("discriminant changed: %q -> %q", original.Type, restored.Type)
			}
			if restored.ID != original.ID || restored.SessionID != original.SessionID {
				t.Error("identifiers changed in round trip")
			}

			decoded, err := restored.DecodeData()
			if err != nil {
				t.Fatalf("DecodeData after round trip: %v", err)
			}
			want := reflect.New(reflect.TypeOf(data))
			want.Elem().Set(reflect.ValueOf(data))
			if !reflect.DeepEqual(decoded, want.Interface()) {
				t.Errorf("payload changed in round trip:\n got %#v\nwant %#v", decoded, want.Interface())
			}
		})
	}
}

func TestDecodeDataRejectsUnknownType(t *testing.T) {
	p := Poll{Type: "karaoke", Data: json.RawMessage(`{}`)}
	if _, err := p.DecodeData(); err == nil {
		t.Error("DecodeData accepted unknown discriminant")
	}
}

func TestEncodeDataRejectsMismatchedPayload(t *testing.T) {
	// A scale payload under the multiple_choice discriminant must not encode.
	if _, err := EncodeData(PollMultipleChoice, []int{1, 2, 3}); err == nil {
		t.Error("EncodeData accepted payload that cannot decode under its type")
	}
}
