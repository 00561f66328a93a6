package studyaids

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const (
	quizMinChars     = 100
	quizMaxChars     = 15000
	defaultQuestions = 10
	maxQuestions     = 50
)

// Difficulty of generated questions.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

var difficultyInstructions = map[Difficulty]string{
	DifficultyEasy:   "\n\nDIFFICULTY: EASY - Create simple, straightforward questions testing basic understanding and recall. Avoid complex scenarios or tricky wording.",
	DifficultyMedium: "\n\nDIFFICULTY: MEDIUM - Create moderately challenging questions that test comprehension and application of concepts.",
	DifficultyHard:   "\n\nDIFFICULTY: HARD - Create challenging questions requiring deep understanding, analysis, and critical thinking. Include complex scenarios and edge cases.",
}

// QuizOptions controls quiz generation.
type QuizOptions struct {
	Count      int        `json:"count"`
	Topics     string     `json:"topics,omitempty"`
	Difficulty Difficulty `json:"difficulty,omitempty"`
}

// Question is a multiple-choice question with exactly four options.
type Question struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
}

const quizPrompt = `You are a quiz generator. Based on the following text, generate exactly %d multiple choice questions.%s%s

TEXT:
%s

Generate %d multiple choice questions in this EXACT JSON format (no other text):
[
  {
    "question": "What is...",
    "options": ["Answer 1", "Answer 2", "Answer 3", "Answer 4"],
    "correct_answer": 0
  }
]

Rules:
- Each question must have exactly 4 options
- correct_answer is the index (0, 1, 2, or 3) of the correct option
- Questions should test key concepts from the text
- Return ONLY valid JSON, nothing else`

func (o QuizOptions) normalized() QuizOptions {
	if o.Count <= 0 {
		o.Count = defaultQuestions
	}
	o.Count = min(o.Count, maxQuestions)
	if _, ok := difficultyInstructions[o.Difficulty]; !ok {
		o.Difficulty = DifficultyMedium
	}
	o.Topics = strings.TrimSpace(o.Topics)
	return o
}

// Quiz generates multiple-choice questions. Items without four options or
// with an out of range answer index are dropped; at most Count are kept.
func (g *Generator) Quiz(ctx context.Context, text string, opts QuizOptions) ([]Question, error) {
	text, err := prepare(text, quizMinChars, quizMaxChars)
	if err != nil {
		return nil, err
	}
	opts = opts.normalized()

	var topics string
	if opts.Topics != "" {
		topics = fmt.Sprintf("\n\nIMPORTANT: Generate questions ONLY about the following topics: %s\nFocus exclusively on these topics and ignore other content in the text.", opts.Topics)
	}
	prompt := fmt.Sprintf(quizPrompt, opts.Count, topics, difficultyInstructions[opts.Difficulty], text, opts.Count)

	out, err := g.complete(ctx, prompt, 0.7, true)
	if err != nil {
		return nil, fmt.Errorf("generating quiz: %w", err)
	}

	items, err := jsonArray(out)
	if err != nil {
		return nil, err
	}

	var questions []Question
	for i, raw := range items {
		var q struct {
			Question      string   `json:"question"`
			Options       []string `json:"options"`
			CorrectAnswer *int     `json:"correct_answer"`
		}
		if err := json.Unmarshal(raw, &q); err != nil {
			g.logger.Debug("dropping question", zap.Int("item", i), zap.Error(err))
			continue
		}
		if strings.TrimSpace(q.Question) == "" || len(q.Options) != 4 || q.CorrectAnswer == nil ||
			*q.CorrectAnswer < 0 || *q.CorrectAnswer > 3 {
			continue
		}
		questions = append(questions, Question{Question: q.Question, Options: q.Options, CorrectAnswer: *q.CorrectAnswer})
		if len(questions) == opts.Count {
			break
		}
	}
	if len(questions) == 0 {
		return nil, ErrNoItems
	}
	return questions, nil
}
