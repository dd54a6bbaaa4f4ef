package quizzes

import (
	"testing"

	"github.com/google/uuid"
)

func buildQuestions(n int) []*Question {
	questions := make([]*Question, 0, n)
	for i := 0; i < n; i++ {
		q := &Question{ID: uuid.New(), Order: i + 1}
		correct := &Answer{ID: uuid.New(), QuestionID: q.ID, IsCorrect: true}
		wrong := &Answer{ID: uuid.New(), QuestionID: q.ID}
		q.Answers = []*Answer{wrong, correct}
		questions = append(questions, q)
	}
	return questions
}

func correctAnswer(q *Question) uuid.UUID {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.ID
		}
	}
	return uuid.Nil
}

func wrongAnswer(q *Question) uuid.UUID {
	for _, a := range q.Answers {
		if !a.IsCorrect {
			return a.ID
		}
	}
	return uuid.Nil
}

func TestScoreAllCorrect(t *testing.T) {
	questions := buildQuestions(4)
	submitted := make(map[uuid.UUID]uuid.UUID)
	for _, q := range questions {
		submitted[q.ID] = correctAnswer(q)
	}

	if got := Score(questions, submitted); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
}

func TestScorePartial(t *testing.T) {
	questions := buildQuestions(4)
	submitted := map[uuid.UUID]uuid.UUID{
		questions[0].ID: correctAnswer(questions[0]),
		questions[1].ID: correctAnswer(questions[1]),
		questions[2].ID: wrongAnswer(questions[2]),
	}

	// 2 of 4 correct, question 3 unanswered counts as wrong
	if got := Score(questions, submitted); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}

func TestScoreTruncatesTowardZero(t *testing.T) {
	questions := buildQuestions(3)
	submitted := map[uuid.UUID]uuid.UUID{
		questions[0].ID: correctAnswer(questions[0]),
	}

	if got := Score(questions, submitted); got != 33 {
		t.Errorf("expected 33, got %d", got)
	}
}

func TestScoreEmptyQuiz(t *testing.T) {
	if got := Score(nil, nil); got != 0 {
		t.Errorf("expected 0 for empty quiz, got %d", got)
	}
}

func TestScoreIgnoresAnswersFromOtherQuestions(t *testing.T) {
	questions := buildQuestions(2)
	// answer id belongs to another question, must not count
	submitted := map[uuid.UUID]uuid.UUID{
		questions[0].ID: correctAnswer(questions[1]),
		questions[1].ID: correctAnswer(questions[1]),
	}

	if got := Score(questions, submitted); got != 50 {
		t.Errorf("expected 50, got %d", got)
	}
}
