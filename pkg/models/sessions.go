package models

// ChapterKey identifies a chapter session
type ChapterKey struct {
	Dict      string `json:"dict" db:"dict"`
	Chapter   int    `json:"chapter" db:"chapter"`
	StartedAt int64  `json:"startedAt" db:"started_at"`
}

// ChapterSession is an append-only record of one finished chapter run
type ChapterSession struct {
	Dict               string       `json:"dict" db:"dict"`
	Chapter            int          `json:"chapter" db:"chapter"`
	StartedAt          int64        `json:"startedAt" db:"started_at"` // unix millis
	ElapsedSeconds     int          `json:"elapsedSeconds" db:"elapsed_seconds"`
	CorrectCount       int          `json:"correctCount" db:"correct_count"`
	WrongCount         int          `json:"wrongCount" db:"wrong_count"`
	TotalWordCount     int          `json:"totalWordCount" db:"total_word_count"`
	CorrectWordIndexes IntList      `json:"correctWordIndexes" db:"correct_word_indexes"`
	Mode               PracticeMode `json:"mode" db:"mode"`
}

func (s ChapterSession) Key() ChapterKey {
	return ChapterKey{Dict: s.Dict, Chapter: s.Chapter, StartedAt: s.StartedAt}
}

// ReviewKey identifies a free-form review batch
type ReviewKey struct {
	Dict      string `json:"dict" db:"dict"`
	CreatedAt int64  `json:"createdAt" db:"created_at"`
}

// ReviewSession is a legacy review batch. The only mutation it allows is
// the one-way IsFinished transition.
type ReviewSession struct {
	Dict       string     `json:"dict" db:"dict"`
	CreatedAt  int64      `json:"createdAt" db:"created_at"` // unix millis
	IsFinished bool       `json:"isFinished" db:"is_finished"`
	Words      StringList `json:"words" db:"words"`
}

func (s ReviewSession) Key() ReviewKey {
	return ReviewKey{Dict: s.Dict, CreatedAt: s.CreatedAt}
}
