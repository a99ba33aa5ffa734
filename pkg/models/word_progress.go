package models

// CompletionThreshold is the number of correct answers after which a word
// is considered learned and its progress record is removed.
const CompletionThreshold = 3

// PracticeMode is the input method a practice record was produced with
type PracticeMode string

const (
	ModeTyping    PracticeMode = "typing"
	ModeDictation PracticeMode = "dictation"
	ModeReview    PracticeMode = "review"
)

// WordKey identifies a word inside a dictionary
type WordKey struct {
	Word string `json:"word" db:"word"`
	Dict string `json:"dict" db:"dict"`
}

func (k WordKey) String() string {
	return k.Dict + "/" + k.Word
}

// WordProgress tracks an unfinished word: how often it was typed wrong or
// right and which letters were mistyped.
type WordProgress struct {
	Word             string       `json:"word" db:"word"`
	Dict             string       `json:"dict" db:"dict"`
	WrongCount       int          `json:"wrongCount" db:"wrong_count"`
	CorrectCount     int          `json:"correctCount" db:"correct_count"`
	Mistakes         Mistakes     `json:"mistakes" db:"mistakes"`
	LastActivityTime int64        `json:"lastActivityTime" db:"last_activity_time"` // unix millis
	Mode             PracticeMode `json:"mode" db:"mode"`
}

// Key returns the identity of the record
func (p WordProgress) Key() WordKey {
	return WordKey{Word: p.Word, Dict: p.Dict}
}

// Completed reports whether the record reached the completion threshold.
// Completed records must never be stored.
func (p WordProgress) Completed() bool {
	return p.CorrectCount >= CompletionThreshold
}
