package spaced_repetition

import (
	"math"
	"sort"
	"time"

	"github.com/example/wordsync/pkg/models"
)

// SM2 implements the SuperMemo-2 algorithm for spaced repetition.
// All methods are pure: records are taken and returned by value.
type SM2 struct {
	// Пороговое значение "хорошего ответа"
	PassThreshold QualityResponse
	// Minimum easiness factor, enforced on every update
	MinEasinessFactor float64
}

// NewSM2 создает новый экземпляр SM2 с настройками по умолчанию
func NewSM2() *SM2 {
	return &SM2{
		PassThreshold:     QualityCorrectDifficult, // Ответы 3 и выше считаются успешными
		MinEasinessFactor: models.MinEasinessFactor,
	}
}

// Default is the engine used by the package level helpers
var Default = NewSM2()

// QualityResponse represents the quality of response in SM-2
type QualityResponse int

const (
	// Complete blackout, unable to recall
	QualityBlackout QualityResponse = 0
	// Incorrect response but remembered upon seeing the correct answer
	QualityIncorrect QualityResponse = 1
	// Incorrect response but the correct answer felt familiar
	QualityIncorrectFamiliar QualityResponse = 2
	// Correct response but required significant effort
	QualityCorrectDifficult QualityResponse = 3
	// Correct response after some hesitation
	QualityCorrectHesitation QualityResponse = 4
	// Perfect response with no hesitation
	QualityPerfect QualityResponse = 5
)

// Quality maps the number of wrong attempts before a word was typed right
// to a recall quality. The mapping is coarse and monotonic:
// 0 → 5, 1 → 3, 2 → 2, 3 → 1, 4+ → 0.
func Quality(wrongAttempts int) QualityResponse {
	switch {
	case wrongAttempts <= 0:
		return QualityPerfect
	case wrongAttempts == 1:
		return QualityCorrectDifficult
	case wrongAttempts == 2:
		return QualityIncorrectFamiliar
	case wrongAttempts == 3:
		return QualityIncorrect
	default:
		return QualityBlackout
	}
}

// NewRecord returns a fresh schedule record that is due immediately
func NewRecord(word, dict string) models.ScheduleRecord {
	return models.ScheduleRecord{
		Word:           word,
		Dict:           dict,
		EasinessFactor: models.DefaultEasinessFactor,
	}
}

// Update applies one SM-2 step to record and returns the new state.
// NextReviewAt is derived from the record's LastReviewedAt.
func (sm *SM2) Update(record models.ScheduleRecord, quality QualityResponse) models.ScheduleRecord {
	q := clampQuality(quality)
	out := record

	ef := record.EasinessFactor
	if ef == 0 {
		ef = models.DefaultEasinessFactor
	}

	// Calculate the easiness factor (EF)
	d := float64(5 - q)
	ef += 0.1 - d*(0.08+d*0.02)
	if ef < sm.MinEasinessFactor {
		ef = sm.MinEasinessFactor // Не опускаем ниже 1.3
	}
	out.EasinessFactor = ef

	if q >= sm.PassThreshold {
		out.ConsecutiveCorrect = record.ConsecutiveCorrect + 1
		switch out.ConsecutiveCorrect {
		case 1:
			out.IntervalDays = 1
		case 2:
			out.IntervalDays = 6
		default:
			out.IntervalDays = int(math.Round(float64(record.IntervalDays) * ef))
		}
	} else {
		// Ответ был неправильным - сбрасываем прогресс
		out.ConsecutiveCorrect = 0
		out.IntervalDays = 1
	}

	if out.IntervalDays < 1 {
		out.IntervalDays = 1
	}
	out.NextReviewAt = NextReviewDate(record.LastReviewedAt, out.IntervalDays)

	return out
}

// Review stamps the record as reviewed at the given time and applies Update
func (sm *SM2) Review(record models.ScheduleRecord, quality QualityResponse, at time.Time) models.ScheduleRecord {
	record.LastReviewedAt = models.Millis(at)
	return sm.Update(record, quality)
}

// Update applies one SM-2 step using the default engine
func Update(record models.ScheduleRecord, quality QualityResponse) models.ScheduleRecord {
	return Default.Update(record, quality)
}

// Review applies one SM-2 step at the given time using the default engine
func Review(record models.ScheduleRecord, quality QualityResponse, at time.Time) models.ScheduleRecord {
	return Default.Review(record, quality, at)
}

// NextReviewDate returns the UTC calendar date intervalDays after the day
// of lastReviewedAt, so due checks do not depend on time of day.
func NextReviewDate(lastReviewedAt int64, intervalDays int) string {
	return startOfDay(models.FromMillis(lastReviewedAt)).
		AddDate(0, 0, intervalDays).
		Format(models.DateLayout)
}

// IsDue reports whether the record should be reviewed on now's UTC date
func IsDue(record models.ScheduleRecord, now time.Time) bool {
	if record.NextReviewAt == "" {
		return true
	}
	return record.NextReviewAt <= now.UTC().Format(models.DateLayout)
}

// Due returns up to limit records due for review, ordered by priority:
// never reviewed first, then the hardest (lowest EF), then the most overdue.
// A limit <= 0 returns all due records.
func Due(records []models.ScheduleRecord, now time.Time, limit int) []models.ScheduleRecord {
	var due []models.ScheduleRecord
	for _, r := range records {
		if IsDue(r, now) {
			due = append(due, r)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		neverI, neverJ := due[i].LastReviewedAt == 0, due[j].LastReviewedAt == 0
		if neverI != neverJ {
			return neverI
		}
		if due[i].EasinessFactor != due[j].EasinessFactor {
			return due[i].EasinessFactor < due[j].EasinessFactor
		}
		return due[i].NextReviewAt < due[j].NextReviewAt
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}

// IsMastered determines if a word is considered "mastered":
// five correct reviews in a row and an interval of at least a month.
func IsMastered(record models.ScheduleRecord) bool {
	return record.ConsecutiveCorrect >= 5 && record.IntervalDays >= 30
}

func clampQuality(q QualityResponse) QualityResponse {
	if q < QualityBlackout {
		return QualityBlackout
	}
	if q > QualityPerfect {
		return QualityPerfect
	}
	return q
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
