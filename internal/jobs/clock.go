package jobs

import "time"

// Clock абстрагирует время, чтобы ожидание задач можно было тестировать без реальных пауз.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock - реальные часы.
var SystemClock Clock = systemClock{}
