package watcher

import "time"

// Clock 抽象时间源，重连等待在测试里可直接推进
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

func NewRealClock() Clock {
	return realClock{}
}
