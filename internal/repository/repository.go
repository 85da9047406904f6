package repository

import (
	"time"
)

// QueryObserver receives query timings, typically the Prometheus metrics service.
type QueryObserver interface {
	ObserveDBQuery(label string, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDBQuery(string, time.Duration) {}

func observerOrNop(obs QueryObserver) QueryObserver {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}

func observe(obs QueryObserver, label string, start time.Time) {
	obs.ObserveDBQuery(label, time.Since(start))
}
