// Package cache provides an in-process LRU cache with TTL used for
// calendar projection responses. Keys are structured as
// "<owner>|<start>|<end>" so a write for an owner can invalidate all of
// that owner's cached windows by prefix.
package cache

import "time"

// Cache is the read/write surface handlers depend on.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	InvalidatePrefix(prefix string) int
	Size() int
}

// Key builds a projection cache key from owner and date range.
func Key(ownerID, start, end string) string {
	return ownerID + "|" + start + "|" + end
}

// OwnerPrefix builds the prefix matching every cached window for an owner.
func OwnerPrefix(ownerID string) string {
	return ownerID + "|"
}

// Cleaner is implemented by caches that support expired-entry sweeps.
type Cleaner interface {
	CleanExpired() int
}

// Janitor runs periodic expired-entry sweeps over registered caches.
type Janitor struct {
	caches []Cleaner
	stop   chan struct{}
	done   chan struct{}
}

func NewJanitor() *Janitor {
	return &Janitor{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Start begins the sweep loop. Call Stop to terminate it.
func (j *Janitor) Start(interval time.Duration) {
	go func() {
		defer close(j.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				for _, c := range j.caches {
					c.CleanExpired()
				}
			case <-j.stop:
				return
			}
		}
	}()
}

func (j *Janitor) Stop() {
	close(j.stop)
	<-j.done
}
