package storage

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
)

// Paired implements Store wrapping a pair of stores, one fast, one slow. It
// will handle puts storing data in the fast store and syncing that to the slow
// store in the background. It will handle gets from the fast store if possible,
// otherwise from the slow store (and in this case also propagate the data from
// the slow to the fast store, for next time that piece of data is requested).
type Paired struct {
	fast Store
	slow Store

	retry time.Duration
	wbc   chan pairedWrite
	done  chan struct{}
}

type pairedWrite struct {
	key   string
	value []byte
}

func NewPaired(fast, slow Store) *Paired {
	p := &Paired{
		fast:  fast,
		slow:  slow,
		retry: time.Second,
		wbc:   make(chan pairedWrite, 42),
		done:  make(chan struct{}),
	}
	go p.writeback()
	return p
}

func (s *Paired) Get(key string) (value []byte, err error) {
	value, err = s.fast.Get(key)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrNotFound) {
		return
	}
	value, err = s.slow.Get(key)
	if err != nil {
		return nil, err
	}
	logger := log.WithField("key", key)
	if ferr := s.fast.Put(key, value); ferr != nil {
		logger.WithField("err", ferr).Warn("Could not propagate from slow to fast")
	} else {
		logger.Debug("Propagated from slow to fast")
	}
	return value, nil
}

// Put stores the value in the fast store and queues it for the slow one. It
// blocks when the queue is full.
func (s *Paired) Put(key string, value []byte) (err error) {
	if err = s.fast.Put(key, value); err != nil {
		return err
	}
	s.wbc <- pairedWrite{key: key, value: dup(value)}
	return nil
}

// Close stops accepting puts and returns once all queued values have reached
// the slow store. Put must not be called after Close.
func (s *Paired) Close() {
	close(s.wbc)
	<-s.done
}

func (s *Paired) writeback() {
	defer close(s.done)
	for w := range s.wbc {
		s.writeback1(w.key, w.value)
	}
}

func (s *Paired) writeback1(key string, value []byte) {
	logger := log.WithField("key", key)
	for {
		err := s.slow.Put(key, value)
		if err == nil {
			logger.Debug("Propagated from fast to slow")
			break
		}
		logger.WithField("err", err).Warn("Could not propagate from fast to slow")
		time.Sleep(s.retry)
	}
}
