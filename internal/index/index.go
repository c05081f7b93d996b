// Package index enumerates every object of one bucket in the background and
// accumulates them into a pool used by recursive search.
package index

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/slmtnm/s4browse/internal/store"
)

const (
	// BatchSize is the number of objects sent per MsgBatch.
	BatchSize = 500
	// ChannelSize bounds the number of batches in flight between the
	// streaming task and Drain.
	ChannelSize = 64
)

// Key identifies the bucket an index belongs to.
type Key struct {
	Remote string
	Bucket string
}

type MsgKind int

const (
	MsgBatch MsgKind = iota
	MsgDone
	MsgError
)

// Msg is posted by the streaming task.
type Msg struct {
	Kind    MsgKind
	Objects []store.Object
	Err     error
}

// DrainResult summarises one Drain call.
type DrainResult struct {
	// Added is the number of objects appended to the pool.
	Added int
	// Finished is set when the stream completed during this drain.
	Finished bool
	Err      error
}

// Streamer owns the index pool. It is not safe for concurrent use: only the
// UI goroutine calls its methods, the streaming task talks to it through a
// channel.
type Streamer struct {
	key        Key
	hasKey     bool
	pool       []store.Object
	complete   bool
	generation uint64

	msgs   <-chan Msg
	cancel context.CancelFunc

	batchSize int
}

func NewStreamer() *Streamer {
	return &Streamer{batchSize: BatchSize}
}

// Start begins indexing key. It returns false without doing anything when
// key is already the current generation.
func (s *Streamer) Start(st store.Store, key Key) bool {
	if s.hasKey && s.key == key {
		return false
	}
	s.Cancel()

	s.key = key
	s.hasKey = true
	s.generation++

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan Msg, ChannelSize)
	s.msgs = ch
	s.cancel = cancel

	logrus.WithFields(logrus.Fields{
		"remote":     key.Remote,
		"bucket":     key.Bucket,
		"generation": s.generation,
	}).Debug("index: start")

	go stream(ctx, st, key.Bucket, s.batchSize, ch)
	return true
}

// Cancel aborts the running task and empties the pool.
func (s *Streamer) Cancel() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = nil
	s.msgs = nil
	s.pool = nil
	s.complete = false
	s.key = Key{}
	s.hasKey = false
}

// Drain applies every message already queued without blocking.
func (s *Streamer) Drain() DrainResult {
	var res DrainResult
	for s.msgs != nil {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				// closed without MsgDone counts as done
				if !s.complete {
					res.Finished = true
				}
				s.complete = true
				s.msgs = nil
				s.cancel = nil
				return res
			}
			switch msg.Kind {
			case MsgBatch:
				s.pool = append(s.pool, msg.Objects...)
				res.Added += len(msg.Objects)
			case MsgDone:
				s.complete = true
				res.Finished = true
			case MsgError:
				s.complete = true
				res.Finished = true
				res.Err = msg.Err
			}
		default:
			return res
		}
	}
	return res
}

// Pool returns the objects indexed so far. Callers must not modify it.
func (s *Streamer) Pool() []store.Object { return s.pool }

func (s *Streamer) Complete() bool { return s.complete }

// Key returns the current generation key, if any.
func (s *Streamer) Key() (Key, bool) { return s.key, s.hasKey }

// Generation increases every time Start begins a new key.
func (s *Streamer) Generation() uint64 { return s.generation }

// Running reports whether a streaming task may still post messages.
func (s *Streamer) Running() bool { return s.msgs != nil }

// RemoveFunc drops every pooled object for which match returns true and
// reports how many were removed.
func (s *Streamer) RemoveFunc(match func(store.Object) bool) int {
	kept := s.pool[:0]
	removed := 0
	for _, o := range s.pool {
		if match(o) {
			removed++
			continue
		}
		kept = append(kept, o)
	}
	s.pool = kept
	return removed
}

func stream(ctx context.Context, st store.Store, bucket string, batchSize int, ch chan<- Msg) {
	defer close(ch)

	send := func(msg Msg) bool {
		select {
		case ch <- msg:
			return true
		case <-ctx.Done():
			return false
		}
	}

	batch := make([]store.Object, 0, batchSize)
	total := 0
	err := store.Walk(ctx, st, bucket, "", func(p store.Page) error {
		for _, o := range p.Objects {
			if store.IsDirMarker(o.Key) {
				continue
			}
			batch = append(batch, o)
			if len(batch) < batchSize {
				continue
			}
			if !send(Msg{Kind: MsgBatch, Objects: batch}) {
				return ctx.Err()
			}
			total += len(batch)
			batch = make([]store.Object, 0, batchSize)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		logrus.WithError(err).WithField("bucket", bucket).Warn("index: listing failed")
		send(Msg{Kind: MsgError, Err: err})
		return
	}

	if len(batch) > 0 {
		if !send(Msg{Kind: MsgBatch, Objects: batch}) {
			return
		}
		total += len(batch)
	}
	logrus.WithFields(logrus.Fields{"bucket": bucket, "objects": total}).Debug("index: done")
	send(Msg{Kind: MsgDone})
}
