// Package safepoint implements the Synchronizer (component E): a
// dedicated goroutine serializing stop/resume requests from GC worker
// threads against the client runtime's safepoint machinery.
package safepoint

import (
	"sync"

	"github.com/mmtk-go/nativebinding/internal/vmlog"
)

// ThreadID identifies a native worker thread requesting stop-the-world,
// opaque to the synchronizer beyond being forwarded to upcalls.
type ThreadID uintptr

// Upcalls is the subset of the client runtime's upcall table the
// synchronizer drives directly (spec §4.E's protocol).
type Upcalls struct {
	StopAllMutators        func(workerTLS ThreadID)
	ResumeMutators         func(workerTLS ThreadID)
	InitSynchronizerThread func()
}

type request struct {
	release bool
	tls     ThreadID
	done    chan struct{}
}

// Synchronizer runs the single-threaded, blocking receive loop from
// spec §4.E: requests are totally ordered, and a local lock enforces
// that stop-the-world is never re-entered before a matching resume.
type Synchronizer struct {
	upcalls Upcalls
	reqs    chan request
	stopped chan struct{}
	once    sync.Once
}

// NewSynchronizer constructs a Synchronizer bound to upcalls. Run must be
// called (typically in its own goroutine) before Acquire/Release are used.
func NewSynchronizer(upcalls Upcalls) *Synchronizer {
	return &Synchronizer{
		upcalls: upcalls,
		reqs:    make(chan request),
		stopped: make(chan struct{}),
	}
}

// Run is the synchronizer thread body. It registers itself as a GC
// thread, calls the client's init_synchronizer_thread upcall, then
// serves Acquire/Release requests until Stop is called. Run blocks; call
// it in its own goroutine.
func (s *Synchronizer) Run(registerGCThread func()) {
	if registerGCThread != nil {
		registerGCThread()
	}
	if s.upcalls.InitSynchronizerThread != nil {
		s.upcalls.InitSynchronizerThread()
	}
	// The loop has two states: idle (only Acquire is meaningful) and
	// acquired (only the matching Release is meaningful). This is the
	// "local lock held until matching Release" from spec §4.E, made
	// explicit as a state machine rather than an actual mutex, since a
	// single-goroutine receive loop already serializes everything that
	// passes through s.reqs — a real sync.Mutex here would protect
	// nothing a state check doesn't already.
	for {
		select {
		case req := <-s.reqs:
			if req.release {
				vmlog.Warn("Release received while synchronizer idle; ignoring")
				close(req.done)
				continue
			}
			s.upcalls.StopAllMutators(req.tls)
			close(req.done)
			if !s.waitForRelease() {
				return
			}
		case <-s.stopped:
			return
		}
	}
}

// waitForRelease blocks until the matching Release request arrives,
// refusing to observe a second Acquire in the meantime. Returns false if
// the synchronizer was stopped first.
func (s *Synchronizer) waitForRelease() bool {
	for {
		select {
		case req := <-s.reqs:
			if !req.release {
				vmlog.Warn("Acquire received while a stop is already in effect; ignoring until Release")
				close(req.done)
				continue
			}
			s.upcalls.ResumeMutators(req.tls)
			close(req.done)
			return true
		case <-s.stopped:
			return false
		}
	}
}

// Stop terminates the synchronizer's Run loop. Only used by tests and
// orderly process shutdown; the real binding runs this for the process
// lifetime.
func (s *Synchronizer) Stop() {
	s.once.Do(func() { close(s.stopped) })
}

// Acquire sends an Acquire request and blocks until the client reports
// the stop-the-world safepoint has been reached.
func (s *Synchronizer) Acquire(tls ThreadID) {
	done := make(chan struct{})
	select {
	case s.reqs <- request{release: false, tls: tls, done: done}:
		<-done
	case <-s.stopped:
		vmlog.Warn("Acquire requested after synchronizer stopped")
	}
}

// Release sends a Release request and blocks until mutators have been
// resumed.
func (s *Synchronizer) Release(tls ThreadID) {
	done := make(chan struct{})
	select {
	case s.reqs <- request{release: true, tls: tls, done: done}:
		<-done
	case <-s.stopped:
		vmlog.Warn("Release requested after synchronizer stopped")
	}
}
