package storage

import (
	"sync"
	"time"

	"detectserver/internal/detection"
)

// Frame is one overlaid frame ready for viewers.
type Frame struct {
	Seq        uint64
	JPEG       []byte
	Detections []detection.Detection
	Viewport   detection.Viewport
	Timestamp  time.Time
}

// FrameStore keeps the latest overlaid frame and fans it out to subscribers.
// Publishing never blocks; a slow subscriber only sees the newest frame.
type FrameStore struct {
	mu          sync.RWMutex
	latest      *Frame
	seq         uint64
	subscribers map[chan *Frame]struct{}
}

func NewFrameStore() *FrameStore {
	return &FrameStore{
		subscribers: make(map[chan *Frame]struct{}),
	}
}

// Publish stores a frame and returns how many subscribers missed an older one.
func (s *FrameStore) Publish(jpeg []byte, detections []detection.Detection, viewport detection.Viewport) (*Frame, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	frame := &Frame{
		Seq:        s.seq,
		JPEG:       jpeg,
		Detections: detections,
		Viewport:   viewport,
		Timestamp:  time.Now(),
	}
	s.latest = frame

	dropped := 0
	for ch := range s.subscribers {
		select {
		case ch <- frame:
		default:
			// wyrzuc stara klatke i wstaw nowa
			select {
			case <-ch:
				dropped++
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
	return frame, dropped
}

// Latest returns the newest frame, if any.
func (s *FrameStore) Latest() (*Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

// Subscribe registers for new frames. Call the returned function to stop.
func (s *FrameStore) Subscribe() (<-chan *Frame, func()) {
	ch := make(chan *Frame, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

// Subscribers returns the number of active subscribers.
func (s *FrameStore) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers)
}

// Reset forgets the latest frame, eg. after the session stops.
func (s *FrameStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = nil
}
