package rooms

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// connection is the registry record for one live transport session.
type connection struct {
	id       string
	username string
	room     *room
	joinedAt time.Time
}

// room holds its members in join order.
type room struct {
	name    string
	members []*connection
}

// Service owns the connection registry and the room directory. Every
// exported method takes the same mutex, so membership reads and writes never
// interleave; outbound events are handed to the Sender while the lock is
// held, which keeps per-recipient delivery order identical to state order.
type Service struct {
	mu     sync.Mutex
	conns  map[string]*connection
	rooms  map[string]*room
	order  []string
	adHoc  bool
	sender Sender
	now    func() time.Time
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithAdHocRooms lets joins create rooms outside the declared set.
func WithAdHocRooms(allow bool) Option {
	return func(s *Service) { s.adHoc = allow }
}

// WithLogger sets the logger used for membership changes.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// NewService creates a Service for the declared room names. Declaration order
// is preserved for listings; blank and duplicate names are skipped.
func NewService(roomNames []string, sender Sender, opts ...Option) *Service {
	s := &Service{
		conns:  make(map[string]*connection),
		rooms:  make(map[string]*room),
		sender: sender,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, name := range roomNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		s.addRoom(name)
	}
	return s
}

func (s *Service) addRoom(name string) *room {
	if r, ok := s.rooms[name]; ok {
		return r
	}
	r := &room{name: name}
	s.rooms[name] = r
	s.order = append(s.order, name)
	return r
}

func (s *Service) send(connID string, ev Event) {
	if s.sender == nil {
		return
	}
	s.sender.Send(connID, ev)
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}
