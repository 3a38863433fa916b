package sdk

import (
	"sync"

	"github.com/rs/zerolog"
)

// Event topics published on the manager's bus
const (
	TopicStatus            = "status"
	TopicReady             = "ready"
	TopicAgentStateChanged = "agent.stateChanged"
	TopicContactConnected  = "contact.connected"
	TopicContactCleared    = "contact.cleared"
	TopicContactMissed     = "contact.missed"
	TopicStartingACW       = "contact.startingAcw"
	TopicEmailAccepted     = "email.accepted"
	TopicDraftEmailCreated = "email.draftCreated"
	TopicLanguageChanged   = "settings.languageChanged"
)

// Event is one bus message. Data holds the same value the matching
// callback receives.
type Event struct {
	Topic string
	Data  interface{}
}

type subscriber struct {
	topic string
	fn    func(Event)
}

// bus fans events out to subscribers. An empty topic receives everything.
type bus struct {
	logger zerolog.Logger

	mu     sync.RWMutex
	subs   map[int]subscriber
	nextID int
}

func newBus(logger zerolog.Logger) *bus {
	return &bus{logger: logger, subs: make(map[int]subscriber)}
}

func (b *bus) subscribe(topic string, fn func(Event)) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscriber{topic: topic, fn: fn}
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *bus) publish(topic string, data interface{}) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, s := range b.subs {
		if s.topic == "" || s.topic == topic {
			fns = append(fns, s.fn)
		}
	}
	b.mu.RUnlock()

	ev := Event{Topic: topic, Data: data}
	for _, fn := range fns {
		b.deliver(fn, ev)
	}
}

func (b *bus) deliver(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().Interface("panic", r).Str("topic", ev.Topic).Msg("event subscriber panicked")
		}
	}()
	fn(ev)
}
