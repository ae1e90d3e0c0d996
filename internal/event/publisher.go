package event

// Publisher delivers events to subscribers. Implementations must not block
// the caller on slow subscribers and must not fail the originating operation.
type Publisher interface {
	Publish(event Event)
}

// NoOpPublisher drops every event
type NoOpPublisher struct{}

// Publish does nothing
func (NoOpPublisher) Publish(Event) {}

// MultiPublisher forwards each event to every publisher in order
type MultiPublisher []Publisher

// Publish implements Publisher
func (m MultiPublisher) Publish(event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(event)
		}
	}
}
