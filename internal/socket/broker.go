package socket

// Event is published on a Broker when a socket connects or disconnects.
type Event struct {
	Socket *Socket
}

// Broker is the rendezvous point between sockets and whoever serves them.
// The composition root owns it and hands it to both sides.
type Broker struct {
	listeners registry[func(Event)]
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{}
}

// On subscribes to EventConnect or EventDisconnect. The returned function
// removes the subscription.
func (b *Broker) On(event string, fn func(Event)) func() {
	return b.listeners.add(event, fn, false)
}

// OnConnect is shorthand for On(EventConnect, fn).
func (b *Broker) OnConnect(fn func(Event)) func() {
	return b.On(EventConnect, fn)
}

// OnDisconnect is shorthand for On(EventDisconnect, fn).
func (b *Broker) OnDisconnect(fn func(Event)) func() {
	return b.On(EventDisconnect, fn)
}

// Off removes every subscription for event.
func (b *Broker) Off(event string) {
	b.listeners.clear(event)
}

func (b *Broker) publish(event string, ev Event) {
	for _, fn := range b.listeners.take(event) {
		fn(ev)
	}
}
