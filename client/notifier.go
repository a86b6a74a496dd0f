package client

import (
	"sync"
	"time"
)

// Notification meldet einen fehlgeschlagenen Aufruf an Abonnenten.
type Notification struct {
	Method string
	Path   string
	Err    *APIError
	At     time.Time
}

// Notifier verteilt Fehlermeldungen an beliebig viele Abonnenten. Langsame
// Abonnenten verlieren Meldungen, statt Aufrufe zu blockieren.
type Notifier struct {
	mu     sync.Mutex
	subs   map[int]chan Notification
	nextID int
	buffer int
	closed bool
}

// NewNotifier erstellt einen Notifier mit Kanalpuffer buffer je Abonnent.
func NewNotifier(buffer int) *Notifier {
	if buffer < 1 {
		buffer = 16
	}
	return &Notifier{subs: map[int]chan Notification{}, buffer: buffer}
}

// Subscribe liefert einen Kanal und eine Funktion zum Abmelden.
func (n *Notifier) Subscribe() (<-chan Notification, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan Notification, n.buffer)
	if n.closed {
		close(ch)
		return ch, func() {}
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			if c, ok := n.subs[id]; ok {
				delete(n.subs, id)
				close(c)
			}
		})
	}
}

// Publish stellt die Meldung allen Abonnenten zu, ohne zu blockieren.
func (n *Notifier) Publish(msg Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// Close schließt alle Abonnentenkanäle.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for id, ch := range n.subs {
		close(ch)
		delete(n.subs, id)
	}
}
