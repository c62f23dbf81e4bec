package notification

import (
	"fmt"
	"log"
	"sync"
)

// Dispatcher delivers notifications off the engine goroutine. It has one worker and a
// one-slot queue (strict back-pressure): while a notification is showing and another
// is queued, further ones are dropped.
type Dispatcher struct {
	next Notifier
	jobs chan string
	wg   sync.WaitGroup

	closeOnce sync.Once
}

// NewDispatcher starts the worker. Close must be called to stop it.
func NewDispatcher(next Notifier) *Dispatcher {
	d := &Dispatcher{next: next, jobs: make(chan string, 1)}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for text := range d.jobs {
		if err := d.deliver(text); err != nil {
			log.Printf("notification: delivery failed: %v", err)
		}
	}
}

func (d *Dispatcher) deliver(text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("notifier panicked: %v", r)
		}
	}()
	return d.next.Notify(text)
}

// Submit enqueues text if the slot is free. Returns false if dropped.
func (d *Dispatcher) Submit(text string) bool {
	select {
	case d.jobs <- text:
		return true
	default:
		return false
	}
}

// Notify satisfies Notifier; a dropped notification is logged, not reported.
func (d *Dispatcher) Notify(text string) error {
	if !d.Submit(text) {
		log.Printf("notification: busy, dropping notification")
	}
	return nil
}

// Close stops the worker after draining queued work.
func (d *Dispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.jobs)
		d.wg.Wait()
	})
}
