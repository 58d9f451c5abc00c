// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"maps"
	"time"
)

// Event types emitted by a [Collector].
const (
	EventCacheHit     = "cache_hit"
	EventCacheMiss    = "cache_miss"
	EventLoadStart    = "load_start"
	EventLoadComplete = "load_complete"
	EventError        = "error"
	EventLocaleUsage  = "locale_usage"
	EventCoverage     = "translation_coverage"

	// AllEvents subscribes a listener to every event type.
	AllEvents = "*"
)

// Event is a structured record of one collector update.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Locale    string         `json:"locale,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Payload   map[string]any `json:"payload,omitempty"`
}

func (e Event) clone() Event {
	e.Payload = maps.Clone(e.Payload)

	return e
}

// Handler receives events. Handlers run synchronously on the recording goroutine
// after the collector lock is released, so they may call back into the collector.
type Handler func(Event)

// ListenerID identifies a registered handler for [Collector.RemoveEventListener].
type ListenerID uint64

type listener struct {
	id ListenerID
	fn Handler
}

// AddEventListener registers fn for events of eventType, or for all events when
// eventType is [AllEvents].
func (c *Collector) AddEventListener(eventType string, fn Handler) ListenerID {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextListenerID++
	id := c.nextListenerID
	c.listeners[eventType] = append(c.listeners[eventType], listener{id: id, fn: fn})

	return id
}

// RemoveEventListener unregisters the handler with id from eventType.
// It reports whether a handler was removed.
func (c *Collector) RemoveEventListener(eventType string, id ListenerID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ls := c.listeners[eventType]
	for i, l := range ls {
		if l.id != id {
			continue
		}

		// copy so that a dispatch holding the old slice is unaffected
		next := make([]listener, 0, len(ls)-1)
		next = append(next, ls[:i]...)
		next = append(next, ls[i+1:]...)

		if len(next) == 0 {
			delete(c.listeners, eventType)
		} else {
			c.listeners[eventType] = next
		}

		return true
	}

	return false
}

func (c *Collector) dispatch(ev Event) {
	c.mu.Lock()
	typed := c.listeners[ev.Type]
	wildcard := c.listeners[AllEvents]
	c.mu.Unlock()

	for _, l := range typed {
		c.invoke(l, ev)
	}

	for _, l := range wildcard {
		c.invoke(l, ev)
	}
}

func (c *Collector) invoke(l listener, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn().
				Interface("panic", r).
				Str("event", ev.Type).
				Uint64("listener", uint64(l.id)).
				Msg("Metrics event listener panicked")
		}
	}()

	l.fn(ev.clone())
}
