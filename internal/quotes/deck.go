// Package quotes holds the rotating quote deck shown by the host and its
// persisted settings.
package quotes

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultSubText is used for quotes added without a sub line.
const DefaultSubText = "Keep pushing - You're doing great! 🌟"

const (
	MinIntervalSecs     = 1
	MaxIntervalSecs     = 60
	DefaultIntervalSecs = 8
)

var ErrEmptyQuote = errors.New("quote text is required")

type Quote struct {
	Main string `yaml:"main" json:"main_text"`
	Sub  string `yaml:"sub" json:"sub_text"`
}

// DefaultQuotes is the deck used before any settings are saved.
func DefaultQuotes() []Quote {
	mains := []string{
		"এখনই কাজে মনোযোগ দাও - ফোকাস তোমার শক্তি",
		"প্রতিটি মুহূর্ত গুরুত্বপূর্ণ - কাজ চালিয়ে যাও",
		"সফলতা ধৈর্যের ফল - হার মানিও না",
		"Focus on the work - Success is near",
		"Stay disciplined - Great things take time",
		"তুমি পারবে - শুধু চেষ্টা চালিয়ে যাও",
		"Dreams need action - Start now",
		"প্রতিদিন একটু এগিয়ে যাও - লক্ষ্য কাছে",
		"Consistency beats talent - Keep going",
		"বিশ্রাম নাও কিন্তু হাল ছাড়ো না",
	}
	out := make([]Quote, len(mains))
	for i, m := range mains {
		out[i] = Quote{Main: m, Sub: DefaultSubText}
	}
	return out
}

// ClampInterval bounds a rotation interval to MinIntervalSecs..MaxIntervalSecs.
func ClampInterval(secs int) int {
	switch {
	case secs < MinIntervalSecs:
		return MinIntervalSecs
	case secs > MaxIntervalSecs:
		return MaxIntervalSecs
	default:
		return secs
	}
}

// Deck is a list of quotes with a current position. It is safe for
// concurrent use.
type Deck struct {
	mu       sync.RWMutex
	quotes   []Quote
	current  int
	interval int
	paused   bool
	// revision counts changes to what Settings persists
	revision uint64
}

func NewDeck(quotes []Quote, intervalSecs int) *Deck {
	return &Deck{
		quotes:   append([]Quote(nil), quotes...),
		interval: ClampInterval(intervalSecs),
	}
}

// Current returns the current quote; ok is false for an empty deck.
func (d *Deck) Current() (q Quote, ok bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if len(d.quotes) == 0 {
		return Quote{}, false
	}
	return d.quotes[d.current], true
}

func (d *Deck) Index() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.current
}

func (d *Deck) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.quotes)
}

// Quotes returns a copy of the deck.
func (d *Deck) Quotes() []Quote {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]Quote(nil), d.quotes...)
}

// Next moves to the following quote, wrapping at the end.
func (d *Deck) Next() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.quotes) > 0 {
		d.current = (d.current + 1) % len(d.quotes)
	}
}

// Prev moves to the preceding quote, wrapping at the start.
func (d *Deck) Prev() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.quotes) == 0 {
		return
	}
	if d.current == 0 {
		d.current = len(d.quotes) - 1
	} else {
		d.current--
	}
}

// Add appends a quote and makes it current. An empty sub line gets
// DefaultSubText.
func (d *Deck) Add(main, sub string) error {
	main = strings.TrimSpace(main)
	if main == "" {
		return ErrEmptyQuote
	}
	sub = strings.TrimSpace(sub)
	if sub == "" {
		sub = DefaultSubText
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quotes = append(d.quotes, Quote{Main: main, Sub: sub})
	d.current = len(d.quotes) - 1
	d.revision++
	return nil
}

// Delete removes the quote at index. The current position is clamped to the
// last quote.
func (d *Deck) Delete(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.quotes) {
		return fmt.Errorf("quote index %d out of range [0,%d)", index, len(d.quotes))
	}
	d.quotes = append(d.quotes[:index], d.quotes[index+1:]...)
	if d.current >= len(d.quotes) {
		d.current = max(len(d.quotes)-1, 0)
	}
	d.revision++
	return nil
}

// Select makes the quote at index current.
func (d *Deck) Select(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.quotes) {
		return fmt.Errorf("quote index %d out of range [0,%d)", index, len(d.quotes))
	}
	d.current = index
	return nil
}

func (d *Deck) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.quotes = nil
	d.current = 0
	d.revision++
}

// Interval returns the rotation interval.
func (d *Deck) Interval() time.Duration {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return time.Duration(d.interval) * time.Second
}

func (d *Deck) IntervalSecs() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.interval
}

// SetInterval sets the rotation interval in seconds, clamped.
func (d *Deck) SetInterval(secs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if secs = ClampInterval(secs); secs != d.interval {
		d.interval = secs
		d.revision++
	}
}

func (d *Deck) Paused() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.paused
}

func (d *Deck) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if paused != d.paused {
		d.paused = paused
		d.revision++
	}
}

// Revision changes whenever quotes, interval or pause state change. Moving
// between quotes does not count.
func (d *Deck) Revision() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.revision
}
