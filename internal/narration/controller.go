// Package narration reads monument descriptions aloud. A Controller owns at
// most one utterance at a time; starting a new one cancels the previous.
package narration

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Spanish is the narration language.
var Spanish = language.MustParse("es-ES")

type Utterance struct {
	Text  string
	Lang  language.Tag
	Rate  float64
	Pitch float64
}

// NewUtterance returns text with the default voice settings.
func NewUtterance(text string) Utterance {
	return Utterance{Text: text, Lang: Spanish, Rate: 1, Pitch: 1}
}

// Speaker synthesises one utterance, blocking until it ends. Cancelling ctx
// must interrupt it.
type Speaker interface {
	Speak(ctx context.Context, u Utterance) error
}

type Controller struct {
	speaker Speaker

	mu       sync.Mutex
	speaking bool
	gen      uint64
	cancel   context.CancelFunc
	changes  chan bool
	wg       sync.WaitGroup
}

func NewController(speaker Speaker) *Controller {
	return &Controller{speaker: speaker, changes: make(chan bool, 1)}
}

// Speak starts reading text, superseding anything in progress. Blank text is
// ignored.
func (c *Controller) Speak(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	if !c.speaking {
		c.speaking = true
		c.publish(true)
	}

	c.wg.Add(1)
	go c.run(ctx, gen, NewUtterance(text))
}

func (c *Controller) run(ctx context.Context, gen uint64, u Utterance) {
	defer c.wg.Done()
	err := c.speaker.Speak(ctx, u)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		// superseded
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("[narration] speaker failed: %v", err)
	}
	c.finish()
}

// Stop cancels the current utterance, if any.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.finish()
}

// finish must be called with mu held.
func (c *Controller) finish() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.speaking {
		c.speaking = false
		c.publish(false)
	}
}

// publish replaces any unread value so observers always see the latest state.
func (c *Controller) publish(v bool) {
	select {
	case <-c.changes:
	default:
	}
	c.changes <- v
}

func (c *Controller) IsSpeaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// Changes delivers speaking-state transitions. Unread values are replaced by
// newer ones.
func (c *Controller) Changes() <-chan bool { return c.changes }

// Close stops narration and waits for the speaker to return.
func (c *Controller) Close() {
	c.Stop()
	c.wg.Wait()
}
