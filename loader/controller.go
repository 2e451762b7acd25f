package loader

import (
	"fmt"
	"sync"
	"time"
)

// Display renders loader state. Calls are serialized by the Controller and
// must not call back into it.
type Display interface {
	SetVisible(visible bool)
	SetStatus(message string)
	SetElapsed(label string)
	SetError(failed bool)
}

// Controller is safe for concurrent use.
type Controller struct {
	cfg     Config
	display Display
	now     func() time.Time

	mu      sync.Mutex
	gen     uint64
	visible bool
	start   time.Time
	long    bool
	index   int

	rotateStop  chan struct{}
	elapsedStop chan struct{}
	timers      []*time.Timer
}

// New returns a hidden controller rendering into display.
func New(cfg Config, display Display) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if display == nil {
		return nil, fmt.Errorf("loader: nil display")
	}
	return &Controller{
		cfg:     cfg,
		display: display,
		now:     time.Now,
	}, nil
}

// Show makes the loader visible and starts message rotation and the
// elapsed counter. Calling Show while visible restarts it.
func (c *Controller) Show() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	c.visible = true
	c.start = c.now()
	c.long = false

	c.display.SetVisible(true)
	c.display.SetError(false)
	c.display.SetStatus(c.cfg.InitialMessages[0])
	c.display.SetElapsed("")

	c.startRotationLocked()
	c.after(c.cfg.LongRequestAfter, func() {
		c.long = true
		c.index = 0
		c.display.SetStatus(c.cfg.LongRequestMessages[0])
	})

	stop := make(chan struct{})
	c.elapsedStop = stop
	c.every(c.cfg.ElapsedEvery, stop, func() {
		secs := int(c.now().Sub(c.start) / time.Second)
		c.display.SetElapsed(fmt.Sprintf("%ds", secs))
	})
}

// Hide stops the timers, shows the closing message for the elapsed time and
// hides the loader after HideDelay. It returns the total time shown, or 0
// when the loader was not visible.
func (c *Controller) Hide() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hideLocked()
}

func (c *Controller) hideLocked() time.Duration {
	if !c.visible {
		return 0
	}
	total := c.now().Sub(c.start)
	c.stopLocked()

	c.display.SetStatus(c.FinalMessage(total))
	c.display.SetElapsed(fmt.Sprintf(c.cfg.TotalFormat, int(total/time.Second)))
	c.after(c.cfg.HideDelay, func() {
		c.visible = false
		c.display.SetVisible(false)
	})
	return total
}

// ShowError stops the timers, shows message as an error and hides the
// loader after ErrorHideDelay. An empty message uses Config.ErrorMessage.
func (c *Controller) ShowError(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	if message == "" {
		message = c.cfg.ErrorMessage
	}
	c.stopLocked()
	c.display.SetError(true)
	c.display.SetStatus(message)
	c.after(c.cfg.ErrorHideDelay, func() {
		c.hideLocked()
	})
}

// ShowCustomMessage pauses rotation, shows message and resumes rotation from
// the first message after d. A non-positive d uses Config.CustomDuration.
func (c *Controller) ShowCustomMessage(message string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	if d <= 0 {
		d = c.cfg.CustomDuration
	}
	c.stopRotationLocked()
	c.display.SetStatus(message)
	c.after(d, c.startRotationLocked)
}

// Visible reports whether the loader is showing.
func (c *Controller) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

// FinalMessage picks the closing wording for a request that took total.
func (c *Controller) FinalMessage(total time.Duration) string {
	switch {
	case total > c.cfg.SlowAfter:
		return c.cfg.SlowMessage
	case total > c.cfg.TookAfter:
		return c.cfg.TookMessage
	default:
		return c.cfg.DoneMessage
	}
}

func (c *Controller) startRotationLocked() {
	c.stopRotationLocked()
	c.index = 0
	stop := make(chan struct{})
	c.rotateStop = stop
	c.every(c.cfg.RotateEvery, stop, func() {
		messages := c.cfg.InitialMessages
		if c.long {
			messages = c.cfg.LongRequestMessages
		}
		c.index++
		if c.index >= len(messages) {
			c.index = 0
		}
		c.display.SetStatus(messages[c.index])
	})
}

func (c *Controller) stopRotationLocked() {
	if c.rotateStop != nil {
		close(c.rotateStop)
		c.rotateStop = nil
	}
}

// stopLocked cancels every loop and pending timer and invalidates callbacks
// that already fired but have not taken the lock yet.
func (c *Controller) stopLocked() {
	c.gen++
	c.stopRotationLocked()
	if c.elapsedStop != nil {
		close(c.elapsedStop)
		c.elapsedStop = nil
	}
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = c.timers[:0]
}

// after runs fn under the lock once d has passed, unless the controller was
// stopped or restarted in between.
func (c *Controller) after(d time.Duration, fn func()) {
	gen := c.gen
	c.timers = append(c.timers, time.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.gen != gen {
			return
		}
		fn()
	}))
}

// every runs fn under the lock every d until stop is closed.
func (c *Controller) every(d time.Duration, stop <-chan struct{}, fn func()) {
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.mu.Lock()
				select {
				case <-stop:
					c.mu.Unlock()
					return
				default:
				}
				fn()
				c.mu.Unlock()
			}
		}
	}()
}
