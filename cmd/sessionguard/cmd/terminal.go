package cmd

import (
	"fmt"
	"io"
	"sync"

	"github.com/MrEthical07/sessionguard"
)

// terminalNavigator tracks a virtual location and prints every redirect.
type terminalNavigator struct {
	mu       sync.Mutex
	out      io.Writer
	location string
}

func newTerminalNavigator(out io.Writer, location string) *terminalNavigator {
	if location == "" {
		location = "/"
	}
	return &terminalNavigator{out: out, location: location}
}

func (n *terminalNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

func (n *terminalNavigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.out, "redirect: %s -> %s\n", n.location, target)
	n.location = target
}

// terminalPresenter writes presenter calls as plain lines.
type terminalPresenter struct {
	mu   sync.Mutex
	out  io.Writer
	name string
}

func newTerminalPresenter(out io.Writer) *terminalPresenter {
	return &terminalPresenter{out: out}
}

func (p *terminalPresenter) SetUserName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if name == p.name {
		return
	}
	p.name = name
	fmt.Fprintf(p.out, "user: %s\n", name)
}

func (p *terminalPresenter) UserName() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.name
}

func (p *terminalPresenter) ShowLoading(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s\n", message)
}

func (p *terminalPresenter) HideLoading() {}

func (p *terminalPresenter) Toast(message string, kind sessionguard.ToastKind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "[%s] %s\n", kind, message)
}

// loaderDisplay renders a loader.Controller as status lines. Writes after
// detach are dropped so late loader timers never outlive the command.
type loaderDisplay struct {
	mu       sync.Mutex
	out      io.Writer
	last     string
	failed   bool
	detached bool
}

func (d *loaderDisplay) SetVisible(bool) {}

func (d *loaderDisplay) SetStatus(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.detached || message == d.last {
		return
	}
	d.last = message
	if d.failed {
		fmt.Fprintf(d.out, "  error: %s\n", message)
		return
	}
	fmt.Fprintf(d.out, "  %s\n", message)
}

func (d *loaderDisplay) SetElapsed(string) {}

func (d *loaderDisplay) SetError(failed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failed = failed
}

func (d *loaderDisplay) detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.detached = true
}
