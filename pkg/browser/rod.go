package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog"
)

type rodSession struct {
	log        zerolog.Logger
	launcher   *launcher.Launcher
	remote     bool
	browser    *rod.Browser
	page       *rod.Page
	navWait    time.Duration
	captureAll bool

	mu      sync.Mutex
	console []ConsoleMessage
	closed  bool
}

// newLauncher builds the launcher for p. In remote mode the endpoint is a
// rod launcher manager and the flags set here are forwarded to it.
func newLauncher(p *Provider) (*launcher.Launcher, error) {
	var l *launcher.Launcher
	if p.mode == ModeRemote {
		managed, err := launcher.NewManaged(p.endpoint)
		if err != nil {
			return nil, &ConfigError{Endpoint: p.endpoint, Reason: err.Error()}
		}
		l = managed
	} else {
		l = launcher.New()
		if p.execPath != "" {
			l = l.Bin(p.execPath)
		}
	}

	l = l.Headless(p.caps.Headless)
	for _, f := range p.Flags() {
		if f.Value == "" {
			l = l.Set(flags.Flag(f.Name))
		} else {
			l = l.Set(flags.Flag(f.Name), f.Value)
		}
	}
	return l, nil
}

func openRod(ctx context.Context, p *Provider) (Session, error) {
	l, err := newLauncher(p)
	if err != nil {
		return nil, err
	}

	browser := rod.New()
	if p.mode == ModeRemote {
		client, err := l.Context(ctx).Client()
		if err != nil {
			return nil, fmt.Errorf("connect to launcher manager: %w", err)
		}
		browser = browser.Client(client)
	} else {
		controlURL, err := l.Context(ctx).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		browser = browser.ControlURL(controlURL)
	}

	if err := browser.Connect(); err != nil {
		if p.mode == ModeLocal {
			l.Kill()
		}
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		browser.Close()
		if p.mode == ModeLocal {
			l.Kill()
		}
		return nil, fmt.Errorf("open page: %w", err)
	}

	s := &rodSession{
		log:        p.log.With().Str("engine", string(EngineRod)).Logger(),
		launcher:   l,
		remote:     p.mode == ModeRemote,
		browser:    browser,
		page:       page,
		navWait:    p.navWait,
		captureAll: p.caps.ConsoleLog,
	}

	go page.EachEvent(func(ev *proto.RuntimeConsoleAPICalled) {
		s.recordConsole(ev)
	})()

	return s, nil
}

func (s *rodSession) recordConsole(ev *proto.RuntimeConsoleAPICalled) {
	msg := ConsoleMessage{
		Type:      string(ev.Type),
		Timestamp: time.Now(),
	}
	if !s.captureAll && !msg.IsError() {
		return
	}

	var parts []string
	for _, arg := range ev.Args {
		if !arg.Value.Nil() {
			parts = append(parts, arg.Value.String())
		} else if arg.Description != "" {
			parts = append(parts, arg.Description)
		}
	}
	msg.Text = strings.Join(parts, " ")
	if ev.StackTrace != nil && len(ev.StackTrace.CallFrames) > 0 {
		msg.URL = ev.StackTrace.CallFrames[0].URL
	}

	s.mu.Lock()
	s.console = append(s.console, msg)
	s.mu.Unlock()
}

func (s *rodSession) pageFor(ctx context.Context) (*rod.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	return s.page.Context(ctx), nil
}

// document resolves scope to the page or frame it names. ok is false when a
// frame along the way does not exist.
func (s *rodSession) document(ctx context.Context, scope Scope) (doc *rod.Page, ok bool, err error) {
	doc, err = s.pageFor(ctx)
	if err != nil {
		return nil, false, err
	}

	for _, name := range scope.Frames() {
		has, el, err := doc.HasX(FrameXPath(name))
		if err != nil {
			return nil, false, err
		}
		if !has {
			return nil, false, nil
		}
		doc, err = el.Frame()
		if err != nil {
			return nil, false, err
		}
	}
	return doc, true, nil
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.Timeout(s.navWait).WaitLoad()
}

func (s *rodSession) Location(ctx context.Context) (string, error) {
	p, err := s.pageFor(ctx)
	if err != nil {
		return "", err
	}
	info, err := p.Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (s *rodSession) Back(ctx context.Context) error {
	p, err := s.pageFor(ctx)
	if err != nil {
		return err
	}
	wait := p.Timeout(s.navWait).WaitNavigation(proto.PageLifecycleEventNameLoad)
	if err := p.NavigateBack(); err != nil {
		return err
	}
	wait()
	return nil
}

func (s *rodSession) Count(ctx context.Context, scope Scope, xpath string) (int, error) {
	doc, ok, err := s.document(ctx, scope)
	if err != nil || !ok {
		return 0, err
	}
	els, err := doc.ElementsX(xpath)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (s *rodSession) Text(ctx context.Context, scope Scope, xpath string) (Lookup, error) {
	doc, ok, err := s.document(ctx, scope)
	if err != nil {
		return Lookup{}, err
	}
	if !ok {
		return Lookup{Outcome: NotFound}, nil
	}

	has, el, err := doc.HasX(xpath)
	if err != nil {
		return Lookup{}, err
	}
	if !has {
		return Lookup{Outcome: NotFound}, nil
	}
	text, err := el.Text()
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Outcome: Found, Text: strings.TrimSpace(text)}, nil
}

func (s *rodSession) Click(ctx context.Context, scope Scope, xpath string, index int) (Outcome, error) {
	doc, ok, err := s.document(ctx, scope)
	if err != nil {
		return NotFound, err
	}
	if !ok {
		return NotFound, nil
	}

	els, err := doc.ElementsX(xpath)
	if err != nil {
		return NotFound, err
	}
	if index < 0 || index >= len(els) {
		return NotFound, nil
	}
	if err := els[index].Timeout(s.navWait).Click(proto.InputMouseButtonLeft, 1); err != nil {
		if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
			return Found, fmt.Errorf("%s[%d]: %w", xpath, index, ErrNotInteractable)
		}
		return Found, err
	}
	return Found, nil
}

func (s *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	p, err := s.pageFor(ctx)
	if err != nil {
		return nil, err
	}
	return p.Screenshot(true, nil)
}

func (s *rodSession) Console() []ConsoleMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConsoleMessage, len(s.console))
	copy(out, s.console)
	return out
}

func (s *rodSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.browser.Close()
	if !s.remote {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	s.log.Debug().Msg("browser session closed")
	return err
}
