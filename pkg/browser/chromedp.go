package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"
)

// snapshotJS runs on a document node and returns the nodes matching an
// XPath, in document order.
const snapshotJS = `function(xpath) {
	var doc = this.ownerDocument || this;
	var result = doc.evaluate(xpath, this, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	var nodes = [];
	for (var i = 0; i < result.snapshotLength; i++) {
		nodes.push(result.snapshotItem(i));
	}
	return nodes;
}`

// byXPath selects the nodes matching xpath under the query root. Unlike
// chromedp.BySearch it honours FromNode, so a query given a frame node runs
// in that frame's document only.
func byXPath(xpath string) chromedp.QueryOption {
	return chromedp.ByFunc(func(ctx context.Context, root *cdp.Node) ([]cdp.NodeID, error) {
		doc, err := dom.ResolveNode().WithNodeID(root.NodeID).Do(ctx)
		if err != nil {
			return nil, err
		}
		defer releaseObject(ctx, doc.ObjectID)

		var list *runtime.RemoteObject
		err = chromedp.CallFunctionOn(snapshotJS, &list, func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
			return p.WithObjectID(doc.ObjectID)
		}, xpath).Do(ctx)
		if err != nil {
			return nil, err
		}
		defer releaseObject(ctx, list.ObjectID)

		props, _, _, exp, err := runtime.GetProperties(list.ObjectID).WithOwnProperties(true).Do(ctx)
		if err != nil {
			return nil, err
		}
		if exp != nil {
			return nil, exp
		}

		elements := make(map[int]runtime.RemoteObjectID, len(props))
		for _, prop := range props {
			i, err := strconv.Atoi(prop.Name)
			if err != nil || prop.Value == nil || prop.Value.ObjectID == "" {
				continue
			}
			elements[i] = prop.Value.ObjectID
		}

		ids := make([]cdp.NodeID, 0, len(elements))
		for i := 0; i < len(elements); i++ {
			id, err := dom.RequestNode(elements[i]).Do(ctx)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
		return ids, nil
	})
}

func releaseObject(ctx context.Context, id runtime.RemoteObjectID) {
	_ = runtime.ReleaseObject(id).Do(ctx)
}

type chromedpSession struct {
	log         zerolog.Logger
	allocCancel context.CancelFunc
	cancel      context.CancelFunc
	ctx         context.Context
	navWait     time.Duration
	captureAll  bool

	mu      sync.Mutex
	console []ConsoleMessage
	closed  bool
}

func openChromedp(ctx context.Context, p *Provider) (Session, error) {
	var allocCtx context.Context
	var allocCancel context.CancelFunc

	if p.mode == ModeRemote {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), p.endpoint)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", p.caps.Headless),
		)
		for _, f := range p.Flags() {
			if f.Value == "" {
				opts = append(opts, chromedp.Flag(f.Name, true))
			} else {
				opts = append(opts, chromedp.Flag(f.Name, f.Value))
			}
		}
		if p.execPath != "" {
			opts = append(opts, chromedp.ExecPath(p.execPath))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}

	tabCtx, cancel := chromedp.NewContext(allocCtx)
	s := &chromedpSession{
		log:         p.log.With().Str("engine", string(EngineChromedp)).Logger(),
		allocCancel: allocCancel,
		cancel:      cancel,
		ctx:         tabCtx,
		navWait:     p.navWait,
		captureAll:  p.caps.ConsoleLog,
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		if ev, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			s.recordConsole(ev)
		}
	})

	// The browser lives as long as the context of the first Run, so start
	// it on the tab context itself and close the session if ctx ends first.
	stop := context.AfterFunc(ctx, func() { s.Close() })
	err := chromedp.Run(tabCtx)
	if !stop() {
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return s, nil
}

func (s *chromedpSession) recordConsole(ev *runtime.EventConsoleAPICalled) {
	msg := ConsoleMessage{
		Type:      string(ev.Type),
		Timestamp: time.Now(),
	}
	if !s.captureAll && !msg.IsError() {
		return
	}

	var parts []string
	for _, arg := range ev.Args {
		if arg.Value != nil {
			parts = append(parts, strings.Trim(string(arg.Value), `"`))
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

// run executes actions on the session's tab, bounded by ctx. Cancelling a
// context derived from the tab context does not close the tab.
func (s *chromedpSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrSessionClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// nodes returns the elements matching xpath in scope. A frame in scope that
// does not exist, or has no document yet, gives no elements.
func (s *chromedpSession) nodes(ctx context.Context, scope Scope, xpath string) ([]*cdp.Node, error) {
	var root *cdp.Node
	for _, name := range scope.Frames() {
		frameXPath := FrameXPath(name)
		var frames []*cdp.Node
		err := s.run(ctx, chromedp.Nodes(frameXPath, &frames, byXPath(frameXPath), chromedp.AtLeast(0), chromedp.FromNode(root)))
		if err != nil {
			return nil, err
		}
		if len(frames) == 0 || frames[0].ContentDocument == nil {
			return nil, nil
		}
		root = frames[0]
	}

	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(xpath, &nodes, byXPath(xpath), chromedp.AtLeast(0), chromedp.FromNode(root)))
	return nodes, err
}

func (s *chromedpSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromedpSession) Location(ctx context.Context) (string, error) {
	var location string
	err := s.run(ctx, chromedp.Location(&location))
	return location, err
}

func (s *chromedpSession) Back(ctx context.Context) error {
	return s.run(ctx, chromedp.NavigateBack())
}

func (s *chromedpSession) Count(ctx context.Context, scope Scope, xpath string) (int, error) {
	nodes, err := s.nodes(ctx, scope, xpath)
	return len(nodes), err
}

func (s *chromedpSession) Text(ctx context.Context, scope Scope, xpath string) (Lookup, error) {
	nodes, err := s.nodes(ctx, scope, xpath)
	if err != nil {
		return Lookup{}, err
	}
	if len(nodes) == 0 {
		return Lookup{Outcome: NotFound}, nil
	}

	var text string
	if err := s.run(ctx, chromedp.Text([]cdp.NodeID{nodes[0].NodeID}, &text, chromedp.ByNodeID)); err != nil {
		return Lookup{}, err
	}
	return Lookup{Outcome: Found, Text: strings.TrimSpace(text)}, nil
}

func (s *chromedpSession) Click(ctx context.Context, scope Scope, xpath string, index int) (Outcome, error) {
	nodes, err := s.nodes(ctx, scope, xpath)
	if err != nil {
		return NotFound, err
	}
	if index < 0 || index >= len(nodes) {
		return NotFound, nil
	}

	clickCtx, cancel := context.WithTimeout(ctx, s.navWait)
	defer cancel()
	err = s.run(clickCtx, chromedp.Click([]cdp.NodeID{nodes[index].NodeID}, chromedp.ByNodeID, chromedp.NodeVisible))
	if err != nil {
		if ctx.Err() == nil && errors.Is(clickCtx.Err(), context.DeadlineExceeded) {
			return Found, fmt.Errorf("%s[%d]: %w", xpath, index, ErrNotInteractable)
		}
		return Found, err
	}
	return Found, nil
}

func (s *chromedpSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

func (s *chromedpSession) Console() []ConsoleMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ConsoleMessage, len(s.console))
	copy(out, s.console)
	return out
}

func (s *chromedpSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.allocCancel()
	s.log.Debug().Msg("browser session closed")
	return nil
}
