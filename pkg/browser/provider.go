package browser

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Mode is where the browser runs.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Engine is the automation library that drives the browser.
type Engine string

const (
	EngineChromedp Engine = "chromedp"
	EngineRod      Engine = "rod"
)

// ParseEngine accepts an engine name; the empty string selects chromedp.
func ParseEngine(name string) (Engine, error) {
	switch Engine(strings.ToLower(strings.TrimSpace(name))) {
	case "", EngineChromedp:
		return EngineChromedp, nil
	case EngineRod:
		return EngineRod, nil
	default:
		return "", &ConfigError{Reason: "unknown engine " + name}
	}
}

// Capabilities are the browser settings a Mode implies.
type Capabilities struct {
	Headless bool
	// DisableGPU, NoSandbox and DisableDevShm make Chrome usable inside
	// containers; DisableDevShm moves shared memory to /tmp.
	DisableGPU    bool
	NoSandbox     bool
	DisableDevShm bool
	// ConsoleLog records every console message instead of errors only.
	ConsoleLog bool
}

// Flag is a Chrome command line switch. An empty Value is a bare switch.
type Flag struct {
	Name  string
	Value string
}

const (
	defaultNavigationTimeout = 30 * time.Second
	headlessWindowSize       = "1920,1080"
)

// ProviderOptions configure a Provider beyond what the endpoint decides.
type ProviderOptions struct {
	Engine Engine
	Logger zerolog.Logger
	// ExecPath overrides the local Chrome binary.
	ExecPath string
	// Headless runs a local browser without a window. Remote sessions are
	// always headless.
	Headless bool
	// NavigationTimeout bounds page loads started by Navigate and Back.
	NavigationTimeout time.Duration
}

// Provider opens Sessions configured for one Mode on one Engine.
type Provider struct {
	mode     Mode
	endpoint string
	engine   Engine
	caps     Capabilities
	execPath string
	navWait  time.Duration
	log      zerolog.Logger
}

// UseRemote reports whether endpoint selects remote mode: it must be
// present and not blank.
func UseRemote(endpoint string) bool {
	return strings.TrimSpace(endpoint) != ""
}

// NewProvider chooses local or remote mode from endpoint, normally the value
// of the REMOTE_URL environment variable. A malformed endpoint is a
// *ConfigError.
func NewProvider(endpoint string, opts ProviderOptions) (*Provider, error) {
	engine := opts.Engine
	if engine == "" {
		engine = EngineChromedp
	}
	if engine != EngineChromedp && engine != EngineRod {
		return nil, &ConfigError{Reason: "unknown engine " + string(engine)}
	}

	p := &Provider{
		engine:   engine,
		execPath: opts.ExecPath,
		navWait:  opts.NavigationTimeout,
		log:      opts.Logger,
	}
	if p.navWait <= 0 {
		p.navWait = defaultNavigationTimeout
	}

	if UseRemote(endpoint) {
		endpoint = strings.TrimSpace(endpoint)
		if err := validateEndpoint(endpoint); err != nil {
			return nil, err
		}
		p.mode = ModeRemote
		p.endpoint = endpoint
		p.caps = Capabilities{
			Headless:      true,
			DisableGPU:    true,
			NoSandbox:     true,
			DisableDevShm: true,
			ConsoleLog:    true,
		}
	} else {
		p.mode = ModeLocal
		p.caps.Headless = opts.Headless
	}

	p.log.Info().
		Str("mode", string(p.mode)).
		Str("engine", string(p.engine)).
		Str("endpoint", p.endpoint).
		Bool("headless", p.caps.Headless).
		Msg("browser session provider configured")
	if p.mode == ModeRemote && p.engine == EngineChromedp {
		p.log.Info().
			Interface("flags", p.Flags()).
			Msg("chromedp attaches to a running remote browser, capability flags are not applied")
	}

	return p, nil
}

func validateEndpoint(endpoint string) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return &ConfigError{Endpoint: endpoint, Reason: err.Error()}
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return &ConfigError{Endpoint: endpoint, Reason: "scheme must be http, https, ws or wss"}
	}
	if u.Host == "" {
		return &ConfigError{Endpoint: endpoint, Reason: "missing host"}
	}
	return nil
}

func (p *Provider) Mode() Mode                 { return p.mode }
func (p *Provider) Engine() Engine             { return p.engine }
func (p *Provider) Endpoint() string           { return p.endpoint }
func (p *Provider) Capabilities() Capabilities { return p.caps }

// Flags returns the Chrome switches implied by the capabilities, excluding
// headless which each engine sets its own way.
func (p *Provider) Flags() []Flag {
	var out []Flag
	if p.caps.DisableGPU {
		out = append(out, Flag{Name: "disable-gpu"})
	}
	if p.caps.NoSandbox {
		out = append(out, Flag{Name: "no-sandbox"})
	}
	if p.caps.DisableDevShm {
		out = append(out, Flag{Name: "disable-dev-shm-usage"})
	}
	if p.caps.ConsoleLog {
		out = append(out, Flag{Name: "enable-logging", Value: "stderr"}, Flag{Name: "v", Value: "1"})
	}
	if p.caps.Headless {
		out = append(out, Flag{Name: "window-size", Value: headlessWindowSize})
	} else {
		out = append(out, Flag{Name: "start-maximized"})
	}
	return out
}

// Open starts a new browser session. The caller must Close it. Open returns
// ctx's error as soon as ctx ends, even if the browser or the remote
// endpoint has not answered yet.
func (p *Provider) Open(ctx context.Context) (Session, error) {
	open := openChromedp
	if p.engine == EngineRod {
		open = openRod
	}

	type opened struct {
		session Session
		err     error
	}
	done := make(chan opened, 1)
	go func() {
		session, err := open(ctx, p)
		done <- opened{session, err}
	}()

	select {
	case o := <-done:
		return o.session, o.err
	case <-ctx.Done():
		// A session that finishes opening late has no owner.
		go func() {
			if o := <-done; o.session != nil {
				o.session.Close()
			}
		}()
		return nil, fmt.Errorf("open %s session: %w", p.engine, ctx.Err())
	}
}
