// Package adapter surfaces a listener session to a host application as a
// state snapshot plus success and error callbacks.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"go.uber.org/atomic"
)

// ErrClosed is returned by Init after Close.
var ErrClosed = errors.New("adapter: closed")

// Session is the listener session as seen by a host, either in process or
// over HTTP.
type Session interface {
	StartListener(ctx context.Context) error
	StopListener(ctx context.Context) error
	GetStatus(ctx context.Context) (entity.Status, error)
	GetAppHash(ctx context.Context) (string, error)
	Events(ctx context.Context) (<-chan entity.Event, error)
}

type Options struct {
	// AutoStart starts listening once, right after a successful Init.
	AutoStart bool
	OnSuccess func(code string)
	OnError   func(info entity.ErrorInfo)
	// OnChange receives the new state after every change.
	OnChange func(State)
}

// State is the host-facing snapshot.
type State struct {
	AppHash     string
	SMSCode     string
	IsLoading   bool
	IsListening bool
	// Error is "<KIND>: <message>" for episode failures, or a description of
	// a failed action. Empty means no error.
	Error    string
	Status   *entity.Status
	IsReady  bool
	HasError bool
}

type Adapter struct {
	session Session
	opts    Options
	closed  *atomic.Bool

	mu          sync.Mutex
	appHash     string
	smsCode     string
	loading     bool
	listening   bool
	errMsg      string
	status      *entity.Status
	initialized bool

	stopPump context.CancelFunc
	pumpDone chan struct{}
}

func New(session Session, opts Options) *Adapter {
	return &Adapter{
		session: session,
		opts:    opts,
		closed:  atomic.NewBool(false),
		loading: true,
	}
}

// Init loads the app hash and status, subscribes to events and, with
// AutoStart, starts listening. Initialization errors are kept in the state
// and returned.
func (a *Adapter) Init(ctx context.Context) error {
	if a.closed.Load() {
		return ErrClosed
	}

	a.update(func() {
		a.loading = true
		a.errMsg = ""
	})

	initErr := a.load(ctx)
	a.update(func() {
		a.initialized = true
		a.loading = false
		if initErr != nil {
			a.errMsg = "Initialization failed: " + initErr.Error()
		}
	})
	if initErr != nil {
		return initErr
	}

	if a.opts.AutoStart {
		if err := a.Start(ctx); err != nil {
			slog.WarnContext(ctx, "auto start of sms listener failed", "error", err)
		}
	}

	return nil
}

func (a *Adapter) load(ctx context.Context) error {
	hash, err := a.session.GetAppHash(ctx)
	if err != nil {
		return err
	}
	status, err := a.session.GetStatus(ctx)
	if err != nil {
		return err
	}

	pumpCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := a.session.Events(pumpCtx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	a.mu.Lock()
	if a.closed.Load() {
		a.mu.Unlock()
		cancel()
		return ErrClosed
	}
	prevStop, prevDone := a.stopPump, a.pumpDone
	a.appHash = hash
	a.status = &status
	a.stopPump = cancel
	a.pumpDone = done
	a.mu.Unlock()

	go a.pump(events, done)

	// a repeated Init replaces the previous subscription
	if prevStop != nil {
		prevStop()
		<-prevDone
	}
	return nil
}

// Start clears the error and starts listening. It does nothing after Close.
func (a *Adapter) Start(ctx context.Context) error {
	if a.closed.Load() {
		return nil
	}

	a.update(func() {
		a.errMsg = ""
		a.listening = true
	})

	if err := a.session.StartListener(ctx); err != nil {
		a.update(func() {
			a.errMsg = fmt.Sprintf("SMS retrieval failed: %v", err)
			a.listening = false
		})
		return err
	}

	return nil
}

func (a *Adapter) Stop(ctx context.Context) error {
	if err := a.session.StopListener(ctx); err != nil {
		a.update(func() { a.errMsg = fmt.Sprintf("Failed to stop listener: %v", err) })
		return err
	}

	a.update(func() {
		a.listening = false
		a.errMsg = ""
	})
	return nil
}

// Reset clears the received code and any error, then stops listening.
func (a *Adapter) Reset(ctx context.Context) error {
	a.update(func() {
		a.smsCode = ""
		a.errMsg = ""
		a.listening = false
	})
	return a.Stop(ctx)
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Close stops listening and the event subscription. No callback fires
// after Close returns.
func (a *Adapter) Close(ctx context.Context) error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := a.session.StopListener(ctx)

	a.mu.Lock()
	stop, done := a.stopPump, a.pumpDone
	a.mu.Unlock()

	if stop != nil {
		stop()
		<-done
	}

	return err
}

func (a *Adapter) pump(events <-chan entity.Event, done chan struct{}) {
	defer close(done)

	for evt := range events {
		if a.closed.Load() {
			continue
		}

		switch evt.Type {
		case entity.EventCodeReceived:
			a.update(func() {
				a.smsCode = evt.Code
				a.listening = false
				a.errMsg = ""
			})
			if a.opts.OnSuccess != nil {
				a.opts.OnSuccess(evt.Code)
			}

		case entity.EventError:
			if evt.Error == nil {
				continue
			}
			info := *evt.Error
			a.update(func() {
				a.errMsg = info.Error()
				a.listening = false
			})
			if a.opts.OnError != nil {
				a.opts.OnError(info)
			}
		}
	}
}

// update applies fn under the lock and reports the new state to OnChange.
func (a *Adapter) update(fn func()) {
	a.mu.Lock()
	fn()
	st := a.snapshotLocked()
	a.mu.Unlock()

	if a.opts.OnChange != nil && !a.closed.Load() {
		a.opts.OnChange(st)
	}
}

func (a *Adapter) snapshotLocked() State {
	st := State{
		AppHash:     a.appHash,
		SMSCode:     a.smsCode,
		IsLoading:   a.loading,
		IsListening: a.listening,
		Error:       a.errMsg,
		IsReady:     a.initialized && !a.loading && a.errMsg == "",
		HasError:    a.errMsg != "",
	}
	if a.status != nil {
		s := *a.status
		st.Status = &s
	}
	return st
}
