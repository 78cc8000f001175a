package cmd

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// drainingService stops accepting at Shutdown but only finishes once
// release is closed, like an http.Server with a request in flight.
type drainingService struct {
	stopped  chan struct{}
	release  chan struct{}
	finished atomic.Bool
	startErr error
}

func newDrainingService() *drainingService {
	return &drainingService{stopped: make(chan struct{}), release: make(chan struct{})}
}

func (d *drainingService) Start() error {
	if d.startErr != nil {
		return d.startErr
	}
	<-d.stopped
	return http.ErrServerClosed
}

func (d *drainingService) Shutdown(ctx context.Context) error {
	close(d.stopped)
	select {
	case <-d.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.finished.Store(true)
	return nil
}

func TestServeWaitsForShutdown(t *testing.T) {
	svc := newDrainingService()
	ctx, cancel := context.WithCancel(context.Background())

	returned := make(chan error, 1)
	go func() { returned <- serve(ctx, svc, 5*time.Second) }()
	cancel()

	<-svc.stopped
	select {
	case <-returned:
		t.Fatal("serve returned while a request was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(svc.release)
	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after shutdown finished")
	}
	if !svc.finished.Load() {
		t.Error("serve returned before Shutdown completed")
	}
}

func TestServeReturnsStartError(t *testing.T) {
	svc := newDrainingService()
	svc.startErr = errors.New("address already in use")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := serve(ctx, svc, time.Second); !errors.Is(err, svc.startErr) {
		t.Errorf("err = %v, want %v", err, svc.startErr)
	}
}
