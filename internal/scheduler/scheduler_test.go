package scheduler

import (
	"context"
	"testing"
	"time"

	"dealbot/pkg/logx"
)

func TestNewAppliesDefaults(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, nil, nil, logx.Nop())
	if s.cfg.CartCheckSpec != "0 */6 * * *" {
		t.Fatalf("CartCheckSpec = %q", s.cfg.CartCheckSpec)
	}
	if s.cfg.CleanupSpec != "0 0 * * 0" {
		t.Fatalf("CleanupSpec = %q", s.cfg.CleanupSpec)
	}
	if s.cfg.InactiveAfter != 90*24*time.Hour {
		t.Fatalf("InactiveAfter = %v", s.cfg.InactiveAfter)
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	t.Parallel()
	s := New(Config{CartCheckSpec: "not a cron spec"}, nil, nil, nil, logx.Nop())
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s := New(Config{}, nil, nil, nil, logx.Nop())
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	s.Stop()
}
