package server

import (
	"context"
	"strings"
	"testing"
)

func TestStart_Validation(t *testing.T) {
	tests := []struct {
		name string
		opts StartOpts
		want string
	}{
		{"nil store", StartOpts{}, "store is required"},
		{"nil broker", StartOpts{Store: newTestEnv(t, defaultAgent, nil).store}, "broker is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Start(context.Background(), tt.opts)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestStart_NilConfig(t *testing.T) {
	env := newTestEnv(t, defaultAgent, nil)
	err := Start(context.Background(), StartOpts{Store: env.store, Broker: env.broker})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "config is required") {
		t.Errorf("error = %q, want to contain %q", err.Error(), "config is required")
	}
}
