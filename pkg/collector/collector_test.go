package collector

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jarcoal/httpmock"
)

func TestClient_Publish(t *testing.T) {
	c := New("http://collector.local/events", slog.New(slog.NewTextHandler(io.Discard, nil)))
	httpmock.Activate(t)
	defer httpmock.DeactivateAndReset()

	tests := []struct {
		name    string
		event   Event
		expects func()
		wantErr bool
	}{
		{
			name:  "collector accepts the event",
			event: Event{Event: "terminated", PID: 3, Tick: 120},
			expects: func() {
				httpmock.RegisterResponder(
					"POST",
					"http://collector.local/events",
					httpmock.NewStringResponder(200, `{"status":"ok"}`),
				)
			},
			wantErr: false,
		},
		{
			name:  "collector rejects the event",
			event: Event{Event: "preempted", PID: 1, Tick: 42},
			expects: func() {
				httpmock.RegisterResponder(
					"POST",
					"http://collector.local/events",
					httpmock.NewStringResponder(500, `{"status":"error"}`),
				)
			},
			wantErr: true,
		},
		{
			name:  "collector is unreachable",
			event: Event{Event: "admitted", PID: 0, Tick: 1},
			expects: func() {
				httpmock.RegisterResponder(
					"POST",
					"http://collector.local/events",
					httpmock.NewErrorResponder(fmt.Errorf("connection refused")),
				)
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.expects()
			err := c.Publish(tt.event)
			if (err != nil) != tt.wantErr {
				t.Errorf("Publish() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
