// Package collector publishes simulation events to an external HTTP
// collector. The collector is optional tooling around a run: a publish
// failure is logged and dropped, never allowed to stall the engine.
package collector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/osdev-edu/cpusim/utils/log"
)

// Event is one significant scheduling occurrence.
type Event struct {
	Event string `json:"event"`
	PID   uint32 `json:"pid"`
	Tick  uint64 `json:"tick"`
}

type Client struct {
	url    string
	logger *slog.Logger
}

func New(url string, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		logger: logger,
	}
}

// Publish POSTs one event to the collector.
func (c *Client) Publish(ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	resp, err := http.Post(c.url, "application/json", bytes.NewBuffer(body))
	if err != nil {
		c.logger.Error("could not publish event to collector",
			log.ErrAttr(err),
			log.StringAttr("event", ev.Event),
			log.IntAttr("pid", int(ev.PID)),
		)
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		err = fmt.Errorf("collector responded %d", resp.StatusCode)
		c.logger.Error("collector rejected event",
			log.ErrAttr(err),
			log.StringAttr("event", ev.Event),
		)
		return err
	}

	c.logger.Debug("event published",
		log.StringAttr("event", ev.Event),
		log.IntAttr("pid", int(ev.PID)),
		log.IntAttr("status_code", resp.StatusCode),
	)
	return nil
}
