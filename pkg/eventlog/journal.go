// pkg/eventlog/journal.go

// Package eventlog is the event-log query facility, backed by journalctl's
// JSON output. Used by inspect reporting and by service-failure diagnostics.
package eventlog

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/iaso/pkg/execute"
	"github.com/CodeMonkeyCybersecurity/iaso/pkg/iaso_io"
	cerr "github.com/cockroachdb/errors"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Event is one journal record.
type Event struct {
	Timestamp time.Time
	Unit      string
	Priority  int
	Message   string
}

// journalctl -o json emits one object per line with these fields.
type journalEntry struct {
	RealtimeTimestamp string `json:"__REALTIME_TIMESTAMP"`
	Message           string `json:"MESSAGE"`
	Priority          string `json:"PRIORITY"`
	SystemdUnit       string `json:"_SYSTEMD_UNIT"`
}

// Query returns journal events for a unit since the given time, filtered by
// the optional predicate. A nil predicate matches everything.
func Query(rc *iaso_io.RuntimeContext, unit string, since time.Time, match func(Event) bool) ([]Event, error) {
	logger := otelzap.Ctx(rc.Ctx)

	args := []string{"-o", "json", "--no-pager"}
	if unit != "" {
		args = append(args, "-u", unit)
	}
	if !since.IsZero() {
		args = append(args, "--since", since.Format("2006-01-02 15:04:05"))
	}

	output, err := execute.Run(rc.Ctx, execute.Options{
		Command: "journalctl",
		Args:    args,
		Capture: true,
	})
	if err != nil {
		return nil, cerr.Wrap(err, "journal query failed")
	}

	var events []Event
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var entry journalEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			// Journal lines with binary payloads are skipped, not fatal.
			logger.Debug("Skipping unparseable journal line", zap.Error(err))
			continue
		}
		event := entry.toEvent()
		if match == nil || match(event) {
			events = append(events, event)
		}
	}

	logger.Debug("Journal query complete",
		zap.String("unit", unit),
		zap.Int("events", len(events)))
	return events, nil
}

func (e journalEntry) toEvent() Event {
	event := Event{
		Unit:    e.SystemdUnit,
		Message: e.Message,
	}
	if usec, err := strconv.ParseInt(e.RealtimeTimestamp, 10, 64); err == nil {
		event.Timestamp = time.UnixMicro(usec)
	}
	if prio, err := strconv.Atoi(e.Priority); err == nil {
		event.Priority = prio
	}
	return event
}
