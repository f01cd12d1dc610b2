package infra

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
)

// SSEEvent is one server-sent event. Data lines are joined with "\n".
type SSEEvent struct {
	Event string
	Data  string
}

const maxSSELine = 1 << 20

// ReadSSE yields events from r until EOF. A read failure is yielded once as
// the final pair.
func ReadSSE(r io.Reader) iter.Seq2[SSEEvent, error] {
	return func(yield func(SSEEvent, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxSSELine)

		var (
			ev   SSEEvent
			data []string
		)
		flush := func() bool {
			if len(data) == 0 && ev.Event == "" {
				return true
			}
			ev.Data = strings.Join(data, "\n")
			ok := yield(ev, nil)
			ev, data = SSEEvent{}, nil
			return ok
		}

		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				if !flush() {
					return
				}
				continue
			}
			if strings.HasPrefix(line, ":") {
				continue
			}

			field, value, _ := strings.Cut(line, ":")
			value = strings.TrimPrefix(value, " ")
			switch field {
			case "event":
				ev.Event = value
			case "data":
				data = append(data, value)
			}
		}

		if err := scanner.Err(); err != nil {
			yield(SSEEvent{}, fmt.Errorf("reading event stream: %w", err))
			return
		}
		flush()
	}
}
