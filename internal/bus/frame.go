package bus

import (
	"encoding/json"
	"fmt"

	"github.com/mkandasamy/deedflow/internal/model"
)

// KeepAliveFrame is the SSE comment sent on idle timeout so intermediaries
// do not close the connection.
const KeepAliveFrame = ": keepalive\n\n"

// EventFrame renders a progress event as an SSE frame:
//
//	event: <type>
//	data: <json>
//
// followed by a blank line.
func EventFrame(ev model.ProgressEvent) string {
	data, err := json.Marshal(ev)
	if err != nil {
		// Payloads are built from JSON-safe values; a marshal failure here
		// means a programming error upstream. Emit the type alone so the
		// stream stays parseable.
		return fmt.Sprintf("event: %s\ndata: {}\n\n", ev.Type)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", ev.Type, data)
}
