package surface

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matsen/btreeplay/internal/playback"
)

// jsonFrame adds the autoplay delay, which Frame keeps out of its JSON form.
type jsonFrame struct {
	playback.Frame
	DelayMS int64 `json:"delay_ms"`
}

// WriteJSON writes frames as a JSON array.
func WriteJSON(w io.Writer, frames []playback.Frame, indent bool) error {
	out := make([]jsonFrame, len(frames))
	for i, f := range frames {
		out[i] = jsonFrame{Frame: f, DelayMS: f.Delay.Milliseconds()}
	}

	enc := json.NewEncoder(w)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encoding frames: %w", err)
	}
	return nil
}
