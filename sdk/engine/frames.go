package engine

import "strings"

// Frame is one complete delimited record extracted from the push stream: the
// joined payload of its data-prefixed lines, with the markers stripped.
type Frame string

// dataMarker prefixes every payload line of a frame.
const dataMarker = "data:"

// FrameDecoder turns a sequence of raw text chunks into complete frames.
// Chunk boundaries are arbitrary: a frame split across any number of chunks
// is reassembled intact, and the emitted frame sequence is identical for
// every slicing of the same input.
//
// A frame ends at a blank line. Frames carrying no payload lines are
// discarded silently. Any trailing partial frame left when the transport
// closes cannot be completed and is dropped by Close.
type FrameDecoder struct {
	remainder string
}

// Feed appends a chunk and returns every frame completed by it.
func (d *FrameDecoder) Feed(chunk string) []Frame {
	// Carriage returns are transport framing noise; payload JSON escapes any
	// \r it carries, so stripping here cannot corrupt a frame.
	d.remainder += strings.ReplaceAll(chunk, "\r", "")

	var frames []Frame
	for {
		idx := strings.Index(d.remainder, "\n\n")
		if idx < 0 {
			return frames
		}
		block := d.remainder[:idx]
		d.remainder = d.remainder[idx+2:]

		if frame, ok := parseBlock(block); ok {
			frames = append(frames, frame)
		}
	}
}

// Close discards any unconsumed partial remainder and resets the decoder.
func (d *FrameDecoder) Close() {
	d.remainder = ""
}

// parseBlock extracts the payload from one boundary-delimited block. Blocks
// with no payload lines report ok=false.
func parseBlock(block string) (Frame, bool) {
	var payload []string
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(line, dataMarker) {
			payload = append(payload, strings.TrimSpace(strings.TrimPrefix(line, dataMarker)))
		}
	}
	if len(payload) == 0 {
		return "", false
	}
	return Frame(strings.Join(payload, "\n")), true
}
