package verifylog

import "encoding/json"

// Record is one structured log line, as written to JobLogLine (§3)
// and echoed through the job poll API (§6).
type Record struct {
	Seq        int            `json:"seq"`
	Code       Code           `json:"code"`
	Params     map[string]any `json:"params,omitempty"`
	Level      Level          `json:"level"`
	Visibility Visibility     `json:"visibility"`
}

// Message renders the wire format the spec requires: the JSON object
// `{"code": "...", "params": {...}}`, with level/visibility/seq kept
// as separate row columns rather than embedded in the message body.
func (r Record) Message() string {
	body := struct {
		Code   Code           `json:"code"`
		Params map[string]any `json:"params,omitempty"`
	}{Code: r.Code, Params: r.Params}
	b, err := json.Marshal(body)
	if err != nil {
		return `{"code":"` + string(r.Code) + `"}`
	}
	return string(b)
}

// Sink receives log records as they are emitted. The job executor
// supplies a capturing sink whose records it writes as JobLogLine rows
// in batches at its commit points; stateless verification requests
// supply a no-op sink; tests supply a capturing sink.
type Sink interface {
	Emit(code Code, params map[string]any)
}

// NopSink discards every record. Used by stateless verify requests
// that have no job to attach a log trail to.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Code, map[string]any) {}

// CapturingSink accumulates records with dense, monotonic sequence
// numbers, starting at 0. Numbering continues across a caller draining
// Records, so batches flushed one after another stay contiguous. Used
// by the job executor and by tests.
type CapturingSink struct {
	Records []Record
	next    int
}

// Emit implements Sink.
func (c *CapturingSink) Emit(code Code, params map[string]any) {
	level, visibility := classify(code)
	c.Records = append(c.Records, Record{
		Seq:        c.next,
		Code:       code,
		Params:     params,
		Level:      level,
		Visibility: visibility,
	})
	c.next++
}

// Visible filters records down to what a viewer at the given
// visibility may see. A privileged viewer sees everything; a public
// viewer sees only VisibilityPublic records.
func Visible(records []Record, privileged bool) []Record {
	if privileged {
		return records
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if r.Visibility == VisibilityPublic {
			out = append(out, r)
		}
	}
	return out
}
