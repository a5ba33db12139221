/*
Package server implements msgpack IPC between a host input method and the
prediction engine.

The server reads msgpack maps from stdin and writes msgpack maps to stdout.
Every request carries an "id" and an "op".

Prediction is asynchronous, like the engine behind it. A predict request is
answered once, when its suggestions are ready:

	{"id": "r1", "op": "predict", "l": "我", "p": "qu"}
	{"id": "r1", "w": "qu", "s": [{"w": "去", "r": 1}, {"w": "趣", "r": 2}], "c": 2, "t": 145}

A predict request superseded by a newer one before its result was ready gets
no response at all; hosts match responses by id and by "w", the preedit the
list answers.

Selection feedback and queries are answered synchronously:

	{"id": "r2", "op": "select", "w": "去"}
	{"id": "r2", "status": "ok"}

	{"id": "r3", "op": "features"}
	{"id": "r4", "op": "stats"}
	{"id": "r5", "op": "health"}

Failures are reported as {"id": "r6", "e": "unknown op: foo", "c": 400}.
*/
package server

// Ops understood by the server.
const (
	OpPredict  = "predict"
	OpSelect   = "select"
	OpFeatures = "features"
	OpStats    = "stats"
	OpHealth   = "health"
)

// Request is the envelope of every incoming message.
type Request struct {
	ID      string `msgpack:"id"`
	Op      string `msgpack:"op"`
	Left    string `msgpack:"l,omitempty"`
	Preedit string `msgpack:"p,omitempty"`
	Word    string `msgpack:"w,omitempty"`
}

// Suggestion is one ranked word.
type Suggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// PredictResponse answers a predict request.
type PredictResponse struct {
	ID          string       `msgpack:"id"`
	Word        string       `msgpack:"w"`
	Suggestions []Suggestion `msgpack:"s"`
	Count       int          `msgpack:"c"`
	Unmatched   string       `msgpack:"u,omitempty"`
	// TimeTaken is in microseconds, from receipt to delivery.
	TimeTaken int64 `msgpack:"t"`
}

// StatusResponse answers select and health requests, and announces readiness.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// FeaturesResponse is a snapshot of the active language features.
type FeaturesResponse struct {
	ID                    string `msgpack:"id"`
	LanguageID            string `msgpack:"lang"`
	MaxSuggestions        int    `msgpack:"max_suggestions"`
	ToneSignificant       bool   `msgpack:"tone_significant"`
	AlwaysShowSuggestions bool   `msgpack:"always_show"`
	AutoCompleteOnSpace   bool   `msgpack:"auto_complete_on_space"`
	WordSeparators        string `msgpack:"separators"`
}

// StatsResponse groups the counters of each component by name.
type StatsResponse struct {
	ID    string                    `msgpack:"id"`
	Stats map[string]map[string]int `msgpack:"stats"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
