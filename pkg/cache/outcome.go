package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// State of a recorded query.
type State int

const (
	// StateAbsent means no attempt was recorded for the key. Collectors skip
	// calls that do not apply to a region or account, so Absent is often
	// legitimate and must not be confused with a failure.
	StateAbsent State = iota
	StateErrored
	StateSucceeded
)

func (s State) String() string {
	switch s {
	case StateAbsent:
		return "Absent"
	case StateErrored:
		return "Errored"
	case StateSucceeded:
		return "Succeeded"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const noDataReturned = "No data returned"

// Outcome is the recorded result of one upstream API call. The zero value
// is Absent.
type Outcome struct {
	state State
	err   string
	data  json.RawMessage
}

// Absent returns the outcome of a call that was never attempted.
func Absent() Outcome {
	return Outcome{}
}

// Errored returns the outcome of a failed call.
func Errored(description string) Outcome {
	if description == "" {
		description = noDataReturned
	}
	return Outcome{state: StateErrored, err: description}
}

// Succeeded returns the outcome of a successful call. The payload is
// serialized right away so that later changes to v are not observed.
func Succeeded(v interface{}) (Outcome, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Outcome{}, fmt.Errorf("encoding payload: %w", err)
	}
	return SucceededRaw(data), nil
}

// SucceededRaw returns the outcome of a successful call with an already
// encoded JSON payload. A null payload is recorded as an error because
// there is nothing a check could evaluate.
func SucceededRaw(data json.RawMessage) Outcome {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Errored(noDataReturned)
	}
	return Outcome{state: StateSucceeded, data: append(json.RawMessage(nil), trimmed...)}
}

func (o Outcome) State() State {
	return o.state
}

func (o Outcome) IsAbsent() bool {
	return o.state == StateAbsent
}

func (o Outcome) IsErrored() bool {
	return o.state == StateErrored
}

func (o Outcome) IsSucceeded() bool {
	return o.state == StateSucceeded
}

// Err returns the upstream error of an Errored outcome and nil otherwise.
func (o Outcome) Err() error {
	if o.state != StateErrored {
		return nil
	}
	return errors.New(o.err)
}

// Data returns a copy of the raw JSON payload, nil unless Succeeded.
func (o Outcome) Data() json.RawMessage {
	if o.state != StateSucceeded {
		return nil
	}
	return append(json.RawMessage(nil), o.data...)
}

// Decode unmarshals the payload into v.
func (o Outcome) Decode(v interface{}) error {
	switch o.state {
	case StateAbsent:
		return errors.New("decoding absent outcome")
	case StateErrored:
		return fmt.Errorf("decoding errored outcome: %s", o.err)
	}
	if err := json.Unmarshal(o.data, v); err != nil {
		return fmt.Errorf("decoding payload: %w", err)
	}
	return nil
}

// Len returns the number of items of a collection payload. The second
// value is false if the outcome is not a Succeeded collection.
func (o Outcome) Len() (int, bool) {
	if o.state != StateSucceeded || len(o.data) == 0 || o.data[0] != '[' {
		return 0, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(o.data, &items); err != nil {
		return 0, false
	}
	return len(items), true
}

// ErrorText renders the reason an outcome cannot be evaluated, suitable for
// embedding in a finding message.
func ErrorText(o Outcome) string {
	switch o.state {
	case StateErrored:
		return o.err
	case StateAbsent:
		return noDataReturned
	}
	return "Unable to obtain data"
}

// document is the serialized form of an outcome in snapshot files.
type document struct {
	Err  json.RawMessage `json:"err,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

func (o Outcome) MarshalJSON() ([]byte, error) {
	switch o.state {
	case StateErrored:
		errText, err := json.Marshal(o.err)
		if err != nil {
			return nil, err
		}
		return json.Marshal(document{Err: errText})
	case StateSucceeded:
		return json.Marshal(document{Data: o.data})
	}
	return []byte("{}"), nil
}

func (o *Outcome) UnmarshalJSON(data []byte) error {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*o = fromDocument(doc)
	return nil
}

func fromDocument(doc document) Outcome {
	if description, failed := errorDescription(doc.Err); failed {
		return Errored(description)
	}
	if doc.Data == nil {
		return Errored(noDataReturned)
	}
	return SucceededRaw(doc.Data)
}

// errorDescription accepts the shapes collectors use for errors: a plain
// string, an object carrying a message (and optionally a code), or any
// other non-empty JSON value.
func errorDescription(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch string(trimmed) {
	case "null", "false", `""`:
		return "", false
	}
	var text string
	if err := json.Unmarshal(trimmed, &text); err == nil {
		return text, true
	}
	var structured struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &structured); err == nil && structured.Message != "" {
		if structured.Code != "" {
			return structured.Code + ": " + structured.Message, true
		}
		return structured.Message, true
	}
	return string(trimmed), true
}
