package state

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrInvalid is returned by Decode for payloads that do not match the schema.
var ErrInvalid = errors.New("state: invalid record")

//go:embed state.schema.json
var schemaText string

var schema = jsonschema.MustCompileString("state.schema.json", schemaText)

// Encode serializes s. Non-finite metrics are written as 0 since JSON has no
// representation for them.
func Encode(s State) ([]byte, error) {
	s.Version = Version
	if s.Log == nil {
		s.Log = []Record{}
	}
	if s.Last != nil {
		last := finite(*s.Last)
		s.Last = &last
	}
	log := make([]Record, len(s.Log))
	for i, r := range s.Log {
		log[i] = finite(r)
	}
	s.Log = log

	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("state: encode: %w", err)
	}
	return b, nil
}

// Decode parses and validates a published State.
func Decode(data []byte) (State, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := schema.Validate(doc); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	var s State
	if err := json.Unmarshal(data, &s); err != nil {
		return State{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return s, nil
}

func finite(r Record) Record {
	fix := func(v *float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
		}
	}
	for _, v := range []*float64{
		&r.GlobalRate, &r.WindowRate, &r.InstantRate,
		&r.GlobalAccuracy, &r.WindowAccuracy, &r.InstantAccuracy,
		&r.GlobalPower, &r.WindowPower, &r.InstantPower,
	} {
		fix(v)
	}
	return r
}
