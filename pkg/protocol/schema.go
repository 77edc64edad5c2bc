package protocol

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const inboundSchemaURL = "https://github.com/teslashibe/go-miniapp/schema/inbound.schema.json"

//go:embed schema/inbound.schema.json
var inboundSchema string

// ErrInvalidMessage is returned for frames that fail schema validation.
var ErrInvalidMessage = errors.New("protocol: invalid message")

// Validator checks web-view frames against the inbound JSON schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the embedded inbound schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(inboundSchemaURL, strings.NewReader(inboundSchema)); err != nil {
		return nil, fmt.Errorf("add inbound schema: %w", err)
	}
	schema, err := compiler.Compile(inboundSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile inbound schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// Validate checks a raw frame.
func (v *Validator) Validate(data []byte) error {
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := v.schema.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return nil
}

// Decode validates a raw frame and parses its envelope.
func (v *Validator) Decode(data []byte) (*Message, error) {
	if err := v.Validate(data); err != nil {
		return nil, err
	}
	return ParseMessage(data)
}
