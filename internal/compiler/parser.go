// Package compiler turns raw project and scene documents into typed domain
// structs. The wire contract is the field names on the domain types; the
// compiler's job is decoding, canonicalizing authoring shorthand, and
// dropping what it cannot understand without failing the whole document.
package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/vine/internal/logging"
	"github.com/aretw0/vine/pkg/domain"
)

// Parser converts raw bytes into domain documents. Zero value is not
// usable; construct with NewParser.
type Parser struct {
	logger *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger routes parse warnings (dropped commands, alias rewrites).
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewParser creates a parser instance.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseProject decodes a full project document, JSON or YAML. Commands with
// an unknown type tag are dropped fail-open and logged; a document with no
// scenes at all is an error.
func (p *Parser) ParseProject(data []byte) (*domain.Project, error) {
	var raw map[string]any
	if err := unmarshalDoc(data, &raw); err != nil {
		return nil, fmt.Errorf("parse project document: %w", err)
	}

	var proj domain.Project
	if err := decode(raw, &proj); err != nil {
		return nil, fmt.Errorf("decode project document: %w", err)
	}
	if len(proj.Scenes) == 0 {
		return nil, domain.ErrNoScenes
	}

	p.NormalizeProject(&proj)
	return &proj, nil
}

// ParseCommands decodes a standalone command list (a scene body in the
// per-file authoring layout). sceneID seeds generated ids for commands the
// author left unnamed.
func (p *Parser) ParseCommands(sceneID string, data []byte) ([]domain.Command, error) {
	var raw []map[string]any
	if err := unmarshalDoc(data, &raw); err != nil {
		return nil, fmt.Errorf("parse command list: %w", err)
	}

	commands := make([]domain.Command, 0, len(raw))
	for _, item := range raw {
		var cmd domain.Command
		if err := decode(item, &cmd); err != nil {
			return nil, fmt.Errorf("decode command: %w", err)
		}
		commands = append(commands, cmd)
	}
	return p.normalizeCommands(sceneID, commands), nil
}

// unmarshalDoc accepts JSON or YAML. A document whose first significant
// byte is '{' or '[' goes through the JSON decoder; everything else is
// YAML.
func unmarshalDoc(data []byte, out any) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return json.Unmarshal(trimmed, out)
	}
	return yaml.Unmarshal(data, out)
}

// decode maps raw document keys onto a typed struct. Weak typing lets
// authors write numbers where the schema is stricter ("volume: 1" for a
// float); unknown keys pass silently.
func decode(raw, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
