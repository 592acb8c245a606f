package parser

import (
	"errors"

	"github.com/martxel/setra/pkg/setup"
	"github.com/martxel/setra/pkg/setup/parser/alerts"
	"github.com/martxel/setra/pkg/setup/parser/json"
)

var ErrNotFound = errors.New("parser: not found")

func New(name string) (setup.Parser, error) {
	switch name {
	case "alerts":
		return alerts.New(), nil
	case "json":
		return json.Parser{}, nil
	default:
		return nil, ErrNotFound
	}
}
