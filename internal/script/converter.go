// Package script converts Chinese text between simplified and traditional
// script using the OpenCC conversion tables embedded in
// github.com/longbridgeapp/opencc.
package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/longbridgeapp/opencc"
)

// DefaultConversion maps simplified characters to traditional ones.
const DefaultConversion = "s2t"

// ErrUnknownConversion is returned by New for a conversion name that OpenCC
// does not ship a configuration for.
var ErrUnknownConversion = errors.New("unknown script conversion")

var supported = []string{"s2t", "s2tw", "s2hk", "t2s", "tw2s", "hk2s"}

// Converter applies one OpenCC conversion. It holds no per-call state and is
// safe for concurrent use once constructed.
type Converter struct {
	name string
	cc   *opencc.OpenCC
}

// New loads the named OpenCC conversion. An empty name selects
// DefaultConversion. A missing or corrupt conversion table is reported here so
// callers can treat it as a startup failure.
func New(name string) (*Converter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultConversion
	}

	if !isSupported(name) {
		return nil, fmt.Errorf("%w %q (expected %s)", ErrUnknownConversion, name, strings.Join(supported, "|"))
	}

	cc, err := opencc.New(name)
	if err != nil {
		return nil, fmt.Errorf("load opencc conversion %q: %w", name, err)
	}

	return &Converter{name: name, cc: cc}, nil
}

// Name returns the OpenCC conversion name, e.g. "s2t".
func (c *Converter) Name() string { return c.name }

// Convert substitutes every mapped character or phrase. Characters absent
// from the table pass through unchanged.
func (c *Converter) Convert(s string) (string, error) {
	if s == "" {
		return "", nil
	}

	out, err := c.cc.Convert(s)
	if err != nil {
		return "", fmt.Errorf("convert %s: %w", c.name, err)
	}

	return out, nil
}

func isSupported(name string) bool {
	for _, s := range supported {
		if s == name {
			return true
		}
	}

	return false
}
