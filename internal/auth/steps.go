package auth

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Step is one instruction of a login recipe. The set of implementations is
// closed: Fill, Click, Wait, WaitFor, Type, Press and Goto.
type Step interface {
	Kind() string
	isStep()
}

// Fill replaces the value of an input.
type Fill struct {
	Selector string
	Value    string
}

// Click clicks the first element matching Selector.
type Click struct {
	Selector string
}

// Wait sleeps for a fixed duration.
type Wait struct {
	Duration time.Duration
}

// WaitFor blocks until Selector is attached to the DOM.
type WaitFor struct {
	Selector string
}

// Type sends key strokes one by one into an element.
type Type struct {
	Selector string
	Value    string
}

// Press presses a single key, e.g. "Enter".
type Press struct {
	Key string
}

// Goto navigates to another URL.
type Goto struct {
	URL string
}

func (Fill) Kind() string    { return "fill" }
func (Click) Kind() string   { return "click" }
func (Wait) Kind() string    { return "wait" }
func (WaitFor) Kind() string { return "wait_for" }
func (Type) Kind() string    { return "type" }
func (Press) Kind() string   { return "press" }
func (Goto) Kind() string    { return "goto" }

func (Fill) isStep()    {}
func (Click) isStep()   {}
func (Wait) isStep()    {}
func (WaitFor) isStep() {}
func (Type) isStep()    {}
func (Press) isStep()   {}
func (Goto) isStep()    {}

// Recipe is the top level `auth` block of a config document.
type Recipe struct {
	URL   string
	Steps []Step
}

type rawRecipe struct {
	URL   string      `yaml:"url"`
	Steps []yaml.Node `yaml:"steps"`
}

// UnmarshalYAML decodes and validates a recipe. Malformed steps are rejected
// here so a broken recipe never reaches the browser.
func (r *Recipe) UnmarshalYAML(node *yaml.Node) error {
	var raw rawRecipe
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if raw.URL == "" {
		return errors.New("auth.url is required")
	}

	steps := make([]Step, 0, len(raw.Steps))
	for i := range raw.Steps {
		step, err := decodeStep(&raw.Steps[i])
		if err != nil {
			return fmt.Errorf("auth.steps[%d] (line %d): %w", i, raw.Steps[i].Line, err)
		}
		steps = append(steps, step)
	}

	r.URL = raw.URL
	r.Steps = steps
	return nil
}

var instructionKeys = map[string]bool{
	"fill": true, "click": true, "wait": true, "wait_for": true,
	"type": true, "press": true, "goto": true,
}

func decodeStep(node *yaml.Node) (Step, error) {
	if node.Kind != yaml.MappingNode {
		return nil, errors.New("step must be a mapping")
	}

	var kind string
	var operand, value *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case key.Value == "value":
			value = val
		case instructionKeys[key.Value]:
			if kind != "" {
				return nil, fmt.Errorf("step has both %q and %q", kind, key.Value)
			}
			kind, operand = key.Value, val
		default:
			return nil, fmt.Errorf("unknown step key %q", key.Value)
		}
	}
	if kind == "" {
		return nil, errors.New("step has no instruction")
	}
	if value != nil && kind != "fill" && kind != "type" {
		return nil, fmt.Errorf("%q does not take a value", kind)
	}

	if kind == "wait" {
		var ms int
		if err := operand.Decode(&ms); err != nil {
			return nil, fmt.Errorf("wait: expected milliseconds: %w", err)
		}
		if ms < 0 {
			return nil, fmt.Errorf("wait: negative duration %d", ms)
		}
		return Wait{Duration: time.Duration(ms) * time.Millisecond}, nil
	}

	arg, err := scalar(kind, operand)
	if err != nil {
		return nil, err
	}
	var val string
	if value != nil {
		if val, err = scalar("value", value); err != nil {
			return nil, err
		}
	}

	switch kind {
	case "fill":
		return Fill{Selector: arg, Value: val}, nil
	case "click":
		return Click{Selector: arg}, nil
	case "wait_for":
		return WaitFor{Selector: arg}, nil
	case "type":
		return Type{Selector: arg, Value: val}, nil
	case "press":
		return Press{Key: arg}, nil
	default:
		return Goto{URL: arg}, nil
	}
}

func scalar(name string, node *yaml.Node) (string, error) {
	if node.Kind != yaml.ScalarNode {
		return "", fmt.Errorf("%s: expected a string", name)
	}
	if node.ShortTag() == "!!null" {
		// A null value fills nothing, a null instruction argument is an error.
		if name == "value" {
			return "", nil
		}
		return "", fmt.Errorf("%s: empty argument", name)
	}
	if name != "value" && node.Value == "" {
		return "", fmt.Errorf("%s: empty argument", name)
	}
	return node.Value, nil
}
