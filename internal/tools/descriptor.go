// ABOUTME: Tool descriptors and their parameter schema model, plus the
// ABOUTME: registration-time validation and the function-schema transform target.

package tools

import (
	"fmt"
	"slices"
)

// ToolDescriptor describes one callable operation exposed by a provider.
// The JSON field names match the provider catalog wire format.
type ToolDescriptor struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  ParamSchema `json:"parameters"`
}

// ParamSchema is an object schema describing a tool's arguments.
type ParamSchema struct {
	Type       string              `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single named argument.
type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Default     any       `json:"default,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// FunctionSchema is a descriptor in the completion service's
// function-definition shape.
type FunctionSchema struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef carries the function fields of a FunctionSchema.
type FunctionDef struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  ParamSchema `json:"parameters"`
}

// propertyTypes lists the JSON schema types a Property may declare.
var propertyTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// ValidateDescriptor checks a statically declared descriptor once at
// registration time. It verifies the name, the object schema shape, that
// every required name exists among the properties, and that property types
// are in the allowed set.
func ValidateDescriptor(d ToolDescriptor) error {
	if d.Name == "" {
		return fmt.Errorf("tool descriptor has empty name")
	}
	if d.Parameters.Type != "" && d.Parameters.Type != "object" {
		return fmt.Errorf("tool %q: parameter schema type must be object, got %q", d.Name, d.Parameters.Type)
	}
	for name, prop := range d.Parameters.Properties {
		if name == "" {
			return fmt.Errorf("tool %q: property with empty name", d.Name)
		}
		if err := validateProperty(d.Name, name, prop); err != nil {
			return err
		}
	}
	for _, req := range d.Parameters.Required {
		if _, ok := d.Parameters.Properties[req]; !ok {
			return fmt.Errorf("tool %q: required parameter %q is not declared", d.Name, req)
		}
	}
	return nil
}

func validateProperty(tool, name string, p Property) error {
	if !propertyTypes[p.Type] {
		return fmt.Errorf("tool %q: parameter %q has unknown type %q", tool, name, p.Type)
	}
	if p.Type == "array" && p.Items == nil {
		return fmt.Errorf("tool %q: array parameter %q has no item type", tool, name)
	}
	if p.Items != nil {
		if !propertyTypes[p.Items.Type] {
			return fmt.Errorf("tool %q: parameter %q has unknown item type %q", tool, name, p.Items.Type)
		}
	}
	if len(p.Enum) > 0 && p.Type != "string" {
		return fmt.Errorf("tool %q: parameter %q declares an enum on type %q", tool, name, p.Type)
	}
	if p.Default != nil && len(p.Enum) > 0 {
		s, ok := p.Default.(string)
		if !ok || !slices.Contains(p.Enum, s) {
			return fmt.Errorf("tool %q: parameter %q has a default outside its enum", tool, name)
		}
	}
	return nil
}
