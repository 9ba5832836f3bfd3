// ABOUTME: Tests for the tool registry: registration validation, duplicate
// ABOUTME: rejection, and execution error passthrough.

package toolserver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

func echoTool(name string) Tool {
	return Tool{
		Descriptor: tools.ToolDescriptor{
			Name:        name,
			Description: "echoes its arguments",
			Parameters:  tools.ParamSchema{Type: "object"},
		},
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return args, nil
		},
	}
}

func TestRegistry_Register_RejectsInvalidDescriptor(t *testing.T) {
	r := NewRegistry(nil)

	err := r.Register(tools.ToolDescriptor{Name: ""}, func(ctx context.Context, args map[string]any) (any, error) {
		return nil, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}

func TestRegistry_Register_RejectsNilHandler(t *testing.T) {
	r := NewRegistry(nil)

	err := r.Register(echoTool("echo").Descriptor, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil handler")
}

func TestRegistry_Register_RejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)
	tool := echoTool("echo")

	require.NoError(t, r.Register(tool.Descriptor, tool.Handler))
	err := r.Register(tool.Descriptor, tool.Handler)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistry_Descriptors_SortedByName(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.RegisterAll([]Tool{echoTool("zeta"), echoTool("alpha"), echoTool("mid")}))

	descriptors := r.Descriptors()
	require.Len(t, descriptors, 3)
	assert.Equal(t, "alpha", descriptors[0].Name)
	assert.Equal(t, "mid", descriptors[1].Name)
	assert.Equal(t, "zeta", descriptors[2].Name)
	assert.Equal(t, 3, r.Len())
}

func TestRegistry_Execute_UnknownTool(t *testing.T) {
	r := NewRegistry(nil)

	_, err := r.Execute(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistry_Execute_NilArgumentsBecomeEmptyMap(t *testing.T) {
	r := NewRegistry(nil)
	var got map[string]any
	require.NoError(t, r.Register(
		tools.ToolDescriptor{Name: "probe", Parameters: tools.ParamSchema{Type: "object"}},
		func(ctx context.Context, args map[string]any) (any, error) {
			got = args
			return "ok", nil
		},
	))

	_, err := r.Execute(context.Background(), "probe", nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRegistry_Execute_HandlerErrorsPassThrough(t *testing.T) {
	r := NewRegistry(nil)
	require.NoError(t, r.Register(
		tools.ToolDescriptor{Name: "strict", Parameters: tools.ParamSchema{Type: "object"}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, tools.Validationf("bad arguments")
		},
	))
	require.NoError(t, r.Register(
		tools.ToolDescriptor{Name: "broken", Parameters: tools.ParamSchema{Type: "object"}},
		func(ctx context.Context, args map[string]any) (any, error) {
			return nil, errors.New("something exploded")
		},
	))

	_, err := r.Execute(context.Background(), "strict", map[string]any{})
	var verr *tools.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = r.Execute(context.Background(), "broken", map[string]any{})
	assert.Error(t, err)
	assert.False(t, errors.As(err, &verr))
}
