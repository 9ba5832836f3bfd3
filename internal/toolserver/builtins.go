// ABOUTME: The demonstration tool catalog: current time, arithmetic, random
// ABOUTME: numbers, temperature conversion, and mock weather.

package toolserver

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/francescoreconditi/openai-mcp/internal/tools"
)

// timeLayout renders timestamps as "2024-01-15 09:30:00 UTC".
const timeLayout = "2006-01-02 15:04:05 MST"

var weatherConditions = []string{"Sunny", "Cloudy", "Rainy", "Partly Cloudy", "Snowy"}

// Builtins returns the demonstration tool catalog.
func Builtins() []Tool {
	return []Tool{
		{
			Descriptor: tools.ToolDescriptor{
				Name:        "get_current_time",
				Description: "Get the current date and time",
				Parameters: tools.ParamSchema{
					Type: "object",
					Properties: map[string]tools.Property{
						"timezone": {
							Type:        "string",
							Description: "IANA timezone name (e.g. 'UTC', 'America/New_York')",
							Default:     "UTC",
						},
					},
				},
			},
			Handler: handleCurrentTime,
		},
		{
			Descriptor: tools.ToolDescriptor{
				Name:        "calculate",
				Description: "Perform basic mathematical calculations",
				Parameters: tools.ParamSchema{
					Type: "object",
					Properties: map[string]tools.Property{
						"expression": {
							Type:        "string",
							Description: "Mathematical expression to evaluate",
						},
					},
					Required: []string{"expression"},
				},
			},
			Handler: handleCalculate,
		},
		{
			Descriptor: tools.ToolDescriptor{
				Name:        "get_random_number",
				Description: "Generate a random number within a range",
				Parameters: tools.ParamSchema{
					Type: "object",
					Properties: map[string]tools.Property{
						"min": {Type: "integer", Description: "Minimum value", Default: 0},
						"max": {Type: "integer", Description: "Maximum value", Default: 100},
					},
				},
			},
			Handler: handleRandomNumber,
		},
		{
			Descriptor: tools.ToolDescriptor{
				Name:        "convert_temperature",
				Description: "Convert temperature between Celsius, Fahrenheit, and Kelvin",
				Parameters: tools.ParamSchema{
					Type: "object",
					Properties: map[string]tools.Property{
						"value": {Type: "number", Description: "Temperature value to convert"},
						"from_unit": {
							Type:        "string",
							Description: "Source temperature unit",
							Enum:        []string{"celsius", "fahrenheit", "kelvin"},
						},
						"to_unit": {
							Type:        "string",
							Description: "Target temperature unit",
							Enum:        []string{"celsius", "fahrenheit", "kelvin"},
						},
					},
					Required: []string{"value", "from_unit", "to_unit"},
				},
			},
			Handler: handleConvertTemperature,
		},
		{
			Descriptor: tools.ToolDescriptor{
				Name:        "get_weather",
				Description: "Get mock weather information for a city",
				Parameters: tools.ParamSchema{
					Type: "object",
					Properties: map[string]tools.Property{
						"city": {Type: "string", Description: "City name"},
					},
					Required: []string{"city"},
				},
			},
			Handler: handleWeather,
		},
	}
}

func handleCurrentTime(ctx context.Context, args map[string]any) (any, error) {
	tz, err := optionalString(args, "timezone", "UTC")
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, tools.Validationf("unknown timezone %q", tz)
	}

	now := time.Now().In(loc)
	return map[string]any{
		"timezone": tz,
		"time":     now.Format(timeLayout),
		"unix":     now.Unix(),
	}, nil
}

func handleCalculate(ctx context.Context, args map[string]any) (any, error) {
	expression, err := requireString(args, "expression")
	if err != nil {
		return nil, err
	}
	result, err := evaluate(expression)
	if err != nil {
		return nil, err
	}
	return map[string]any{"expression": expression, "result": result}, nil
}

func handleRandomNumber(ctx context.Context, args map[string]any) (any, error) {
	lower, err := optionalInt(args, "min", 0)
	if err != nil {
		return nil, err
	}
	upper, err := optionalInt(args, "max", 100)
	if err != nil {
		return nil, err
	}
	if lower > upper {
		return nil, tools.Validationf("min %d is greater than max %d", lower, upper)
	}

	return map[string]any{
		"min":   lower,
		"max":   upper,
		"value": lower + rand.IntN(upper-lower+1),
	}, nil
}

func handleConvertTemperature(ctx context.Context, args map[string]any) (any, error) {
	value, err := requireNumber(args, "value")
	if err != nil {
		return nil, err
	}
	fromUnit, err := requireString(args, "from_unit")
	if err != nil {
		return nil, err
	}
	toUnit, err := requireString(args, "to_unit")
	if err != nil {
		return nil, err
	}

	celsius, err := toCelsius(value, strings.ToLower(fromUnit))
	if err != nil {
		return nil, err
	}
	converted, err := fromCelsius(celsius, strings.ToLower(toUnit))
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"value":     value,
		"from_unit": fromUnit,
		"to_unit":   toUnit,
		"converted": math.Round(converted*100) / 100,
	}, nil
}

func handleWeather(ctx context.Context, args map[string]any) (any, error) {
	city, err := requireString(args, "city")
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"city":        city,
		"temperature": -10 + rand.IntN(46),
		"unit":        "celsius",
		"condition":   weatherConditions[rand.IntN(len(weatherConditions))],
		"humidity":    30 + rand.IntN(61),
		"wind_speed":  rand.IntN(31),
		"note":        "This is mock weather data for demonstration purposes",
	}, nil
}

func toCelsius(v float64, unit string) (float64, error) {
	switch unit {
	case "celsius":
		return v, nil
	case "fahrenheit":
		return (v - 32) * 5 / 9, nil
	case "kelvin":
		return v - 273.15, nil
	default:
		return 0, tools.Validationf("unknown temperature unit %q", unit)
	}
}

func fromCelsius(c float64, unit string) (float64, error) {
	switch unit {
	case "celsius":
		return c, nil
	case "fahrenheit":
		return c*9/5 + 32, nil
	case "kelvin":
		return c + 273.15, nil
	default:
		return 0, tools.Validationf("unknown temperature unit %q", unit)
	}
}

// Argument extraction helpers. JSON decoding hands every number over as
// float64; in-process callers may pass Go integers.

func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return "", tools.Validationf("missing required argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", tools.Validationf("argument %q must be a string", key)
	}
	return s, nil
}

func optionalString(args map[string]any, key, fallback string) (string, error) {
	if _, ok := args[key]; !ok || args[key] == nil {
		return fallback, nil
	}
	return requireString(args, key)
}

func requireNumber(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return 0, tools.Validationf("missing required argument %q", key)
	}
	return asNumber(key, v)
}

func optionalInt(args map[string]any, key string, fallback int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return fallback, nil
	}
	f, err := asNumber(key, v)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func asNumber(key string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, tools.Validationf("argument %q must be a number", key)
		}
		return f, nil
	default:
		return 0, tools.Validationf("argument %q must be a number", key)
	}
}
