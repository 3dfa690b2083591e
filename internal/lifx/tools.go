// ABOUTME: MCP tool surface over the LIFX client: one typed handler per tool.
// ABOUTME: Handlers return structured output; the SDK renders it as content.

package lifx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// SelectorInput is the shared argument for tools that address lights.
type SelectorInput struct {
	Selector string `json:"selector" jsonschema:"LIFX selector such as all, label:Kitchen, group:Bedroom, or id:d073d5..."`
}

// SetStateInput is the argument set for set_state.
type SetStateInput struct {
	Selector   string   `json:"selector" jsonschema:"LIFX selector addressing the lights to change"`
	Power      string   `json:"power,omitempty" jsonschema:"Desired power state: on or off"`
	Color      string   `json:"color,omitempty" jsonschema:"Color string such as red, #ff0000, kelvin:3500, or hue:120 saturation:1.0"`
	Brightness *float64 `json:"brightness,omitempty" jsonschema:"Brightness from 0.0 to 1.0"`
	Duration   *float64 `json:"duration,omitempty" jsonschema:"Transition time in seconds"`
}

// ToggleInput is the argument set for toggle.
type ToggleInput struct {
	Selector string  `json:"selector" jsonschema:"LIFX selector addressing the lights to toggle"`
	Duration float64 `json:"duration,omitempty" jsonschema:"Fade time in seconds"`
}

// BrightnessInput is the argument set for set_brightness.
type BrightnessInput struct {
	Selector   string   `json:"selector" jsonschema:"LIFX selector addressing the lights to change"`
	Brightness float64  `json:"brightness" jsonschema:"Brightness from 0.0 to 1.0"`
	Duration   *float64 `json:"duration,omitempty" jsonschema:"Transition time in seconds"`
}

// ColorInput is the argument set for set_color.
type ColorInput struct {
	Selector string   `json:"selector" jsonschema:"LIFX selector addressing the lights to change"`
	Color    string   `json:"color" jsonschema:"Color string such as red, #ff0000, or kelvin:3500"`
	Duration *float64 `json:"duration,omitempty" jsonschema:"Transition time in seconds"`
}

// EffectInput is the argument set for breathe_effect and pulse_effect.
type EffectInput struct {
	Selector  string   `json:"selector" jsonschema:"LIFX selector addressing the lights to animate"`
	Color     string   `json:"color" jsonschema:"Effect color"`
	FromColor string   `json:"from_color,omitempty" jsonschema:"Color to animate from; defaults to the current color"`
	Period    *float64 `json:"period,omitempty" jsonschema:"Seconds per cycle"`
	Cycles    *float64 `json:"cycles,omitempty" jsonschema:"Number of cycles"`
	Persist   bool     `json:"persist,omitempty" jsonschema:"Leave the lights at the end color instead of restoring"`
	Peak      *float64 `json:"peak,omitempty" jsonschema:"Breathe only: where in the cycle the color is fullest, 0.0 to 1.0"`
}

// ResolveInput is the argument set for resolve_selector.
type ResolveInput struct {
	Name string `json:"name" jsonschema:"Free-form light, group, or location name to resolve"`
}

// ListOutput is the structured result of list_lights.
type ListOutput struct {
	Lights []Light `json:"lights"`
	Count  int     `json:"count"`
}

// ChangeOutput is the structured result of state-changing tools.
type ChangeOutput struct {
	Results []Result `json:"results"`
}

// RegisterTools binds the full tool surface onto an MCP server.
func RegisterTools(server *mcp.Server, client *Client, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_lights",
		Description: "List lights matching a selector with their power, brightness, color, group, and location.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SelectorInput) (*mcp.CallToolResult, ListOutput, error) {
		logger.Debug("tool invoked", "tool", "list_lights")
		lights, err := client.ListLights(ctx, in.Selector)
		if err != nil {
			return nil, ListOutput{}, err
		}
		return nil, ListOutput{Lights: lights, Count: len(lights)}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_state",
		Description: "Set power, color, and/or brightness on the selected lights, optionally over a transition duration.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in SetStateInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "set_state")
		results, err := client.SetState(ctx, in.Selector, State{
			Power:      in.Power,
			Color:      in.Color,
			Brightness: in.Brightness,
			Duration:   in.Duration,
		})
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "toggle",
		Description: "Toggle power on the selected lights. Lights that are on turn off and vice versa.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ToggleInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "toggle")
		results, err := client.Toggle(ctx, in.Selector, in.Duration)
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_brightness",
		Description: "Set brightness (0.0 to 1.0) on the selected lights without changing color.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in BrightnessInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "set_brightness")
		if in.Brightness < 0 || in.Brightness > 1 {
			return nil, ChangeOutput{}, fmt.Errorf("brightness %v out of range [0,1]", in.Brightness)
		}
		results, err := client.SetState(ctx, in.Selector, State{
			Brightness: &in.Brightness,
			Duration:   in.Duration,
		})
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "set_color",
		Description: "Set the color of the selected lights. Accepts names, hex codes, and kelvin values.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ColorInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "set_color")
		results, err := client.SetState(ctx, in.Selector, State{
			Color:    in.Color,
			Duration: in.Duration,
		})
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "breathe_effect",
		Description: "Run a slow breathing color fade on the selected lights.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in EffectInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "breathe_effect")
		results, err := client.Breathe(ctx, in.Selector, Effect{
			Color:     in.Color,
			FromColor: in.FromColor,
			Period:    in.Period,
			Cycles:    in.Cycles,
			Persist:   in.Persist,
			Peak:      in.Peak,
		})
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pulse_effect",
		Description: "Run a sharp pulsing color flash on the selected lights.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in EffectInput) (*mcp.CallToolResult, ChangeOutput, error) {
		logger.Debug("tool invoked", "tool", "pulse_effect")
		results, err := client.Pulse(ctx, in.Selector, Effect{
			Color:     in.Color,
			FromColor: in.FromColor,
			Period:    in.Period,
			Cycles:    in.Cycles,
			Persist:   in.Persist,
		})
		if err != nil {
			return nil, ChangeOutput{}, err
		}
		return nil, ChangeOutput{Results: results}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_selector",
		Description: "Resolve a free-form light, group, or location name to a LIFX selector.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in ResolveInput) (*mcp.CallToolResult, Resolution, error) {
		logger.Debug("tool invoked", "tool", "resolve_selector")
		lights, err := client.ListLights(ctx, "all")
		if err != nil {
			return nil, Resolution{}, err
		}
		res := ResolveSelector(lights, in.Name)
		if res.Selector == "" {
			return nil, Resolution{}, fmt.Errorf("no light, group, or location matches %q", in.Name)
		}
		return nil, res, nil
	})
}
