package mindful

import (
	"fmt"
	"sort"
	"strings"
)

// Model presets map friendly names to the provider's wire names.
var modelPresets = map[string]string{
	"omni": "vgpt-a1-1",
	"mod1": "vgpt-g2-3",
	"mod2": "vgpt-g2-4",
}

// Agent presets are ready-made system prompts. The custom agent wraps
// a caller-supplied instruction.
var agentPresets = map[string]string{
	"default": "Your name is MindfulGPT. You are a helpful assistant. Respond in a informal but polite human tone.",
	"vision":  "Your name is MindfulGPT. You can study an image and describe it in detail. Explain the scene clearly. Make sure any text is readable and easy to understand. Respond with a detailed description of the image.",
	"prompt":  "Your name is MindfulGPT. You can transform simple image descriptions into detailed, vivid prompts for image generation. You will analyze user's intent and desired outcome. Keep the prompts clear, precise and readable. Be creative while maintaining coherence. Respond with a detailed prompt for image generation.",
	"caption": "Your name is MindfulGPT. You can caption an image by analyzing the main subjects and objects, environment and setting, actions and interactions, colors and lighting, mood and atmosphere and artistic style. Respond with a detailed caption for the image.",
	"custom":  "%s",
}

// AgentCustom is the agent selected automatically when a caller
// provides their own instruction.
const AgentCustom = "custom"

// ResolveModel maps a friendly model name to its wire name.
func ResolveModel(name string) (string, error) {
	wire, ok := modelPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown model %q (have: %s)", name, strings.Join(presetNames(modelPresets), ", "))
	}
	return wire, nil
}

// ResolveAgent returns the system prompt for an agent. The custom
// agent requires a non-empty instruction to format into its template.
func ResolveAgent(name, instruction string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	template, ok := agentPresets[key]
	if !ok {
		return "", fmt.Errorf("unknown agent %q (have: %s)", name, strings.Join(presetNames(agentPresets), ", "))
	}
	if key == AgentCustom {
		if instruction == "" {
			return "", fmt.Errorf("agent %q needs an instruction", name)
		}
		return fmt.Sprintf(template, instruction), nil
	}
	return template, nil
}

// AgentNames lists the available agent presets.
func AgentNames() []string { return presetNames(agentPresets) }

func presetNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
