package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/linnemanlabs/reclaim/internal/asset"
)

const classifySystemPrompt = `You are the Reclaim Home AI. Return ONLY JSON.`

const classifyPrompt = `Analyze this photo of a household appliance, vehicle or consumable supply.
Return a single JSON object with:
- manufacturer (string)
- model_number (string)
- serial_number (string)
- category (string, e.g. HVAC, Plumbing, Kitchen, Laundry, Supplies)
- is_consumable (boolean, true for supplies such as filters, detergent or ink)
- health_score (integer 1-10; condition for durables, tenths of supply remaining for consumables)
- birth_year (integer, estimated manufacture year)
- avg_lifespan (integer, years for durables, months for consumables)
- estimated_value (string, e.g. "$450")
- estimated_replacement_cost (string, e.g. "$1,200")
- replace_vs_repair (string, short advice)
- modern_alternative (string)
- reorder_link (string, URL for consumables, empty otherwise)
- maintenance_alert (string, a short proactive tip based on age and type)
- diagnostics (object with primary_fault_prediction and diy_fix_steps strings)

If you cannot read a value, use "Unknown".
If the photo does not show something you can identify, return {"manufacturer": "Error", "message": "<why>"}.`

const diagnoseSystemPrompt = `You are an expert handyman AI. Be specific to the model provided. Return ONLY JSON.`

const tooledChatSuffix = `
You can look up the lifecycle of the current item and a summary of the user's inventory with the available tools.`

func buildDiagnosePrompt(rec asset.Record, symptom string) string {
	return fmt.Sprintf(`The user has a %s %s.
Model: %s.

The reported symptom is: %q.

Provide a JSON response with:
- likely_cause (string)
- difficulty_level (string: "Easy", "Medium", or "Call a Pro")
- estimated_time (string)
- steps (array of strings, specific troubleshooting steps for this model)
- safety_warning (string, e.g. "Turn off breaker")`,
		rec.Manufacturer, categoryOr(rec.Category), rec.ModelNumber, symptom)
}

func categoryOr(c string) string {
	if c == "" {
		return "appliance"
	}
	return c
}

var errNoJSONObject = errors.New("no JSON object in model output")

// extractJSON pulls the first top-level JSON object out of model text,
// tolerating markdown code fences and chatter around it.
func extractJSON(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return nil, errNoJSONObject
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("decode model output: %w", err)
	}
	return out, nil
}

// responseText joins the text blocks of a response.
func responseText(blocks []ContentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == BlockText && b.Text != "" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}
