package validate

import (
	"fmt"
	"regexp"
	"strings"
)

// Contract linting for structured payloads returned by the content-generation
// collaborator. The linter never mutates or repairs a payload: it returns a
// flat list of human-readable violations, and an empty list means accept.

var snakeCasePattern = regexp.MustCompile(`\b[a-z0-9]+(?:_[a-z0-9]+)+\b`)

var placeholderStrings = []string{
	"Plain-English label",
	"Example topic",
	"Example expression",
	"Example metric",
	"Example owner",
	"Example timeframe",
}

// Human-facing field suffixes where snake_case tokens and placeholder
// phrases are contract violations.
var quantHumanSuffixes = []string{
	".headline",
	".topic",
	".expression",
	".metric",
	".why_it_matters",
	"spine_hook",
}

// LintQuantBlocks validates the quantitative anchors/measurement-plan
// payload.
func LintQuantBlocks(payload map[string]interface{}) []string {
	var errors []string

	if payload == nil {
		return []string{"Quant blocks payload must be an object."}
	}

	for _, key := range []string{"spine_hook", "anchors", "measurement_plan", "coverage"} {
		if _, ok := payload[key]; !ok {
			errors = append(errors, fmt.Sprintf("Missing top-level key: %s", key))
		}
	}

	if hook, ok := payload["spine_hook"].(string); !ok || strings.TrimSpace(hook) == "" {
		errors = append(errors, "spine_hook must be a non-empty string.")
	}

	if coverage, ok := asFloat(payload["coverage"]); !ok {
		errors = append(errors, "coverage must be a numeric value between 0.0 and 1.0.")
	} else if coverage < 0 || coverage > 1 {
		errors = append(errors, fmt.Sprintf("coverage must be between 0.0 and 1.0 (got %g).", coverage))
	}

	anchors, ok := asList(payload["anchors"])
	if payload["anchors"] != nil && !ok {
		errors = append(errors, "anchors must be a list.")
	}
	if len(anchors) == 0 {
		errors = append(errors, "anchors must contain at least one entry.")
	}
	if len(anchors) > 4 {
		errors = append(errors, fmt.Sprintf("anchors must contain <=4 entries (got %d).", len(anchors)))
	}

	for idx, raw := range anchors {
		path := fmt.Sprintf("anchors[%d]", idx)
		anchor, ok := raw.(map[string]interface{})
		if !ok {
			errors = append(errors, fmt.Sprintf("%s must be an object.", path))
			continue
		}
		for _, field := range []string{
			"id", "headline", "topic", "value_low", "value_high", "unit",
			"status", "band", "owner", "expression", "source_ids", "applies_to_signals",
		} {
			if _, present := anchor[field]; !present {
				errors = append(errors, fmt.Sprintf("%s.%s is missing.", path, field))
			}
		}

		low, lowOK := asFloat(anchor["value_low"])
		high, highOK := asFloat(anchor["value_high"])
		switch {
		case !lowOK || !highOK:
			errors = append(errors, fmt.Sprintf("%s.value_low and value_high must be numeric.", path))
		case low > high:
			errors = append(errors, fmt.Sprintf("%s.value_low (%g) > value_high (%g).", path, low, high))
		}

		if status, _ := anchor["status"].(string); status != "observed" && status != "target" {
			errors = append(errors, fmt.Sprintf("%s.status must be 'observed' or 'target' (got %v).", path, anchor["status"]))
		}
		if band, _ := anchor["band"].(string); band != "base" && band != "stretch" {
			errors = append(errors, fmt.Sprintf("%s.band must be 'base' or 'stretch' (got %v).", path, anchor["band"]))
		}
		if !isIntList(anchor["source_ids"]) {
			errors = append(errors, fmt.Sprintf("%s.source_ids must be a list of integers.", path))
		}
		if !isStringList(anchor["applies_to_signals"]) {
			errors = append(errors, fmt.Sprintf("%s.applies_to_signals must be a list of strings.", path))
		}
	}

	plan, ok := asList(payload["measurement_plan"])
	if payload["measurement_plan"] != nil && !ok {
		errors = append(errors, "measurement_plan must be a list.")
	}
	if len(plan) > 4 {
		errors = append(errors, fmt.Sprintf("measurement_plan must contain <=4 entries (got %d).", len(plan)))
	}

	for idx, raw := range plan {
		path := fmt.Sprintf("measurement_plan[%d]", idx)
		item, ok := raw.(map[string]interface{})
		if !ok {
			errors = append(errors, fmt.Sprintf("%s must be an object.", path))
			continue
		}
		for _, field := range []string{"id", "metric", "expression", "owner", "timeframe", "status", "why_it_matters"} {
			if _, present := item[field]; !present {
				errors = append(errors, fmt.Sprintf("%s.%s is missing.", path, field))
			}
		}
		if status, _ := item["status"].(string); status != "plan" && status != "observed" && status != "target" {
			errors = append(errors, fmt.Sprintf("%s.status must be 'plan', 'observed', or 'target' (got %v).", path, item["status"]))
		}
		if why, _ := item["why_it_matters"].(string); why == "" {
			errors = append(errors, fmt.Sprintf("%s.why_it_matters must be a non-empty string.", path))
		}
	}

	for _, entry := range walkStrings(payload, "") {
		if !hasSuffixAny(entry.path, quantHumanSuffixes) {
			continue
		}
		if containsPlaceholder(entry.text) {
			errors = append(errors, fmt.Sprintf("%s contains placeholder text: %q", entry.path, entry.text))
		}
		if tokens := snakeCasePattern.FindAllString(entry.text, -1); len(tokens) > 0 {
			errors = append(errors, fmt.Sprintf("%s contains snake_case tokens that look like internal ids: %v", entry.path, tokens))
		}
	}

	return errors
}

// LintOperatorSpecs validates the operator pilot/metric/role payload.
// pilot_spec.scenario is a structural field where snake_case is the correct
// form; human-facing fields (primary_move, window, target_text, role
// actions) are checked for leaks instead.
func LintOperatorSpecs(payload map[string]interface{}) []string {
	var errors []string

	if payload == nil {
		return []string{"Operator specs payload must be an object."}
	}

	for _, key := range []string{"pilot_spec", "metric_spec", "role_actions"} {
		if _, ok := payload[key]; !ok {
			errors = append(errors, fmt.Sprintf("Missing top-level key: %s", key))
		}
	}

	pilot, _ := payload["pilot_spec"].(map[string]interface{})
	if payload["pilot_spec"] != nil && pilot == nil {
		errors = append(errors, "pilot_spec must be an object.")
	}

	var keyMetrics []string
	if pilot != nil {
		for _, field := range []string{
			"scenario", "store_count", "store_type", "duration_weeks",
			"window", "primary_move", "owner_roles", "key_metrics",
		} {
			if _, present := pilot[field]; !present {
				errors = append(errors, fmt.Sprintf("pilot_spec.%s is missing.", field))
			}
		}

		if scenario, ok := pilot["scenario"].(string); !ok {
			errors = append(errors, "pilot_spec.scenario must be a string.")
		} else if !snakeCasePattern.MatchString(scenario) || snakeCasePattern.FindString(scenario) != scenario {
			errors = append(errors, fmt.Sprintf("pilot_spec.scenario should be snake_case (got %q).", scenario))
		}

		if n, ok := asFloat(pilot["store_count"]); !ok || n != float64(int(n)) || n <= 0 {
			errors = append(errors, "pilot_spec.store_count must be a positive integer.")
		}
		if n, ok := asFloat(pilot["duration_weeks"]); !ok || n != float64(int(n)) || n <= 0 {
			errors = append(errors, "pilot_spec.duration_weeks must be a positive integer.")
		}
		if window, ok := pilot["window"].(string); !ok || strings.TrimSpace(window) == "" {
			errors = append(errors, "pilot_spec.window must be a non-empty string.")
		}
		if move, ok := pilot["primary_move"].(string); !ok || strings.TrimSpace(move) == "" {
			errors = append(errors, "pilot_spec.primary_move must be a non-empty string.")
		}

		if roles, ok := asStringSlice(pilot["owner_roles"]); !ok {
			errors = append(errors, "pilot_spec.owner_roles must be a list of strings.")
		} else if len(roles) < 2 || len(roles) > 4 {
			errors = append(errors, "pilot_spec.owner_roles must contain between 2 and 4 entries.")
		}

		if metrics, ok := asStringSlice(pilot["key_metrics"]); !ok {
			errors = append(errors, "pilot_spec.key_metrics must be a list of metric id strings.")
		} else if len(metrics) == 0 {
			errors = append(errors, "pilot_spec.key_metrics must not be empty.")
		} else {
			keyMetrics = metrics
		}
	}

	metricSpec, _ := payload["metric_spec"].(map[string]interface{})
	if payload["metric_spec"] != nil && metricSpec == nil {
		errors = append(errors, "metric_spec must be an object keyed by metric ids.")
	}
	if metricSpec != nil {
		for _, id := range keyMetrics {
			if _, present := metricSpec[id]; !present {
				errors = append(errors, fmt.Sprintf("metric_spec missing entry for key metric id %q.", id))
			}
		}
		for id, raw := range metricSpec {
			path := "metric_spec." + id
			spec, ok := raw.(map[string]interface{})
			if !ok {
				errors = append(errors, fmt.Sprintf("%s must be an object.", path))
				continue
			}
			for _, field := range []string{"definition", "target_text", "status"} {
				if _, present := spec[field]; !present {
					errors = append(errors, fmt.Sprintf("%s.%s is missing.", path, field))
				}
			}
		}
	}

	roleActions, _ := payload["role_actions"].(map[string]interface{})
	if payload["role_actions"] != nil && roleActions == nil {
		errors = append(errors, "role_actions must be an object keyed by role.")
	}

	for _, entry := range walkStrings(payload, "") {
		if !isOperatorHumanField(entry.path) {
			continue
		}
		if containsPlaceholder(entry.text) {
			errors = append(errors, fmt.Sprintf("%s contains placeholder text: %q", entry.path, entry.text))
		}
		if tokens := snakeCasePattern.FindAllString(entry.text, -1); len(tokens) > 0 {
			errors = append(errors, fmt.Sprintf("%s contains snake_case tokens that look like internal ids: %v", entry.path, tokens))
		}
	}

	return errors
}

type stringEntry struct {
	path string
	text string
}

// walkStrings flattens every string value in a nested payload with its
// dotted/bracketed path.
func walkStrings(node interface{}, path string) []stringEntry {
	var results []stringEntry
	switch t := node.(type) {
	case string:
		results = append(results, stringEntry{path: path, text: t})
	case []interface{}:
		for i, v := range t {
			child := fmt.Sprintf("%s[%d]", path, i)
			if path == "" {
				child = fmt.Sprintf("[%d]", i)
			}
			results = append(results, walkStrings(v, child)...)
		}
	case map[string]interface{}:
		for k, v := range t {
			child := k
			if path != "" {
				child = path + "." + k
			}
			results = append(results, walkStrings(v, child)...)
		}
	}
	return results
}

func isOperatorHumanField(path string) bool {
	if path == "" {
		return false
	}
	clean := path
	if idx := strings.Index(clean, "["); idx > 0 {
		clean = clean[:idx]
	}
	if strings.HasSuffix(clean, ".primary_move") || strings.HasSuffix(clean, ".window") {
		return true
	}
	if strings.Contains(clean, ".metric_spec.") || strings.HasPrefix(clean, "metric_spec.") {
		if strings.HasSuffix(clean, ".target_text") {
			return true
		}
	}
	return strings.HasPrefix(clean, "role_actions.")
}

func containsPlaceholder(text string) bool {
	for _, placeholder := range placeholderStrings {
		if strings.Contains(text, placeholder) {
			return true
		}
	}
	return false
}

func hasSuffixAny(path string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}

func asFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}

func asList(v interface{}) ([]interface{}, bool) {
	list, ok := v.([]interface{})
	return list, ok
}

func asStringSlice(v interface{}) ([]string, bool) {
	raw, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

func isIntList(v interface{}) bool {
	raw, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range raw {
		f, ok := asFloat(item)
		if !ok || f != float64(int(f)) {
			return false
		}
	}
	return true
}

func isStringList(v interface{}) bool {
	raw, ok := v.([]interface{})
	if !ok {
		return false
	}
	for _, item := range raw {
		if _, ok := item.(string); !ok {
			return false
		}
	}
	return true
}
