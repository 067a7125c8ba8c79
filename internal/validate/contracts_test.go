package validate

import (
	"strings"
	"testing"
)

func validQuantPayload() map[string]interface{} {
	return map[string]interface{}{
		"spine_hook": "Retail chains are piloting autonomous checkout at scale",
		"coverage":   0.8,
		"anchors": []interface{}{
			map[string]interface{}{
				"id":                 "a1",
				"headline":           "Checkout automation cuts labor cost by a fifth",
				"topic":              "Store economics",
				"value_low":          18.0,
				"value_high":         22.0,
				"unit":               "%",
				"status":             "observed",
				"band":               "base",
				"owner":              "Finance",
				"expression":         "labor cost delta vs control stores",
				"source_ids":         []interface{}{1, 3},
				"applies_to_signals": []interface{}{"S1"},
			},
		},
		"measurement_plan": []interface{}{
			map[string]interface{}{
				"id":             "m1",
				"metric":         "Basket size",
				"expression":     "average items per transaction",
				"owner":          "Head of Retail",
				"timeframe":      "8 weeks",
				"status":         "plan",
				"why_it_matters": "Confirms checkout speed does not shrink baskets",
			},
		},
	}
}

func TestLintQuantBlocks_Valid(t *testing.T) {
	if errs := LintQuantBlocks(validQuantPayload()); len(errs) != 0 {
		t.Errorf("expected clean payload, got violations: %v", errs)
	}
}

func TestLintQuantBlocks_MissingKeys(t *testing.T) {
	errs := LintQuantBlocks(map[string]interface{}{})
	if len(errs) == 0 {
		t.Fatal("expected violations for empty payload")
	}
	joined := strings.Join(errs, "\n")
	for _, key := range []string{"spine_hook", "anchors", "measurement_plan", "coverage"} {
		if !strings.Contains(joined, "Missing top-level key: "+key) {
			t.Errorf("missing violation for key %s in %v", key, errs)
		}
	}
}

func TestLintQuantBlocks_ValueOrdering(t *testing.T) {
	payload := validQuantPayload()
	anchor := payload["anchors"].([]interface{})[0].(map[string]interface{})
	anchor["value_low"] = 30.0
	anchor["value_high"] = 10.0

	errs := LintQuantBlocks(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "value_low") && strings.Contains(e, "> value_high") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected ordering violation, got %v", errs)
	}
}

func TestLintQuantBlocks_EnumAndTypes(t *testing.T) {
	payload := validQuantPayload()
	anchor := payload["anchors"].([]interface{})[0].(map[string]interface{})
	anchor["status"] = "guessed"
	anchor["band"] = "wild"
	anchor["source_ids"] = []interface{}{"one"}

	errs := LintQuantBlocks(payload)
	joined := strings.Join(errs, "\n")
	for _, want := range []string{"status must be 'observed' or 'target'", "band must be 'base' or 'stretch'", "source_ids must be a list of integers"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected violation %q in %v", want, errs)
		}
	}
}

func TestLintQuantBlocks_CoverageRange(t *testing.T) {
	payload := validQuantPayload()
	payload["coverage"] = 1.4
	errs := LintQuantBlocks(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "coverage must be between") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected coverage range violation, got %v", errs)
	}
}

func TestLintQuantBlocks_TooManyAnchors(t *testing.T) {
	payload := validQuantPayload()
	anchors := payload["anchors"].([]interface{})
	for i := 0; i < 4; i++ {
		anchors = append(anchors, anchors[0])
	}
	payload["anchors"] = anchors

	errs := LintQuantBlocks(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "anchors must contain <=4 entries") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected anchor count violation, got %v", errs)
	}
}

func TestLintQuantBlocks_SnakeCaseLeak(t *testing.T) {
	payload := validQuantPayload()
	anchor := payload["anchors"].([]interface{})[0].(map[string]interface{})
	anchor["headline"] = "Growth in checkout_automation_rate continues"

	errs := LintQuantBlocks(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "snake_case tokens") && strings.Contains(e, "headline") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected snake_case leak violation, got %v", errs)
	}
}

func TestLintQuantBlocks_Placeholder(t *testing.T) {
	payload := validQuantPayload()
	anchor := payload["anchors"].([]interface{})[0].(map[string]interface{})
	anchor["topic"] = "Example topic"

	errs := LintQuantBlocks(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "placeholder text") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected placeholder violation, got %v", errs)
	}
}

func validOperatorPayload() map[string]interface{} {
	return map[string]interface{}{
		"pilot_spec": map[string]interface{}{
			"scenario":       "autonomous_checkout_pilot",
			"store_count":    12,
			"store_type":     "suburban grocery",
			"duration_weeks": 8,
			"window":         "Nov 24 - Dec 01, 2025",
			"primary_move":   "Roll out camera-based checkout in twelve pilot stores",
			"owner_roles":    []interface{}{"Head of Retail", "Finance"},
			"key_metrics":    []interface{}{"basket_size"},
		},
		"metric_spec": map[string]interface{}{
			"basket_size": map[string]interface{}{
				"definition":  "average items per transaction",
				"target_text": "Hold basket size within two percent of control",
				"status":      "plan",
			},
		},
		"role_actions": map[string]interface{}{
			"Head of Retail": []interface{}{"Select pilot stores and train staff"},
		},
	}
}

func TestLintOperatorSpecs_Valid(t *testing.T) {
	if errs := LintOperatorSpecs(validOperatorPayload()); len(errs) != 0 {
		t.Errorf("expected clean payload, got %v", errs)
	}
}

func TestLintOperatorSpecs_ScenarioMustBeSnakeCase(t *testing.T) {
	payload := validOperatorPayload()
	payload["pilot_spec"].(map[string]interface{})["scenario"] = "Autonomous Checkout Pilot"

	errs := LintOperatorSpecs(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "scenario should be snake_case") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected snake_case requirement on scenario, got %v", errs)
	}
}

func TestLintOperatorSpecs_HumanFieldLeak(t *testing.T) {
	payload := validOperatorPayload()
	payload["pilot_spec"].(map[string]interface{})["primary_move"] = "Ship the store_rollout_plan to ops"

	errs := LintOperatorSpecs(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, "primary_move") && strings.Contains(e, "snake_case tokens") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected leak violation on primary_move, got %v", errs)
	}
}

func TestLintOperatorSpecs_MissingMetricEntry(t *testing.T) {
	payload := validOperatorPayload()
	payload["metric_spec"] = map[string]interface{}{}

	errs := LintOperatorSpecs(payload)
	found := false
	for _, e := range errs {
		if strings.Contains(e, `metric_spec missing entry for key metric id "basket_size"`) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing metric entry violation, got %v", errs)
	}
}
