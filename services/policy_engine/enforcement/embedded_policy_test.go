// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package enforcement

import (
	"testing"

	"gopkg.in/yaml.v3"
)

// TestEmbeddedRuleFile guards the build-time embed: a missing or
// malformed rule file should fail here, not at gateway startup.
func TestEmbeddedRuleFile(t *testing.T) {
	if len(DataClassificationPatterns) == 0 {
		t.Fatal("embedded rule file is empty; data_classification_patterns.yaml missing from the build")
	}

	var dump map[string]interface{}
	if err := yaml.Unmarshal(DataClassificationPatterns, &dump); err != nil {
		t.Fatalf("embedded rule file is not valid YAML: %v", err)
	}

	raw, ok := dump["classifications"]
	if !ok {
		t.Fatal("embedded YAML is missing the 'classifications' key")
	}
	groups, ok := raw.([]interface{})
	if !ok || len(groups) == 0 {
		t.Fatalf("'classifications' should be a non-empty list, got %T", raw)
	}

	// The scanner's two deployment-critical groups must be present.
	names := make(map[string]bool)
	for _, g := range groups {
		m, ok := g.(map[string]interface{})
		if !ok {
			continue
		}
		if name, ok := m["name"].(string); ok {
			names[name] = true
		}
	}
	for _, want := range []string{"secret", "pii"} {
		if !names[want] {
			t.Errorf("rule file is missing the %q classification group", want)
		}
	}
}
