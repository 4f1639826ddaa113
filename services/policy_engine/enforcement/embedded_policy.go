// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package enforcement carries the data classification rule file into
// the binary. The submission scanner always runs with the rule set it
// was built with; there is no runtime rule path to misconfigure.
package enforcement

import (
	_ "embed"
)

// DataClassificationPatterns is the raw data_classification_patterns.yaml
// content, embedded at build time. policy_engine.NewPolicyEngine
// unmarshals and compiles it; any edit to the rule file requires a
// rebuild to take effect.
//
//go:embed data_classification_patterns.yaml
var DataClassificationPatterns []byte
