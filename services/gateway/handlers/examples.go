// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/tere4ai/services/gateway/datatypes"
)

// exampleSystems are canned descriptions spanning the risk spectrum.
// Each description is ready to paste into POST /v1/analyze.
var exampleSystems = []datatypes.ExampleSystem{
	{
		Name: "Deepfake Generator",
		Description: "A web application that generates realistic synthetic videos " +
			"of people from a reference photo and a script. Users upload a " +
			"portrait, type what the person should say, and receive a video of " +
			"that person speaking. The output is intended for marketing and " +
			"entertainment content.",
		ExpectedRiskLevel: "limited",
	},
	{
		Name: "Hospital Triage Assistant",
		Description: "An AI assistant deployed in hospital emergency departments " +
			"that reads intake notes and vital signs, then recommends a triage " +
			"priority for each patient. Nurses see the recommendation alongside " +
			"their own assessment and can override it. The system influences " +
			"who receives urgent care first.",
		ExpectedRiskLevel: "high",
	},
	{
		Name: "E-commerce Support Chatbot",
		Description: "A customer support chatbot for an online shop. It answers " +
			"questions about orders, shipping, and returns in natural language, " +
			"and hands the conversation to a human agent when it cannot help. " +
			"It does not make decisions about customers beyond routing their " +
			"requests.",
		ExpectedRiskLevel: "limited",
	},
	{
		Name: "Movie Recommender",
		Description: "A recommendation engine inside a video streaming service " +
			"that suggests films based on viewing history. Recommendations " +
			"only reorder the catalogue presented to the viewer; they have no " +
			"effect on pricing, access, or any other decision about the user.",
		ExpectedRiskLevel: "minimal",
	},
}

// ListExamples returns the handler for GET /v1/examples.
func ListExamples() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"examples": exampleSystems,
		})
	}
}
