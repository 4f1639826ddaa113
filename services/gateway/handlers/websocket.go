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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/tere4ai/services/gateway/jobs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// JobProgressWS returns the handler for GET /v1/jobs/:jobId/ws.
//
// # Description
//
// Streams jobs.ProgressEvent frames as JSON until the job reaches a
// terminal state, then sends one final frame carrying the report URL
// and closes. Subscribing to an already-finished job delivers its
// terminal event immediately, so a late client still gets a sane
// stream instead of silence.
//
// # Limitations
//
//   - The handler never reads from the socket. A vanished client is
//     detected on the next write, which is fine at one write per
//     pipeline phase.
func JobProgressWS(manager *jobs.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("jobId")

		events, cancel, err := manager.Subscribe(jobID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		defer cancel()

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("Failed to upgrade websocket",
				slog.String("job_id", jobID),
				slog.String("error", err.Error()))
			return
		}
		defer ws.Close()

		for event := range events {
			if err := ws.WriteJSON(event); err != nil {
				slog.Debug("Websocket client gone", slog.String("job_id", jobID))
				return
			}

			if event.Status.IsTerminal() {
				final := gin.H{
					"job_id":     event.JobID,
					"status":     event.Status,
					"report_url": "/v1/jobs/" + event.JobID + "/report",
				}
				if err := ws.WriteJSON(final); err != nil {
					return
				}
				_ = ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		}
	}
}
