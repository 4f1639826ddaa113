// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/tere4ai/services/gateway"
	"github.com/spf13/cobra"
	"golang.org/x/mod/semver"
)

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("tere4ai client %s\n", gateway.Version)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := newGatewayClient(serverURL, apiKey)
	info, err := client.Health(ctx)
	if err != nil {
		fmt.Println(dimStyle.Render("Server unreachable at " + serverURL))
		return
	}
	fmt.Printf("%s server %s\n", info.Service, info.Version)

	if versionMismatch(gateway.Version, info.Version) {
		fmt.Println(errorStyle.Render("Client and server versions differ; consider upgrading."))
	}
}

// versionMismatch compares two semantic versions, tolerating missing
// "v" prefixes and unparseable values.
func versionMismatch(clientVersion, serverVersion string) bool {
	cv := "v" + clientVersion
	sv := "v" + serverVersion
	if !semver.IsValid(cv) || !semver.IsValid(sv) {
		return false
	}
	return semver.Compare(cv, sv) != 0
}
