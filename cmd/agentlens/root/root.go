// Copyright 2025 The agentlens Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package root holds the agentlens root command. Subcommand packages attach
// themselves in their init functions.
package root

import "github.com/spf13/cobra"

// RootCmd is the base command of the agentlens CLI.
var RootCmd = &cobra.Command{
	Use:   "agentlens",
	Short: "Tool-use metrics for recorded agent simulations.",
	Long: `agentlens evaluates recorded conversational-agent runs against
ground-truth task plans: per-tool precision/recall, tool criticality,
sequence compliance and complexity-aware pass rates.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}
