/*
Copyright 2026 The Dapr Authors
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at
    http://www.apache.org/licenses/LICENSE-2.0
Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dapr/queuekit/logger"
)

var log = logger.NewLogger("queuekit.queuesim")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	logOpts := logger.DefaultOptions()

	rootCmd := &cobra.Command{
		Use:          "queuesim",
		Short:        "Producer/consumer simulations for queuekit queues",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logOpts.SetAppID("queuesim")
			return logger.ApplyOptionsToLoggers(&logOpts)
		},
	}
	logOpts.AttachCmdFlags(rootCmd.PersistentFlags().StringVar, rootCmd.PersistentFlags().BoolVar)

	rootCmd.AddCommand(newBlockingCmd(), newDelayCmd())
	return rootCmd
}
