/*
Copyright 2018 Craig Johnston <cjimti@gmail.com>

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
	"os"

	"github.com/spf13/cobra"
	"github.com/txn2/devlog/cmd/devlog/mcp"
	"github.com/txn2/devlog/cmd/devlog/serve"
	"github.com/txn2/devlog/cmd/devlog/tail"
	"github.com/txn2/devlog/cmd/devlog/version"
)

var globalUsage = `devlog streams a service's log events to developer terminals over a
websocket and lets them switch message forwarding per channel.

  devlog serve    run the log stream and channel API
  devlog tail     follow a server in the terminal panel
  devlog mcp      bridge a server's API to MCP clients over stdio`

var Version = "0.0.0"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "devlog",
		Short:        "Developer log stream and channel forwarding control.",
		Long:         globalUsage,
		SilenceUsage: true,
	}

	serve.Version = Version
	tail.Version = Version
	mcp.Version = Version
	version.Version = Version

	cmd.AddCommand(version.Cmd, serve.Cmd, tail.Cmd, mcp.Cmd)

	return cmd
}

func main() {
	cmd := newRootCmd()

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
