// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/robertcorponoi/godot-rust-cli/cmd/godot-rust-cli"

func main() {
	cmd.Execute()
}
