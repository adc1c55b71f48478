package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ddworken/hishtory-release/internal/install"
)

// runInstall handles the `hishtory-release install` subcommand.
// Unrecognized arguments are forwarded to the downloaded client's
// install subcommand.
func runInstall(args []string) error {
	offline := os.Getenv("HISHTORY_OFFLINE") != ""
	endpoint := os.Getenv("HISHTORY_DOWNLOAD_ENDPOINT")
	var extra []string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--help", "-h":
			printInstallHelp()
			return nil
		case "--offline":
			offline = true
		default:
			extra = append(extra, args[i])
		}
	}

	err := install.Run(context.Background(), install.Options{
		Endpoint:  endpoint,
		Offline:   offline,
		ExtraArgs: extra,
	})
	if err != nil {
		return err
	}

	fmt.Println("Successfully installed hishtory! Open a new terminal, try running a command, and then running `hishtory query`.")
	return nil
}

func printInstallHelp() {
	fmt.Println("Usage: hishtory-release install [--offline] [args...]")
	fmt.Println()
	fmt.Println("Downloads the hiSHtory client built for this host and runs its")
	fmt.Println("install subcommand. Additional arguments are forwarded to it.")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  HISHTORY_OFFLINE             When set, pass --offline to the client")
	fmt.Println("  HISHTORY_DOWNLOAD_ENDPOINT   Override the download metadata endpoint")
	fmt.Println("  TMPDIR                       Directory to download the client into")
}
