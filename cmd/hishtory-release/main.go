package main

import (
	"fmt"
	"os"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version":
			fmt.Printf("hishtory-release %s\n", Version)
			return
		case "install":
			// Download the client for this platform and hand off to it
			if err := runInstall(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "sign":
			// Sign the darwin artifacts in the working directory
			if err := runSign(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "validate":
			// Validate a full release artifact set
			if err := runValidate(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			return
		case "--help", "-h", "help":
			printUsage()
			return
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown subcommand %q\n\n", os.Args[1])
			printUsage()
			os.Exit(1)
		}
	}

	printUsage()
	os.Exit(1)
}

func printUsage() {
	fmt.Println("hishtory-release - fetch, sign, and verify hiSHtory release artifacts")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  hishtory-release install [--offline] [args...]   Download and install the client for this host")
	fmt.Println("  hishtory-release sign                            Sign the darwin artifacts in the working directory")
	fmt.Println("  hishtory-release validate [--config <file>]      Validate a full release artifact set")
	fmt.Println("  hishtory-release --version                       Print the tool version")
}
