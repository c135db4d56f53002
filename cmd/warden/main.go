// Command warden is the trust-gated autonomous remediation engine CLI.
package main

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	Execute()
}
