// Package main is the entry point for the nflspread CLI tool, which builds
// leakage-free rolling team statistics from NFL play-by-play logs and
// predicts home-relative point spreads.
package main

import "github.com/pable/go-nfl-spread/cmd"

func main() {
	cmd.Execute()
}
