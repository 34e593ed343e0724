// Command powerflow copies finished Pocket AI recordings into a Notion
// database, once on demand or continuously as a background daemon.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
