// Command tcagent is the Teach Charlie desktop companion.
package main

import "github.com/teachcharlie/tcagent/internal/cli"

func main() {
	cli.Execute()
}
