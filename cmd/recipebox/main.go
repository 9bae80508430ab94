// Command recipebox manages a single-user recipe box from the terminal and
// serves it as a web page.
package main

import "github.com/mesh-intelligence/recipebox/internal/cli"

func main() {
	cli.Execute()
}
