// Command prtget is a source-package front-end: it resolves dependencies,
// drives a port builder and installer in order, and reports what
// happened.
package main

import "github.com/winkj/prt-get/cmd"

func main() {
	cmd.Execute()
}
