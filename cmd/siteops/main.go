// Command siteops runs the site operations assistant: an HTTP API, an
// interactive chat client, and tool and model management commands.
package main

func main() {
	Execute()
}
