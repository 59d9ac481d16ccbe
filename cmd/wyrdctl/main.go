// Command wyrdctl is the local-first fact store's command-line front
// end: one rootCmd, one file per command family, cobra throughout.
package main

func main() {
	Execute()
}
