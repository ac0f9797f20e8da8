package main

import cmd "github.com/cozy-creator/influencer-studio/cmd/studio"

func main() {
	cmd.Execute()
}
