package main

import "referral-engine/internal/cmd"

func main() {
	cmd.Execute()
}
