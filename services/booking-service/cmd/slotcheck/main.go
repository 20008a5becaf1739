// Command slotcheck runs the availability calculation offline against JSON exports of a
// provider's hours and bookings.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
