package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"
)

// Polls the health endpoint until the service answers, for use in start
// scripts and CI.
//
// Usage example on the command line:
// > go run main.go -url=http://localhost:8080/health
func main() {
	urlPtr := flag.String("url", "http://localhost:8080/health", "the health endpoint to poll")
	flag.Parse()

	totalWaitTime := 0
	for {
		res, err := http.Get(*urlPtr)
		if err == nil {
			if res.StatusCode == http.StatusOK {
				fmt.Println(res)
				break
			}
			fmt.Println(res)
		} else {
			fmt.Println(err)
		}
		totalWaitTime += 5
		fmt.Printf("Waiting %d seconds\n", totalWaitTime)
		time.Sleep(5 * time.Second)
	}
}
