package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

const baseURL = "http://localhost:8080"

func main() {
	// Wait for server to start
	time.Sleep(2 * time.Second)

	// 1. Health Check
	checkEndpoint("GET", "/health", 200)

	// 2. Series: either a completed run (200) or not ready yet (503)
	status, body := fetch("GET", "/api/get-data")
	if status != 200 && status != 503 {
		log.Fatalf("Expected status 200 or 503, got %d. Body: %s", status, string(body))
	}
	if status == 200 {
		var series []struct {
			Date        string                     `json:"date"`
			Instruments map[string]json.RawMessage `json:"instruments"`
		}
		if err := json.Unmarshal(body, &series); err != nil {
			log.Fatalf("Series did not decode: %v", err)
		}
		for i := 1; i < len(series); i++ {
			if series[i].Date <= series[i-1].Date {
				log.Fatalf("Series dates not strictly ascending at index %d: %s then %s", i, series[i-1].Date, series[i].Date)
			}
		}
		fmt.Printf("Series OK: %d days\n", len(series))
	} else {
		fmt.Println("Series not ready yet (503), which is fine right after startup")
	}

	fmt.Println("ALL TESTS PASSED")
}

func checkEndpoint(method, path string, expectedStatus int) {
	status, body := fetch(method, path)
	if status != expectedStatus {
		log.Fatalf("Expected status %d, got %d. Body: %s", expectedStatus, status, string(body))
	}
	fmt.Printf("%s %s OK\n", method, path)
}

func fetch(method, path string) (int, []byte) {
	fmt.Printf("Testing %s %s...\n", method, path)
	req, _ := http.NewRequest(method, baseURL+path, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body
}
