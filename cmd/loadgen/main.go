// loadgen fires paced restock triggers at a running server and reports how
// the rate limiter and stock ledger held up.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8080", "server base URL")
		productID = flag.Int64("product", 1, "product id to trigger")
		total     = flag.Int("n", 500, "total requests to send")
		perSecond = flag.Int("rate", 500, "request pacing per second")
		manual    = flag.Bool("manual", false, "drive the manual endpoint instead")
	)
	flag.Parse()

	path := fmt.Sprintf("%s/products/%d/notifications/re-stock", *baseURL, *productID)
	if *manual {
		path = fmt.Sprintf("%s/products/admin/%d/notifications/re-stock", *baseURL, *productID)
	}

	ctx := context.Background()
	limiter := rate.NewLimiter(rate.Limit(*perSecond), 1)
	client := &http.Client{Timeout: 10 * time.Second}

	var okCount, failCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *total; i++ {
		if err := limiter.Wait(ctx); err != nil {
			log.Fatalf("pacing interrupted: %v", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := client.Post(path, "application/json", nil)
			if err != nil {
				failCount.Add(1)
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				okCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== LOADGEN RESULTS ==========")
	fmt.Printf("Target:           %s\n", path)
	fmt.Printf("Total Requests:   %d\n", *total)
	fmt.Printf("Succeeded (200):  %d\n", okCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Printf("Effective Rate:   %.1f req/s\n", float64(*total)/elapsed.Seconds())
	fmt.Println("=====================================")
}
