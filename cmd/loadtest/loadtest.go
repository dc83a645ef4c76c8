// Command loadtest sends a burst of anonymous messages to one inbox and
// reports how the server answered.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	username := flag.String("username", "", "inbox to send messages to")
	total := flag.Int("n", 100, "number of messages to send")
	concurrency := flag.Int("c", 8, "maximum requests in flight")
	flag.Parse()

	if *username == "" {
		log.Fatal("-username is required")
	}

	endpoint := *baseURL + "/api/send-message"
	client := &http.Client{Timeout: 10 * time.Second}

	var (
		mu     sync.Mutex
		counts = make(map[int]int)
	)

	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*concurrency)

	for i := range *total {
		g.Go(func() error {
			code, err := send(ctx, client, endpoint, *username, fmt.Sprintf("loadtest message #%d", i))
			if err != nil {
				log.Printf("request %d failed: %v", i, err)
				code = -1
			}

			mu.Lock()
			counts[code]++
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	codes := make([]int, 0, len(counts))
	for code := range counts {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	log.Printf("sent %d messages to %q in %s", *total, *username, time.Since(start).Round(time.Millisecond))
	for _, code := range codes {
		label := http.StatusText(code)
		if code == -1 {
			label = "transport error"
		}
		log.Printf("  %4d %-24s %d", code, label, counts[code])
	}
}

func send(ctx context.Context, client *http.Client, endpoint, username, content string) (int, error) {
	body, err := json.Marshal(map[string]string{"username": username, "content": content})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()

	return res.StatusCode, nil
}
