package password

import (
	"bufio"
	"context"
	"crypto/sha1"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultBreachAPIURL = "https://api.pwnedpasswords.com/range/"

// BreachChecker queries the Pwned Passwords range API. Only the first five
// characters of the SHA-1 ever leave the process (k-anonymity); the full
// password and full hash are never transmitted.
type BreachChecker struct {
	client  *http.Client
	baseURL string
}

func NewBreachChecker() *BreachChecker {
	return &BreachChecker{
		client:  &http.Client{Timeout: 3 * time.Second},
		baseURL: defaultBreachAPIURL,
	}
}

// NewBreachCheckerWithURL is used by tests to point at a local server.
func NewBreachCheckerWithURL(baseURL string, client *http.Client) *BreachChecker {
	if client == nil {
		client = &http.Client{Timeout: 3 * time.Second}
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &BreachChecker{client: client, baseURL: baseURL}
}

// IsCompromised is best-effort: any network or protocol failure is logged
// and treated as "not compromised" so an outage never blocks signups.
func (b *BreachChecker) IsCompromised(ctx context.Context, plain string) bool {
	sum := sha1.Sum([]byte(plain))
	digest := strings.ToUpper(fmt.Sprintf("%x", sum))
	prefix, suffix := digest[:5], digest[5:]

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+prefix, nil)
	if err != nil {
		log.Printf("breach check skipped: %v", err)
		return false
	}

	resp, err := b.client.Do(req)
	if err != nil {
		log.Printf("breach check skipped: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("breach check skipped: unexpected status %d", resp.StatusCode)
		return false
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		candidate, _, found := strings.Cut(line, ":")
		if found && strings.EqualFold(candidate, suffix) {
			return true
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("breach check skipped: %v", err)
	}

	return false
}
