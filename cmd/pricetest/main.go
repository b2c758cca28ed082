// Command pricetest fetches one round of REST market data and listens to the
// live price stream for a few seconds, printing both side by side.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"crypto_dash/internal/feed"
	"crypto_dash/internal/infra"
	"crypto_dash/internal/infra/coingecko"
)

func main() {
	coins := flag.String("coins", "bitcoin,ethereum,ripple", "comma separated coin ids")
	listen := flag.Duration("listen", 5*time.Second, "how long to listen to the live stream")
	flag.Parse()

	cfg := infra.DefaultConfig()
	ids := strings.Split(*coins, ",")

	fmt.Println("=== crypto-dash price probe ===")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), *listen+15*time.Second)
	defer cancel()

	// 1. REST snapshot
	gecko := coingecko.New(cfg.API.CoinGecko.RestURL, cfg.API.CoinGecko.RatePerMin)
	markets, err := gecko.Markets(ctx, ids)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ markets: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("📊 CoinGecko markets")
	for _, c := range markets {
		fmt.Printf("   %-10s $%s (%+.2f%% 24h)\n", c.ID, c.CurrentPrice.StringFixed(2), c.PriceChangePercentage24h)
	}
	fmt.Println()

	// 2. Live stream
	var mu sync.Mutex
	latest := make(map[string]string)
	frames := 0

	client := feed.NewClient(feed.Config{URL: cfg.API.CoinCap.WSURL, Assets: ids})
	client.AddListener(feed.PriceUpdate, func(ev feed.Event) {
		mu.Lock()
		defer mu.Unlock()
		frames++
		for asset, p := range ev.Prices {
			latest[asset] = p
		}
	})
	client.AddListener(feed.Error, func(ev feed.Event) {
		fmt.Fprintf(os.Stderr, "⚠️  feed error: %v\n", ev.Err)
	})

	fmt.Printf("📡 Listening to %s for %s\n", client.URL(), *listen)
	client.Connect(ctx)
	time.Sleep(*listen)
	client.Disconnect()

	mu.Lock()
	defer mu.Unlock()
	assets := make([]string, 0, len(latest))
	for a := range latest {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	fmt.Printf("   %d frames received\n", frames)
	for _, a := range assets {
		p, err := decimal.NewFromString(latest[a])
		if err != nil {
			continue
		}
		fmt.Printf("   %-10s $%s\n", a, p.StringFixed(2))
	}
	if frames == 0 {
		fmt.Println("   no live prices received")
	}
}
