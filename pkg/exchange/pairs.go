package exchange

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// AssetQuote holds the base and quote assets of a pair
type AssetQuote struct {
	Quote string `json:"quote"`
	Asset string `json:"asset"`
}

// PairService resolves pairs into base and quote assets. Registered pairs
// take precedence over the well known quote suffixes.
type PairService struct {
	pairMap map[string]AssetQuote
	mu      sync.RWMutex
}

// quotes are tried in order, longer suffixes first
var quotes = []string{"FDUSD", "USDT", "USDC", "BUSD", "TUSD", "BTC", "ETH", "BNB", "USD", "EUR", "BRL", "TRY"}

var defaultPairService = NewPairService()

func NewPairService() *PairService {
	return &PairService{pairMap: make(map[string]AssetQuote)}
}

// Register records the assets of a pair
func (p *PairService) Register(pair, asset, quote string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pairMap[strings.ToUpper(pair)] = AssetQuote{Asset: asset, Quote: quote}
}

func (p *PairService) Split(pair string) (asset, quote string) {
	pair = strings.ToUpper(pair)

	p.mu.RLock()
	data, ok := p.pairMap[pair]
	p.mu.RUnlock()
	if ok {
		return data.Asset, data.Quote
	}

	if base, q, found := strings.Cut(pair, "/"); found {
		return base, q
	}
	for _, q := range quotes {
		if base, found := strings.CutSuffix(pair, q); found && base != "" {
			return base, q
		}
	}
	return "", ""
}

// Load reads a JSON map of pair to assets, as written by Save
func (p *PairService) Load(filename string) error {
	content, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	pairs := make(map[string]AssetQuote)
	if err := json.Unmarshal(content, &pairs); err != nil {
		return fmt.Errorf("unmarshal pairs: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for pair, data := range pairs {
		p.pairMap[strings.ToUpper(pair)] = data
	}
	return nil
}

// Save writes the registered pairs as JSON
func (p *PairService) Save(filename string) error {
	p.mu.RLock()
	content, err := json.MarshalIndent(p.pairMap, "", "  ")
	p.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshal pairs: %w", err)
	}
	return os.WriteFile(filename, content, 0o644)
}

// SplitAssetQuote splits a pair such as BTCUSDT into BTC and USDT
func SplitAssetQuote(pair string) (asset string, quote string) {
	return defaultPairService.Split(pair)
}

// RegisterPair makes a pair known to SplitAssetQuote
func RegisterPair(pair, asset, quote string) {
	defaultPairService.Register(pair, asset, quote)
}

// LoadPairs makes the pairs of a file written by SavePairs known to SplitAssetQuote
func LoadPairs(filename string) error {
	return defaultPairService.Load(filename)
}

// SavePairs writes every pair known to SplitAssetQuote
func SavePairs(filename string) error {
	return defaultPairService.Save(filename)
}
