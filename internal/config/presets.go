package config

import (
	"sort"
	"strings"

	"leadscout/internal/errors"
)

// Reddit presets are short, conversational phrases; LinkedIn presets lean
// on the vocabulary people use when posting a request in public.
func DefaultPresets() map[string][]string {
	p := map[string][]string{
		"rwa_reddit": {
			"need help tokenizing", "tokenization platform", "tokenize real estate",
			"rwa platform", "asset tokenization", "looking for tokenization",
		},
		"rwa_linkedin": {
			"looking for tokenization partner", "seeking RWA tokenization",
			"recommend tokenization platform", "real world asset tokenization provider",
			"tokenization consultant",
		},
		"crypto_reddit": {
			"need crypto developer", "looking for web3 developer", "defi help",
			"smart contract help", "crypto payment integration",
		},
		"crypto_linkedin": {
			"seeking web3 agency", "looking for crypto consultant",
			"recommend defi development", "crypto integration partner",
		},
		"ai_reddit": {
			"need ai developer", "looking for ml engineer", "chatbot help",
			"ai automation help", "recommend ai agency",
		},
		"ai_linkedin": {
			"seeking ai consultant", "looking for ai automation partner",
			"recommend machine learning agency", "ai implementation partner",
		},
		"blockchain_reddit": {
			"need blockchain developer", "blockchain consultant",
			"custom blockchain help", "looking for blockchain agency",
		},
		"blockchain_linkedin": {
			"seeking blockchain development partner", "blockchain consulting firm",
			"recommend blockchain agency", "enterprise blockchain solution",
		},
		"general": {
			"looking for", "need help", "recommendation", "suggestions",
			"outsource", "consultant", "agency",
		},
	}

	for _, svc := range []string{"rwa", "crypto", "ai", "blockchain"} {
		p[svc] = mergeKeywords(p[svc+"_reddit"], p[svc+"_linkedin"])
	}
	var all [][]string
	for _, svc := range []string{"rwa", "crypto", "ai", "blockchain"} {
		all = append(all, p[svc])
	}
	p["all"] = mergeKeywords(all...)
	return p
}

// DefaultServices are the categories leads are tagged with.
func DefaultServices() map[string][]string {
	return map[string][]string{
		"RWA": {
			"real world asset", "rwa", "tokenization", "tokenize",
			"asset tokenization", "real estate token", "physical asset",
			"commodities", "tokenized asset", "on-chain asset",
		},
		"Crypto": {
			"cryptocurrency", "crypto", "bitcoin", "ethereum", "defi",
			"decentralized finance", "crypto exchange", "crypto wallet",
			"crypto payment", "crypto integration", "web3", "dapp",
		},
		"Blockchain": {
			"blockchain", "smart contract", "distributed ledger", "dlt",
			"blockchain development", "blockchain solution", "blockchain platform",
			"consensus", "node", "blockchain integration",
		},
		"NFT": {
			"nft", "non-fungible token", "nft marketplace", "nft collection",
			"digital collectible", "nft platform", "nft minting",
		},
		"AI/ML": {
			"artificial intelligence", "machine learning", "ai solution",
			"ml model", "deep learning", "neural network", "ai integration",
			"chatbot", "ai automation", "predictive analytics",
		},
		"Fintech": {
			"fintech", "financial technology", "payment gateway", "payment processing",
			"digital payment", "banking solution", "financial platform",
			"lending platform", "investment platform",
		},
		"Development": {
			"software development", "app development", "web development",
			"mobile app", "custom solution", "api integration",
			"system integration", "platform development",
		},
	}
}

// Preset returns the keyword list stored under name.
func (c Config) Preset(name string) ([]string, error) {
	kw, ok := c.Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok || len(kw) == 0 {
		return nil, errors.Mark(
			errors.WithHintf(errors.Newf("unknown keyword preset %q", name), "known presets: %s", strings.Join(c.PresetNames(), ", ")),
			errors.ErrConfiguration)
	}
	return append([]string(nil), kw...), nil
}

func (c Config) PresetNames() []string {
	names := make([]string, 0, len(c.Presets))
	for n := range c.Presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mergeKeywords(lists ...[]string) []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range lists {
		for _, k := range l {
			key := strings.ToLower(k)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, k)
		}
	}
	return out
}
