package aggregator

import "math/rand"

// Resolver is one public recursive resolver's nameserver endpoints.
type Resolver struct {
	Nameservers  []string
	Nameservers6 []string
}

// Random returns one IPv4 nameserver at random.
func (r Resolver) Random() string {
	return r.Nameservers[rand.Intn(len(r.Nameservers))]
}

// Random6 returns one IPv6 nameserver at random.
func (r Resolver) Random6() string {
	return r.Nameservers6[rand.Intn(len(r.Nameservers6))]
}

// DefaultSet is the fixed, process-wide resolver set. Immutable after
// init; concurrent reads need no coordination.
func DefaultSet() map[string]Resolver {
	return map[string]Resolver{
		"cloudflare": {
			Nameservers:  []string{"1.1.1.1", "1.0.0.1"},
			Nameservers6: []string{"2606:4700:4700::1111", "2606:4700:4700::1001"},
		},
		"google": {
			Nameservers:  []string{"8.8.8.8", "8.8.4.4"},
			Nameservers6: []string{"2001:4860:4860::8888", "2001:4860:4860::8844"},
		},
		"opendns": {
			Nameservers:  []string{"208.67.222.222", "208.67.220.220"},
			Nameservers6: []string{"2620:119:35::35", "2620:119:53::53"},
		},
	}
}
