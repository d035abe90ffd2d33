package generate

import "fmt"

// Mode selects how tokens are picked. It is either Greedy or Sampled.
type Mode interface {
	fmt.Stringer
	isMode()
}

// Greedy always takes the most likely token. Temperature and top-p do not apply.
type Greedy struct{}

// Sampled draws from the temperature-scaled nucleus of the distribution.
type Sampled struct {
	Temperature float64
	TopP        float64
}

func (Greedy) isMode()  {}
func (Sampled) isMode() {}

func (Greedy) String() string { return "greedy" }

func (s Sampled) String() string { return "sampled" }

// ModeFor maps request knobs to a Mode: temperature 0 is greedy, anything
// above samples with the given temperature and top-p.
func ModeFor(temperature, topP float64) Mode {
	if temperature <= 0 {
		return Greedy{}
	}
	return Sampled{Temperature: temperature, TopP: topP}
}
