// Package params talks to the backend's settings endpoints: sampling
// parameters and the streaming toggle. Calls are fire-and-forget from the
// session's point of view; a failed update is logged, never surfaced.
package params

import (
	"math"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Param describes one tunable sampling parameter.
type Param struct {
	Label   string
	Name    string // key sent to the backend
	Default float64
	Min     float64
	Max     float64
	Step    float64
}

// Table lists the parameters in sidebar order.
var Table = []Param{
	{Label: "Temperature", Name: "temperature", Default: 1.0, Min: 0.1, Max: 1, Step: 0.1},
	{Label: "Top P", Name: "top_p", Default: 1.0, Min: 0.1, Max: 1, Step: 0.1},
	{Label: "Top K", Name: "top_k", Default: 50, Min: 1, Max: 100, Step: 1},
	{Label: "Maximum Output Tokens", Name: "max_new_tokens", Default: 512, Min: 50, Max: 2048, Step: 1},
}

// Lookup finds a parameter by backend name or label, ignoring case.
func Lookup(name string) (Param, bool) {
	for _, p := range Table {
		if strings.EqualFold(p.Name, name) || strings.EqualFold(p.Label, name) {
			return p, true
		}
	}
	return Param{}, false
}

// Clamp limits v to the parameter's range and snaps it to the step grid.
func (p Param) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return p.Default
	}
	v = math.Max(p.Min, math.Min(p.Max, v))
	if p.Step > 0 {
		v = p.Min + math.Round((v-p.Min)/p.Step)*p.Step
		v = math.Max(p.Min, math.Min(p.Max, v))
	}
	return roundTo(v, p.decimals())
}

// Nudge moves v by n steps, staying in range.
func (p Param) Nudge(v float64, n int) float64 {
	return p.Clamp(v + float64(n)*p.Step)
}

// Format renders v with the precision implied by the step.
func (p Param) Format(v float64) string {
	return strconv.FormatFloat(v, 'f', p.decimals(), 64)
}

// Parse reads a user-entered value and clamps it.
func (p Param) Parse(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	return p.Clamp(v), nil
}

func (p Param) decimals() int {
	if p.Step <= 0 || p.Step >= 1 {
		return 0
	}
	return int(math.Ceil(-math.Log10(p.Step)))
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// Values holds the current value of every parameter by backend name.
type Values map[string]float64

// Defaults returns the initial values.
func Defaults() Values {
	v := make(Values, len(Table))
	for _, p := range Table {
		v[p.Name] = p.Default
	}
	return v
}

type nameSource []Param

func (s nameSource) String(i int) string { return s[i].Name }
func (s nameSource) Len() int            { return len(s) }

// Suggest returns parameter names resembling query, best match first.
func Suggest(query string) []string {
	matches := fuzzy.FindFrom(strings.ToLower(query), nameSource(Table))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, Table[m.Index].Name)
	}
	return names
}
