package neural

import (
	"fmt"
	"iter"
	"strings"

	"gonum.org/v1/gonum/floats"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/shared"
)

// finiteDifferenceStep is ε in the central difference (f(x+ε) − f(x−ε)) / 2ε.
const finiteDifferenceStep = 1e-5

// Rule maps a vector to a scalar. Implementations must be pure: the overlay
// evaluates them repeatedly, including at perturbed inputs.
type Rule interface {
	Evaluate(x []float64) float64
}

// RuleFunc adapts a plain function to Rule.
type RuleFunc func(x []float64) float64

// Evaluate implements Rule.
func (f RuleFunc) Evaluate(x []float64) float64 { return f(x) }

// BuiltinRule returns the named built-in rule.
func BuiltinRule(kind string) (Rule, error) {
	switch strings.ToLower(kind) {
	case "sum":
		return RuleFunc(floats.Sum), nil
	case "mean":
		return RuleFunc(mean), nil
	case "max":
		return RuleFunc(func(x []float64) float64 {
			if len(x) == 0 {
				return 0
			}
			return floats.Max(x)
		}), nil
	case "min":
		return RuleFunc(func(x []float64) float64 {
			if len(x) == 0 {
				return 0
			}
			return floats.Min(x)
		}), nil
	case "norm":
		return RuleFunc(func(x []float64) float64 { return floats.Norm(x, 2) }), nil
	case "product":
		return RuleFunc(floats.Prod), nil
	default:
		return nil, fmt.Errorf("%w: %q", domainNeural.ErrUnknownRule, kind)
	}
}

type ruleEntry struct {
	name string
	rule Rule
	// slot is the rule's fixed position among the appended outputs.
	slot int
}

// SymbolicOverlay appends one output per registered rule to the vector that
// reaches it, and differentiates the rules numerically on the way back.
// Rules are enumerated in insertion order.
type SymbolicOverlay struct {
	rules        []ruleEntry
	index        map[string]int
	neuralOutput []float64
	processed    bool
}

// NewSymbolicOverlay creates an overlay with no rules.
func NewSymbolicOverlay() *SymbolicOverlay {
	return &SymbolicOverlay{index: make(map[string]int)}
}

// AddRule registers rule under name. Re-registering a name replaces the rule
// and keeps its slot.
func (o *SymbolicOverlay) AddRule(name string, rule Rule) {
	if slot, ok := o.index[name]; ok {
		o.rules[slot].rule = rule
		return
	}
	slot := len(o.rules)
	o.rules = append(o.rules, ruleEntry{name: name, rule: rule, slot: slot})
	o.index[name] = slot
}

// Len returns the number of registered rules.
func (o *SymbolicOverlay) Len() int { return len(o.rules) }

// Names returns the rule names in enumeration order.
func (o *SymbolicOverlay) Names() []string {
	names := make([]string, len(o.rules))
	for i, r := range o.rules {
		names[i] = r.name
	}
	return names
}

// Slot returns the enumeration position of the named rule.
func (o *SymbolicOverlay) Slot(name string) (int, bool) {
	slot, ok := o.index[name]
	return slot, ok
}

// NeuralOutput returns a copy of the vector cached by the last Process call.
func (o *SymbolicOverlay) NeuralOutput() []float64 { return shared.CloneVector(o.neuralOutput) }

// Process caches input and returns it followed by every rule's output.
// Each rule is evaluated on the cached input alone.
func (o *SymbolicOverlay) Process(input []float64) []float64 {
	o.neuralOutput = shared.CloneVector(input)
	if o.neuralOutput == nil {
		o.neuralOutput = []float64{}
	}
	o.processed = true

	out := make([]float64, len(input), len(input)+len(o.rules))
	copy(out, input)
	for _, r := range o.rules {
		out = append(out, r.rule.Evaluate(o.neuralOutput))
	}
	return out
}

// Backward maps an error over [neural outputs, rule outputs] back onto the
// neural outputs: component i is errVec[i] plus, for each rule,
// errVec[len(neural)+slot]·∂rule/∂xᵢ.
func (o *SymbolicOverlay) Backward(errVec []float64) ([]float64, error) {
	if !o.processed {
		return nil, fmt.Errorf("%w: symbolic overlay", domainNeural.ErrNoActivation)
	}
	n := len(o.neuralOutput)
	if len(errVec) != n+len(o.rules) {
		return nil, fmt.Errorf("%w: overlay expects %d errors (%d outputs + %d rules), got %d",
			domainNeural.ErrDimensionMismatch, n+len(o.rules), n, len(o.rules), len(errVec))
	}

	result := shared.CloneVector(errVec[:n])
	for _, r := range o.rules {
		ruleErr := errVec[n+r.slot]
		if ruleErr == 0 {
			continue
		}
		floats.AddScaled(result, ruleErr, o.ruleGradient(r.rule))
	}
	return result, nil
}

// ruleGradient estimates ∂rule/∂xᵢ at the cached neural output by central differences.
func (o *SymbolicOverlay) ruleGradient(rule Rule) []float64 {
	x := shared.CloneVector(o.neuralOutput)
	grad := make([]float64, len(x))
	for i := range x {
		orig := x[i]
		x[i] = orig + finiteDifferenceStep
		pos := rule.Evaluate(x)
		x[i] = orig - finiteDifferenceStep
		neg := rule.Evaluate(x)
		x[i] = orig
		grad[i] = (pos - neg) / (2 * finiteDifferenceStep)
	}
	return grad
}

// Explain yields one line per rule, re-evaluating each rule against the
// cached neural output as the sequence is consumed. The sequence may be ranged
// over any number of times.
func (o *SymbolicOverlay) Explain() iter.Seq[string] {
	return func(yield func(string) bool) {
		x := shared.CloneVector(o.neuralOutput)
		for _, r := range o.rules {
			line := fmt.Sprintf("Rule '%s' output: %.2f", r.name, r.rule.Evaluate(x))
			if !yield(line) {
				return
			}
		}
	}
}
