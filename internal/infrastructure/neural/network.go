package neural

import (
	"fmt"
	"iter"
	"math/rand"
	"slices"
	"sync"

	domainNeural "github.com/xStFtx/neuroforge/internal/domain/neural"
	"github.com/xStFtx/neuroforge/internal/infrastructure/memory"
	"github.com/xStFtx/neuroforge/internal/shared"
)

// emotionalDecay weights the previous emotional state in its moving average.
const emotionalDecay = 0.9

// EpisodeStore is the memory collaborator that receives every forward output.
type EpisodeStore interface {
	Store(vector []float64, intensity float64) error
	Recall(intensity float64) ([]float64, bool, error)
}

// StepResult reports one forward/backward/update/adapt cycle.
type StepResult struct {
	Output []float64
	// Loss is the mean squared error of the vector propagated to the input.
	Loss float64
	// PredictionError is the MSE between output and target that fed the
	// emotional state update.
	PredictionError float64
	EmotionalState  float64
	Adaptations     []domainNeural.AdaptationEvent
}

// Option configures a Network.
type Option func(*Network)

// WithRand sets the random source used for initialisation, stochastic
// toggles, growth and mutation.
func WithRand(rng *rand.Rand) Option {
	return func(n *Network) {
		n.rng = rng
	}
}

// WithSeed seeds a new random source.
func WithSeed(seed int64) Option {
	return func(n *Network) {
		n.rng = rand.New(rand.NewSource(seed))
	}
}

// WithMemory replaces the default in-memory episodic buffer.
func WithMemory(store EpisodeStore) Option {
	return func(n *Network) {
		n.memory = store
	}
}

// WithRule registers a symbolic rule at construction time.
func WithRule(name string, rule Rule) Option {
	return func(n *Network) {
		n.pendingRules = append(n.pendingRules, ruleEntry{name: name, rule: rule})
	}
}

// Network threads vectors through stochastic, elastic and delay banks and a
// symbolic overlay, in that order, and keeps the emotional state that
// modulates them.
type Network struct {
	mu sync.Mutex

	config     domainNeural.NetworkConfig
	stages     []Stage
	stochastic []*StochasticBank
	elastic    []*ElasticBank
	delay      []*DelayBank
	overlay    *SymbolicOverlay
	memory     EpisodeStore
	rng        *rand.Rand

	emotionalState float64
	time           float64
	lastOutput     []float64

	pendingRules []ruleEntry
}

// New builds a network from parallel layer-size and kind-flag arrays. A layer
// with neither flag set is stochastic.
func New(layerSizes []int, adaptive, temporal []bool, opts ...Option) (*Network, error) {
	cfg, err := domainNeural.NetworkConfigFromFlags(layerSizes, adaptive, temporal)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewFromConfig builds a network from a validated configuration.
func NewFromConfig(cfg domainNeural.NetworkConfig, opts ...Option) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	n := &Network{
		config:         cfg,
		overlay:        NewSymbolicOverlay(),
		emotionalState: domainNeural.InitialEmotionalState,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if n.memory == nil {
		n.memory = memory.NewEpisodicMemory(cfg.Memory.Capacity, cfg.Memory.Policy)
	}

	n.buildStages()

	for _, spec := range cfg.Rules {
		rule, err := BuiltinRule(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", spec.Name, err)
		}
		n.overlay.AddRule(spec.Name, rule)
	}
	for _, r := range n.pendingRules {
		n.overlay.AddRule(r.name, r.rule)
	}
	n.pendingRules = nil

	return n, nil
}

// buildStages lays out stochastic, then adaptive, then temporal banks, each
// group in configured order, chaining every bank's input width to the
// previous bank's output width.
func (n *Network) buildStages() {
	ordered := make([]domainNeural.LayerSpec, 0, len(n.config.Layers))
	for _, kind := range []domainNeural.LayerKind{
		domainNeural.LayerStochastic, domainNeural.LayerAdaptive, domainNeural.LayerTemporal,
	} {
		for _, l := range n.config.Layers {
			if l.Kind == kind {
				ordered = append(ordered, l)
			}
		}
	}

	in := n.config.InputDim
	if in == 0 {
		in = ordered[0].Size
	}
	for _, l := range ordered {
		switch l.Kind {
		case domainNeural.LayerAdaptive:
			b := NewElasticBank(in, l.Size, n.rng)
			n.elastic = append(n.elastic, b)
			n.stages = append(n.stages, b)
		case domainNeural.LayerTemporal:
			b := NewDelayBank(in, l.Size, n.rng)
			n.delay = append(n.delay, b)
			n.stages = append(n.stages, b)
		default:
			b := NewStochasticBank(in, l.Size, n.config.Propagation, n.rng)
			n.stochastic = append(n.stochastic, b)
			n.stages = append(n.stages, b)
		}
		in = l.Size
	}
}

// Config returns the configuration the network was built from.
func (n *Network) Config() domainNeural.NetworkConfig { return n.config }

// InputDim returns the width of vectors accepted by Forward.
func (n *Network) InputDim() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stages[0].InputDim()
}

// OutputDim returns the width of Forward's result: the last bank's units plus
// one slot per rule.
func (n *Network) OutputDim() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stages[len(n.stages)-1].OutputDim() + n.overlay.Len()
}

// BankCounts returns how many banks of each kind the network holds.
func (n *Network) BankCounts() (stochastic, adaptive, temporal int) {
	return len(n.stochastic), len(n.elastic), len(n.delay)
}

// StochasticBanks returns the stochastic banks in pipeline order.
func (n *Network) StochasticBanks() []*StochasticBank { return n.stochastic }

// ElasticBanks returns the elastic banks in pipeline order.
func (n *Network) ElasticBanks() []*ElasticBank { return n.elastic }

// DelayBanks returns the delay banks in pipeline order.
func (n *Network) DelayBanks() []*DelayBank { return n.delay }

// Overlay returns the symbolic overlay.
func (n *Network) Overlay() *SymbolicOverlay { return n.overlay }

// Topology returns every bank's current unit count in pipeline order.
func (n *Network) Topology() []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.topology()
}

func (n *Network) topology() []int {
	sizes := make([]int, len(n.stages))
	for i, s := range n.stages {
		sizes[i] = s.OutputDim()
	}
	return sizes
}

// Kinds returns the kind of every bank in pipeline order.
func (n *Network) Kinds() []domainNeural.LayerKind {
	kinds := make([]domainNeural.LayerKind, len(n.stages))
	for i, s := range n.stages {
		kinds[i] = s.Kind()
	}
	return kinds
}

// EmotionalState returns the current emotional state.
func (n *Network) EmotionalState() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.emotionalState
}

// SetTime sets the time at which delay banks evaluate their kernels.
func (n *Network) SetTime(t float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.time = t
}

// AddRule registers a symbolic rule; an existing name is overwritten in place.
func (n *Network) AddRule(name string, rule Rule) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.overlay.AddRule(name, rule)
}

// Explain describes each rule's output on the last forward pass. The lines
// are rendered when Explain is called, so later steps do not change them.
func (n *Network) Explain() iter.Seq[string] {
	n.mu.Lock()
	lines := slices.Collect(n.overlay.Explain())
	n.mu.Unlock()
	return slices.Values(lines)
}

// Recall asks the memory collaborator for an episode at the current
// emotional state.
func (n *Network) Recall() ([]float64, bool, error) {
	n.mu.Lock()
	e := n.emotionalState
	n.mu.Unlock()
	return n.memory.Recall(e)
}

// Forward runs input through the pipeline at the network's current time.
func (n *Network) Forward(input []float64) ([]float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.forward(input, n.time)
}

// ForwardAt runs input through the pipeline with delay kernels evaluated at t.
func (n *Network) ForwardAt(input []float64, t float64) ([]float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.forward(input, t)
}

func (n *Network) forward(input []float64, t float64) ([]float64, error) {
	sc := StepContext{EmotionalState: n.emotionalState, Time: t}
	cur := input
	for i, s := range n.stages {
		out, err := s.Forward(cur, sc)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, s.Kind(), err)
		}
		cur = out
	}
	out := n.overlay.Process(cur)

	if err := n.memory.Store(out, n.emotionalState); err != nil {
		return nil, fmt.Errorf("failed to store episode: %w", err)
	}
	n.lastOutput = out
	return shared.CloneVector(out), nil
}

// Backward propagates the error for target from the overlay down to the
// first bank and returns the mean squared value of the propagated vector.
func (n *Network) Backward(target []float64, learningRate float64) (float64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.backward(target, learningRate)
}

func (n *Network) backward(target []float64, learningRate float64) (float64, error) {
	if n.lastOutput == nil {
		return 0, fmt.Errorf("%w: network", domainNeural.ErrNoActivation)
	}

	cur, err := n.overlay.Backward(n.initialError(target))
	if err != nil {
		return 0, fmt.Errorf("symbolic overlay: %w", err)
	}
	for i := len(n.stages) - 1; i >= 0; i-- {
		s := n.stages[i]
		cur, err = s.Backward(cur, learningRate)
		if err != nil {
			return 0, fmt.Errorf("stage %d (%s): %w", i, s.Kind(), err)
		}
	}
	return meanSquared(cur), nil
}

// initialError builds the error over every output slot. Slots beyond the
// target get zero error; target values beyond the output are ignored.
func (n *Network) initialError(target []float64) []float64 {
	k := min(len(target), len(n.lastOutput))
	errVec := make([]float64, len(n.lastOutput))

	if n.config.ErrorSignal == domainNeural.ErrorTarget {
		copy(errVec, target[:k])
		return errVec
	}

	for i := 0; i < k; i++ {
		errVec[i] = n.lastOutput[i] - target[i]
	}
	return errVec
}

// UpdateEmotionalState folds the prediction error of output against target
// into the emotional state's moving average and returns that error.
func (n *Network) UpdateEmotionalState(output, target []float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.updateEmotionalState(output, target)
}

func (n *Network) updateEmotionalState(output, target []float64) float64 {
	mse := predictionError(output, target)
	n.emotionalState = emotionalDecay*n.emotionalState + (1-emotionalDecay)*mse
	return mse
}

// predictionError is the MSE over the leading positions output and target share.
func predictionError(output, target []float64) float64 {
	k := min(len(output), len(target))
	diff := make([]float64, k)
	for i := 0; i < k; i++ {
		diff[i] = output[i] - target[i]
	}
	return meanSquared(diff)
}

// Adapt runs topology adaptation on every elastic bank with the current
// emotional state and realigns the stage downstream of each resized bank.
func (n *Network) Adapt() []domainNeural.AdaptationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.adapt()
}

func (n *Network) adapt() []domainNeural.AdaptationEvent {
	events := make([]domainNeural.AdaptationEvent, 0, len(n.elastic))
	bank := 0
	for i, s := range n.stages {
		eb, ok := s.(*ElasticBank)
		if !ok {
			continue
		}
		a := eb.Adapt(n.emotionalState)
		events = append(events, domainNeural.AdaptationEvent{
			Bank:      bank,
			Action:    a.Action,
			Size:      a.Size,
			Mutated:   a.Mutated,
			Emotional: n.emotionalState,
		})
		bank++

		if a.Remap == nil {
			continue
		}
		if i+1 < len(n.stages) {
			if r, ok := n.stages[i+1].(inputRemapper); ok {
				r.remapInputs(a.Remap)
			}
		}
		// The cached output no longer matches the pipeline's shape.
		n.lastOutput = nil
	}
	return events
}

// Step runs forward, backward, the emotional state update and adaptation
// for one example.
func (n *Network) Step(input, target []float64, learningRate float64) (StepResult, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	output, err := n.forward(input, n.time)
	if err != nil {
		return StepResult{}, err
	}
	loss, err := n.backward(target, learningRate)
	if err != nil {
		return StepResult{}, err
	}
	predErr := n.updateEmotionalState(output, target)
	events := n.adapt()

	return StepResult{
		Output:          output,
		Loss:            loss,
		PredictionError: predErr,
		EmotionalState:  n.emotionalState,
		Adaptations:     events,
	}, nil
}

// Epoch runs Step over every example once and returns the mean loss and the
// adaptation events of the epoch.
func (n *Network) Epoch(inputs, targets [][]float64, learningRate float64) (float64, []domainNeural.AdaptationEvent, error) {
	if err := (domainNeural.Dataset{Inputs: inputs, Targets: targets}).Validate(); err != nil {
		return 0, nil, err
	}

	var total float64
	var events []domainNeural.AdaptationEvent
	for i := range inputs {
		res, err := n.Step(inputs[i], targets[i], learningRate)
		if err != nil {
			return 0, nil, fmt.Errorf("example %d: %w", i, err)
		}
		total += res.Loss
		events = append(events, res.Adaptations...)
	}
	return total / float64(len(inputs)), events, nil
}

// Train runs epochs passes over the examples and returns each epoch's mean loss.
func (n *Network) Train(inputs, targets [][]float64, epochs int, learningRate float64) ([]float64, error) {
	if epochs < 0 {
		return nil, fmt.Errorf("%w: negative epochs %d", domainNeural.ErrInvalidConfig, epochs)
	}
	losses := make([]float64, 0, epochs)
	for epoch := 0; epoch < epochs; epoch++ {
		loss, _, err := n.Epoch(inputs, targets, learningRate)
		if err != nil {
			return losses, fmt.Errorf("epoch %d: %w", epoch, err)
		}
		losses = append(losses, loss)
	}
	return losses, nil
}
