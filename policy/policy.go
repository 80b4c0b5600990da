// Package policy holds the syscall filtering policy data model — chains of
// rules keyed by syscall number, each with a priority — and the filter
// compiler that flattens a policy into a single bpf.Program.
package policy

import (
	"errors"
	"sort"

	"jailer/bpf"
)

// ErrEmptyRulesVector is returned when constructing a policy or adding
// rules to it with an empty rule list; every syscall chain must contain at
// least one rule or the compiled BPF program would be unreachable.
var ErrEmptyRulesVector = errors.New("empty rules vector")

// ErrContextTooLarge is returned by Compile when the flattened program
// would exceed bpf.MaxLen instructions.
var ErrContextTooLarge = errors.New("seccomp context too large")

// Chain is the ordered, non-empty list of rules sharing one syscall
// number. The first matching rule wins.
type Chain struct {
	Priority int64
	Rules    []bpf.Rule
}

// Policy maps syscall numbers to rule chains and carries the action applied
// when no chain matches (or a chain matches but none of its rules do).
type Policy struct {
	chains        map[int64]Chain
	DefaultAction bpf.Action
}

// NewPolicy builds a Policy from an initial set of chains. Every chain must
// be non-empty.
func NewPolicy(chains map[int64]Chain, defaultAction bpf.Action) (*Policy, error) {
	for _, c := range chains {
		if len(c.Rules) == 0 {
			return nil, ErrEmptyRulesVector
		}
	}
	copied := make(map[int64]Chain, len(chains))
	for k, v := range chains {
		copied[k] = v
	}
	return &Policy{chains: copied, DefaultAction: defaultAction}, nil
}

// AddRules appends rules to the chain for syscallNumber, creating the
// chain (with the given priority, applied only the first time the chain is
// created) if it does not already exist.
func (p *Policy) AddRules(syscallNumber int64, priority int64, rules []bpf.Rule) error {
	if len(rules) == 0 {
		return ErrEmptyRulesVector
	}
	if p.chains == nil {
		p.chains = make(map[int64]Chain)
	}
	c, ok := p.chains[syscallNumber]
	if !ok {
		c = Chain{Priority: priority}
	}
	c.Rules = append(c.Rules, rules...)
	p.chains[syscallNumber] = c
	return nil
}

// orderedSyscalls returns syscall numbers sorted by descending chain
// priority. Ties are broken by syscall number for determinism; the kernel
// observes no difference since tie ordering carries no semantic weight.
func (p *Policy) orderedSyscalls() []int64 {
	nums := make([]int64, 0, len(p.chains))
	for n := range p.chains {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool {
		pi, pj := p.chains[nums[i]].Priority, p.chains[nums[j]].Priority
		if pi != pj {
			return pi > pj
		}
		return nums[i] < nums[j]
	})
	return nums
}
