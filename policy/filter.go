package policy

import "jailer/bpf"

// Compile flattens the policy into a single BPF program: the syscall-number
// load, each chain in descending-priority order, and a trailing default
// action reached when nothing matched. It does not include the
// architecture-validation prologue; seccomp.Install prepends that once,
// ahead of whichever level's program it loads.
//
// Compile fails with ErrContextTooLarge if the running instruction count
// reaches bpf.MaxLen before the program is complete — checked at the same
// point the original compiler checks it, immediately after each chain is
// appended and before the trailing default action is counted.
func Compile(p *Policy) (bpf.Program, error) {
	var accumulator []bpf.Program
	contextLen := 1
	accumulator = append(accumulator, bpf.Program{bpf.Stmt(bpf.LD+bpf.W+bpf.ABS, uint32(bpf.DataNROffset))})

	for _, syscallNumber := range p.orderedSyscalls() {
		chain := p.chains[syscallNumber]
		built, err := appendSyscallChain(syscallNumber, chain.Rules, p.DefaultAction, &contextLen)
		if err != nil {
			return nil, err
		}
		accumulator = append(accumulator, built)
	}

	contextLen++
	accumulator = append(accumulator, bpf.Program{bpf.Stmt(bpf.RET+bpf.K, p.DefaultAction.Ret())})

	result := make(bpf.Program, 0, contextLen)
	for _, ins := range accumulator {
		result = append(result, ins...)
	}
	return result, nil
}

// appendSyscallChain builds the BPF fragment for one syscall's rule chain:
// a number-comparison guard, the concatenated rule fragments, and a
// trailing default action reached if the syscall matched but no rule did.
func appendSyscallChain(syscallNumber int64, rules []bpf.Rule, defaultAction bpf.Action, contextLen *int) (bpf.Program, error) {
	var chain bpf.Program
	chainLen := 0
	for _, r := range rules {
		rb := r.IntoBPF()
		chainLen += len(rb)
		chain = append(chain, rb...)
	}

	built := make(bpf.Program, 0, 1+chainLen+1)
	built = append(built, bpf.Jump(bpf.JMP+bpf.JEQ+bpf.K, uint32(syscallNumber), 0, 1))
	built = append(built, chain...)
	built = append(built, bpf.Stmt(bpf.RET+bpf.K, defaultAction.Ret()))

	*contextLen += len(built)
	if *contextLen >= bpf.MaxLen {
		return nil, ErrContextTooLarge
	}
	return built, nil
}
