package bpf

import "math"

// Action is a terminal verdict a Rule or a Policy's default applies to a
// matching syscall.
type Action struct {
	kind actionKind
	data uint32 // errno for Errno, tracer message for Trace
}

type actionKind int

const (
	actionAllow actionKind = iota
	actionErrno
	actionKill
	actionLog
	actionTrace
	actionTrap
)

// ActionAllow lets the syscall proceed.
var ActionAllow = Action{kind: actionAllow}

// ActionKill kills the calling process.
var ActionKill = Action{kind: actionKill}

// ActionLog behaves like Allow but additionally logs the call.
var ActionLog = Action{kind: actionLog}

// ActionTrap sends SIGSYS to the calling process.
var ActionTrap = Action{kind: actionTrap}

// ActionErrno returns the syscall with errno set to the given value.
func ActionErrno(errno uint32) Action { return Action{kind: actionErrno, data: errno} }

// ActionTrace notifies a tracer of the caller with the given message.
func ActionTrace(msg uint32) Action { return Action{kind: actionTrace, data: msg} }

// Ret returns the kernel return value for this Action, per
// /usr/include/linux/seccomp.h.
func (a Action) Ret() uint32 {
	switch a.kind {
	case actionAllow:
		return RetAllow
	case actionErrno:
		return RetErrno | (a.data & RetMask)
	case actionKill:
		return RetKill
	case actionLog:
		return RetLog
	case actionTrace:
		return RetTrace | (a.data & RetMask)
	case actionTrap:
		return RetTrap
	default:
		panic("bpf: unknown action kind")
	}
}

// Rule is a conjunction of Conditions plus the Action applied when all of
// them match. An empty Conditions list always matches.
type Rule struct {
	Conditions []Condition
	Action     Action
}

// NewRule constructs a Rule. Rules with zero conditions always match.
func NewRule(conditions []Condition, action Action) Rule {
	return Rule{Conditions: conditions, Action: action}
}

// IntoBPF translates the rule into a self-contained BPF fragment built
// back-to-front: the terminal action is pushed first, then each condition
// is prepended with a jump offset equal to the program distance already
// accumulated below it, and finally two entry jumps are prepended so an
// outer dispatcher can jump into the rule body or skip clean over it.
func (r Rule) IntoBPF() Program {
	var accumulator []Program
	ruleLen := 1
	var offset uint8 = 1

	accumulator = append(accumulator, Program{Stmt(RET+K, r.Action.Ret())})

	for _, cond := range r.Conditions {
		appendCondition(cond, &accumulator, &ruleLen, &offset)
	}

	ruleJumps := Program{
		Stmt(JMP+JA, 1),
		Stmt(JMP+JA, uint32(offset)+1),
	}
	ruleLen += len(ruleJumps)
	accumulator = append(accumulator, ruleJumps)

	result := make(Program, 0, ruleLen)
	for i := len(accumulator) - 1; i >= 0; i-- {
		result = append(result, accumulator[i]...)
	}
	return result
}

// appendCondition prepends one condition's BPF fragment to the
// back-to-front accumulator, inserting a three-instruction helper-jump
// block and resetting offset to 1 whenever the next fragment's jump
// target would overflow the 8-bit jump range.
func appendCondition(condition Condition, accumulator *[]Program, ruleLen *int, offset *uint8) {
	if uint16(*offset)+ConditionMaxLen+1 > math.MaxUint8 {
		// The helper jumps:
		//   1. continue the condition chain (next condition, or the
		//      rule's action if this was the last condition)
		//   2. jump out of the rule, to the next rule (or the default
		//      action if this was the last rule of the chain)
		//   3. jump out of the syscall chain entirely, to the next
		//      chain (or the default action if this was the last chain)
		helperJumps := Program{
			Stmt(JMP+JA, 2),
			Stmt(JMP+JA, uint32(*offset)+1),
			Stmt(JMP+JA, uint32(*offset)+1),
		}
		*ruleLen += len(helperJumps)
		*accumulator = append(*accumulator, helperJumps)
		*offset = 1
	}

	cond := condition.intoBPF(*offset)
	*ruleLen += len(cond)
	*offset += uint8(len(cond))
	*accumulator = append(*accumulator, cond)
}
