package seccomp

import (
	"golang.org/x/sys/unix"

	"jailer/bpf"
	"jailer/policy"
)

// DefaultAllowedSyscalls is the syscall-number allow-list for LevelBasic:
// the minimum set a jailed VMM needs to run at all, identified solely by
// number with no argument inspection.
var DefaultAllowedSyscalls = []int64{
	unix.SYS_READ, unix.SYS_WRITE, unix.SYS_OPEN, unix.SYS_CLOSE,
	unix.SYS_STAT, unix.SYS_FSTAT, unix.SYS_LSEEK, unix.SYS_MMAP,
	unix.SYS_MPROTECT, unix.SYS_MUNMAP, unix.SYS_BRK,
	unix.SYS_RT_SIGACTION, unix.SYS_RT_SIGPROCMASK, unix.SYS_RT_SIGRETURN,
	unix.SYS_IOCTL, unix.SYS_READV, unix.SYS_WRITEV, unix.SYS_PIPE,
	unix.SYS_DUP, unix.SYS_SOCKET, unix.SYS_ACCEPT, unix.SYS_BIND,
	unix.SYS_LISTEN, unix.SYS_CLONE, unix.SYS_EXECVE, unix.SYS_EXIT,
	unix.SYS_FCNTL, unix.SYS_READLINK, unix.SYS_SIGALTSTACK, unix.SYS_PRCTL,
	unix.SYS_ARCH_PRCTL, unix.SYS_FUTEX, unix.SYS_SCHED_GETAFFINITY,
	unix.SYS_SET_TID_ADDRESS, unix.SYS_EXIT_GROUP, unix.SYS_EPOLL_CTL,
	unix.SYS_EPOLL_PWAIT, unix.SYS_TIMERFD_CREATE, unix.SYS_EVENTFD2,
	unix.SYS_EPOLL_CREATE1, unix.SYS_GETRANDOM,
}

// fcntl(2) and open(2) flag values, narrowed to the combinations the
// default advanced policy allows.
const (
	oRDONLY  = 0x00000000
	oRDWR    = 0x00000002
	oNONBLOCK = 0x00004000
	oCLOEXEC = 0x02000000
	fGETFD   = 1
	fSETFD   = 2
	fSETFL   = 4
	fdCLOEXEC = 1
)

// ioctl(2) request values the default policy allows through KVM and the
// TUN device in addition to terminal control.
const (
	tcgets     = 0x5401
	tcsets     = 0x5402
	tiocgwinsz = 0x5413
	fioclex    = 0x5451
	fionbio    = 0x5421

	kvmGetAPIVersion    = 0xae00
	kvmCreateVM         = 0xae01
	kvmCheckExtension   = 0xae03
	kvmGetVCPUMmapSize  = 0xae04
	kvmCreateVCPU       = 0xae41
	kvmSetTSSAddr       = 0xae47
	kvmCreateIRQChip    = 0xae60
	kvmRun              = 0xae80
	kvmSetMSRs          = 0x4008ae89
	kvmSetCPUID2        = 0x4008ae90
	kvmSetUserMemRegion = 0x4020ae46
	kvmIRQFd            = 0x4020ae76
	kvmCreatePIT2       = 0x4040ae77
	kvmIOEventFd        = 0x4040ae79
	kvmSetRegs          = 0x4090ae82
	kvmSetSRegs         = 0x4138ae84
	kvmSetFPU           = 0x41a0ae8d
	kvmSetLAPIC         = 0x4400ae8f
	kvmGetSRegs         = 0x8138ae83
	kvmGetLAPIC         = 0x8400ae8e
	kvmGetSupportedCPUID = 0xc008ae05

	tunSetIff       = 0x400454ca
	tunSetOffload   = 0x400454d0
	tunSetVnetHdrSz = 0x400454d8
)

// mmap(2)/mprotect(2) protection and flag values.
const (
	protNone  = 0x0
	protRead  = 0x1
	protWrite = 0x2
	mapShared    = 0x01
	mapPrivate   = 0x02
	mapAnonymous = 0x20
	mapNoReserve = 0x4000
)

const pfLocal = 1

func eq(arg uint8, value uint64) bpf.Condition {
	c, err := bpf.NewCondition(arg, bpf.Eq, value)
	if err != nil {
		panic(err)
	}
	return c
}

func allow(conditions ...bpf.Condition) bpf.Rule {
	return bpf.NewRule(conditions, bpf.ActionAllow)
}

// DefaultAdvancedPolicy returns the rule set a jailed VMM needs at
// LevelAdvanced: syscalls it must make to run, each narrowed to the
// specific argument values actually used, with every unmatched syscall
// trapping.
func DefaultAdvancedPolicy() (*policy.Policy, error) {
	chains := map[int64]policy.Chain{
		unix.SYS_ACCEPT:  {Rules: []bpf.Rule{allow()}},
		unix.SYS_BIND:    {Rules: []bpf.Rule{allow()}},
		unix.SYS_CLOSE:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_DUP:     {Rules: []bpf.Rule{allow()}},
		unix.SYS_LISTEN:  {Rules: []bpf.Rule{allow()}},
		unix.SYS_LSEEK:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_MUNMAP:  {Rules: []bpf.Rule{allow()}},
		unix.SYS_PIPE:    {Rules: []bpf.Rule{allow()}},
		unix.SYS_READ:    {Rules: []bpf.Rule{allow()}},
		unix.SYS_READLINK: {Rules: []bpf.Rule{allow()}},
		unix.SYS_READV:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_FSTAT:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_STAT:    {Rules: []bpf.Rule{allow()}},
		unix.SYS_WRITE:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_WRITEV:  {Rules: []bpf.Rule{allow()}},

		unix.SYS_EPOLL_CREATE1: {Rules: []bpf.Rule{allow(eq(0, 0))}},
		unix.SYS_EPOLL_PWAIT:   {Rules: []bpf.Rule{allow()}},
		unix.SYS_EPOLL_CTL: {Rules: []bpf.Rule{
			allow(eq(1, 1)), // EPOLL_CTL_ADD
			allow(eq(1, 2)), // EPOLL_CTL_DEL
		}},
		unix.SYS_EVENTFD2: {Rules: []bpf.Rule{allow(eq(0, 0), eq(1, 0))}},

		unix.SYS_FCNTL: {Rules: []bpf.Rule{
			allow(eq(1, fSETFL), eq(2, oRDONLY|oNONBLOCK|oCLOEXEC)),
			allow(eq(1, fSETFD), eq(2, fdCLOEXEC)),
			allow(eq(1, fGETFD)),
		}},

		unix.SYS_FUTEX: {Rules: []bpf.Rule{
			allow(eq(1, 0|128)),   // FUTEX_WAIT_PRIVATE
			allow(eq(1, 1|128)),   // FUTEX_WAKE_PRIVATE
			allow(eq(1, 3|128)),   // FUTEX_REQUEUE_PRIVATE
		}},

		unix.SYS_IOCTL: {Rules: []bpf.Rule{
			allow(eq(1, tcsets)),
			allow(eq(1, tcgets)),
			allow(eq(1, tiocgwinsz)),
			allow(eq(1, kvmCheckExtension)),
			allow(eq(1, kvmCreateVM)),
			allow(eq(1, kvmGetAPIVersion)),
			allow(eq(1, kvmGetSupportedCPUID)),
			allow(eq(1, kvmGetVCPUMmapSize)),
			allow(eq(1, kvmCreateIRQChip)),
			allow(eq(1, kvmCreatePIT2)),
			allow(eq(1, kvmCreateVCPU)),
			allow(eq(1, kvmIOEventFd)),
			allow(eq(1, kvmIRQFd)),
			allow(eq(1, kvmSetTSSAddr)),
			allow(eq(1, kvmSetUserMemRegion)),
			allow(eq(1, fioclex)),
			allow(eq(1, fionbio)),
			allow(eq(1, tunSetIff)),
			allow(eq(1, tunSetOffload)),
			allow(eq(1, tunSetVnetHdrSz)),
			allow(eq(1, kvmGetLAPIC)),
			allow(eq(1, kvmGetSRegs)),
			allow(eq(1, kvmRun)),
			allow(eq(1, kvmSetCPUID2)),
			allow(eq(1, kvmSetFPU)),
			allow(eq(1, kvmSetLAPIC)),
			allow(eq(1, kvmSetMSRs)),
			allow(eq(1, kvmSetRegs)),
			allow(eq(1, kvmSetSRegs)),
		}},

		unix.SYS_MMAP: {Rules: []bpf.Rule{
			allow(),
			allow(eq(0, 0), eq(2, protNone), eq(3, mapPrivate|mapAnonymous), eq(4, ^uint64(0)), eq(5, 0)),
			allow(eq(0, 0), eq(2, protRead), eq(3, mapShared), eq(5, 0)),
			allow(eq(0, 0), eq(2, protRead|protWrite), eq(3, mapShared), eq(5, 0)),
			allow(eq(0, 0), eq(2, protRead|protWrite), eq(3, mapShared|mapAnonymous|mapNoReserve), eq(4, ^uint64(0)), eq(5, 0)),
			allow(eq(0, 0), eq(2, protRead|protWrite), eq(3, mapPrivate|mapAnonymous), eq(4, ^uint64(0)), eq(5, 0)),
			allow(eq(0, 0), eq(2, protRead|protWrite), eq(3, mapPrivate|mapAnonymous|mapNoReserve), eq(4, ^uint64(0)), eq(5, 0)),
		}},

		unix.SYS_MPROTECT: {Rules: []bpf.Rule{allow(eq(2, protRead|protWrite))}},

		unix.SYS_OPEN: {Rules: []bpf.Rule{
			allow(),
			allow(eq(1, oRDWR)),
			allow(eq(1, oRDWR|oCLOEXEC)),
			allow(eq(1, oRDWR|oNONBLOCK|oCLOEXEC)),
			allow(eq(1, oRDONLY)),
			allow(eq(1, oRDONLY|oCLOEXEC)),
			allow(eq(1, oRDONLY|oNONBLOCK|oCLOEXEC)),
		}},

		unix.SYS_SOCKET: {Rules: []bpf.Rule{allow(eq(0, pfLocal))}},

		unix.SYS_TIMERFD_SETTIME: {Rules: []bpf.Rule{allow()}},
	}

	return policy.NewPolicy(chains, bpf.ActionTrap)
}
