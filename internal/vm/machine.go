package vm

import "github.com/andybower/babytools/internal/arch"

// Machine holds the simulator's register file and cycle counter: the
// accumulator (ac), control/instruction address (ci, the program
// counter), present-instruction register (pi), and the running cycle
// count.
type Machine struct {
	AC      int32
	CI      int32
	PI      arch.Word
	Cycles  uint64
	Stopped bool
}

// NewMachine returns a machine with ci = -1, so the first Step's
// pre-increment fetch lands on word 0.
func NewMachine() *Machine {
	return &Machine{CI: -1}
}

// Step executes one instruction cycle against mem: fetch, decode, data
// access, execute, next-pc, in that fixed order. It does nothing if the
// machine is already Stopped.
func (m *Machine) Step(mem *MappedPage) {
	if m.Stopped {
		return
	}

	// 1. Fetch.
	m.CI++
	m.PI = mem.Read(uint32(m.CI))

	// 2. Decode.
	d := arch.Decode(m.PI)

	// 3. Data access.
	var data arch.Word
	switch d.Opcode {
	case arch.LDN, arch.SUB, arch.SubAlias, arch.JMP, arch.JRP:
		data = mem.Read(d.Operand)
	case arch.STO:
		mem.Write(d.Operand, arch.Word(m.AC))
	}

	// 4. Execute.
	switch d.Opcode {
	case arch.LDN:
		m.AC = -int32(data)
	case arch.SUB, arch.SubAlias:
		m.AC = m.AC - int32(data)
	case arch.HLT:
		m.Stopped = true
	}

	// 5. Next-PC. The default (no case below) leaves ci as the fetch
	// phase already incremented it.
	switch d.Opcode {
	case arch.SKN:
		if m.AC < 0 {
			m.CI++
		}
	case arch.JMP:
		m.CI = int32(data)
	case arch.JRP:
		m.CI = m.CI + int32(data)
	}

	m.Cycles++
}

// Run steps m until it halts or stop reports a halt request. After every
// step, if stop reports a pending dump request, onDump (if non-nil) is
// called with the machine's current state, the cooperative
// dump-and-continue handshake. A nil stop runs until Stopped with
// neither handshake checked.
func (m *Machine) Run(mem *MappedPage, stop *StopToken, onDump func(*Machine)) {
	for !m.Stopped {
		if stop != nil && stop.CheckHalt() {
			return
		}
		m.Step(mem)
		if stop != nil && stop.CheckDump() && onDump != nil {
			onDump(m)
		}
	}
}
