package arm

// ExecBranch executes B and BL (spec.md §4.8). The branch target is
// computed from the pipeline-biased PC (instruction address + 8), matching
// how the 24-bit signed word offset is conventionally assembled relative to
// the instruction two ahead of the one executing.
func ExecBranch(rf *RegisterFile, i Branch) {
	target := uint32(int64(rf.GetPC()) + 8 + int64(i.Offset))
	if i.Link {
		rf.Set(14, rf.GetPC()+4)
	}
	rf.SetPC(target)
}

// ExecBranchExchange executes BX (spec.md §4.8). This core implements ARM
// state only; a Thumb-select target (bit 0 set) has no instruction set to
// exchange into, so it is reported back to the caller as undefined rather
// than silently switching state (spec.md §4.8 "Branch-exchange... since
// Thumb is out of scope").
func ExecBranchExchange(rf *RegisterFile, i BranchExchange) (undefined bool) {
	target := rf.Get(int(i.Rm))
	if target&1 != 0 {
		return true
	}
	rf.SetPC(target &^ 0x3)
	return false
}

// SoftwareInterrupt and Breakpoint carry no execution behaviour of their
// own beyond raising ExcSoftwareInterrupt; the top-level step loop in
// system.go does that directly via RegisterFile.Raise, since a breakpoint's
// comment field and a SWI's comment field are diagnostic payloads rather
// than operands the ALU needs to see.
