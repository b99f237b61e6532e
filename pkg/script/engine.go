// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"fmt"
	"strings"
)

// Config holds the collaborators and limits of an engine.  The zero value is
// usable: it has no crypto delegate, an empty message and no operation limit.
type Config struct {
	// Crypto performs OP_HASH160 digests and OP_CHECKSIG verification.
	// When nil, those opcodes fail with ErrMissingCryptoDelegate.
	Crypto CryptoDelegate

	// Message is the data signatures are verified against.
	Message []byte

	// MaxOps bounds the number of instructions stepped across all scripts,
	// including the ones skipped by conditionals.  Zero means no limit.
	MaxOps int
}

// branchContext is the conditional state of one open OP_IF or OP_NOTIF block.
//
// branchTaken records whether the first arm was selected.  A block opened
// while execution is already disabled has executing false and branchTaken
// true, so neither of its arms can run.
type branchContext struct {
	executing   bool
	branchTaken bool
	hasElse     bool
}

// Engine is the virtual machine that executes scripts.
type Engine struct {
	// The following fields are set when the engine is created and must not
	// be changed afterwards.
	//
	// crypto is the delegate used by the hashing and signature opcodes.
	//
	// message is the data CHECKSIG verifies signatures against.
	//
	// maxOps is the instruction quota, or 0 when unbounded.
	crypto  CryptoDelegate
	message []byte
	maxOps  int

	// The following fields handle keeping track of the current execution
	// state of the engine.
	//
	// scripts houses the instruction lists executed in sequence on the same
	// data stack, such as an unlocking script followed by a locking script.
	//
	// scriptIdx tracks the index into the scripts array for the current
	// program counter.
	//
	// opcodeIdx tracks the index of the next instruction within the current
	// script.
	//
	// dstack is the primary data stack the various opcodes push and pop data
	// to and from during execution.
	//
	// astack is the alternate data stack the various opcodes push and pop
	// data to and from during execution.
	//
	// condStack tracks the conditional execution state with support for
	// multiple nested conditional execution opcodes.
	//
	// numOps is the number of instructions stepped so far.
	scripts   [][]Instruction
	scriptIdx int
	opcodeIdx int
	dstack    stack
	astack    stack
	condStack []branchContext
	numOps    int

	// stepCallback is an optional function that will be called every time
	// a step has been performed during script execution.
	//
	// NOTE: This is only meant to be used in debugging, and SHOULD NOT BE
	// USED during regular operation.
	stepCallback func(*StepInfo) error
}

// StepInfo houses the current VM state information that is passed back to the
// stepCallback during script execution.
type StepInfo struct {
	// ScriptIndex is the index of the script currently being executed by
	// the Engine.
	ScriptIndex int

	// OpcodeIndex is the index of the next instruction that will be
	// executed.  In case the execution has completed, the index will be
	// incremented beyond the number of the current script's instructions.
	// This indicates no new script is being executed, and execution is
	// done.
	OpcodeIndex int

	// Stack is the Engine's current content on the stack.
	Stack []Value

	// AltStack is the Engine's current content on the alt stack.
	AltStack []Value

	// CondDepth is the number of open conditional blocks.
	CondDepth int
}

// isBranchExecuting returns whether or not the current conditional branch is
// actively executing.  For example, when the data stack has an OP_FALSE on it
// and an OP_IF is encountered, the branch is inactive until an OP_ELSE or
// OP_ENDIF is encountered.  It properly handles nested conditionals since a
// block opened inside an inactive branch is itself never active.
func (vm *Engine) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1].executing
}

// openBranch pushes the context for an OP_IF, or an OP_NOTIF when negate is
// set.  The condition is only popped when the enclosing branch is executing.
func (vm *Engine) openBranch(negate bool) error {
	ctx := branchContext{branchTaken: true}
	if vm.isBranchExecuting() {
		ok, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}
		if negate {
			ok = !ok
		}
		ctx.executing = ok
		ctx.branchTaken = ok
	}

	vm.condStack = append(vm.condStack, ctx)
	return nil
}

// executeInstruction performs execution on the passed instruction.  It takes
// into account whether or not it is hidden by conditionals, but some rules
// still must be tested in this case.
func (vm *Engine) executeInstruction(instr Instruction) error {
	if instr.IsPush() {
		if vm.isBranchExecuting() {
			vm.dstack.Push(instr.Value())
		}
		return nil
	}

	// Unknown opcodes are rejected even in a non-executing branch.
	op, err := lookupOpcode(instr.Opcode())
	if err != nil {
		return err
	}

	// Nothing left to do when this is not a conditional opcode and it is
	// not in an executing branch.
	executing := vm.isBranchExecuting()
	if !executing && !isOpcodeConditional(op.value) {
		return nil
	}

	// Ensure the opcode has all of its operands before running it so a
	// failing opcode never leaves a partially consumed stack behind.
	if executing && vm.dstack.Depth() < op.arity {
		str := fmt.Sprintf("%s requires %d stack items, but the stack "+
			"has %d", op.name, op.arity, vm.dstack.Depth())
		return scriptError(ErrStackUnderflow, str)
	}

	return op.opfunc(op, vm)
}

// checkValidPC returns an error if the current script position is not valid for
// execution.
func (vm *Engine) checkValidPC() error {
	if vm.scriptIdx >= len(vm.scripts) {
		str := fmt.Sprintf("script index %d beyond total scripts %d",
			vm.scriptIdx, len(vm.scripts))
		return scriptError(ErrInvalidProgramCounter, str)
	}
	if vm.opcodeIdx >= len(vm.scripts[vm.scriptIdx]) {
		str := fmt.Sprintf("opcode index %d beyond total opcodes %d in "+
			"script %d", vm.opcodeIdx, len(vm.scripts[vm.scriptIdx]),
			vm.scriptIdx)
		return scriptError(ErrInvalidProgramCounter, str)
	}
	return nil
}

// skipEmptyScripts advances the script index past scripts with no
// instructions.
func (vm *Engine) skipEmptyScripts() {
	for vm.scriptIdx < len(vm.scripts) && len(vm.scripts[vm.scriptIdx]) == 0 {
		vm.scriptIdx++
	}
}

// DisasmPC returns the string for the disassembly of the instruction that will
// be next to execute when Step is called.
func (vm *Engine) DisasmPC() (string, error) {
	if err := vm.checkValidPC(); err != nil {
		return "", err
	}

	instr := vm.scripts[vm.scriptIdx][vm.opcodeIdx]
	return fmt.Sprintf("%02x:%04x: %s", vm.scriptIdx, vm.opcodeIdx,
		instr), nil
}

// DisasmScript returns the disassembly string for the script at the requested
// offset index.  Index 0 is the first script passed to NewEngine.
func (vm *Engine) DisasmScript(idx int) (string, error) {
	if idx < 0 || idx >= len(vm.scripts) {
		str := fmt.Sprintf("script index %d >= total scripts %d", idx,
			len(vm.scripts))
		return "", scriptError(ErrInvalidIndex, str)
	}

	var disbuf strings.Builder
	for opcodeIdx, instr := range vm.scripts[idx] {
		disbuf.WriteString(fmt.Sprintf("%02x:%04x: %s\n", idx, opcodeIdx,
			instr))
	}
	return disbuf.String(), nil
}

// CheckErrorCondition returns nil if the running script has ended and was
// successful, leaving a true value on the stack.  An error otherwise,
// including if the script has not finished.  The top stack item is consumed.
func (vm *Engine) CheckErrorCondition() error {
	// Check execution is actually done by ensuring the script index is after
	// the final script in the array script.
	if vm.scriptIdx < len(vm.scripts) {
		return scriptError(ErrInvalidProgramCounter,
			"error check when script unfinished")
	}

	if vm.dstack.Depth() < 1 {
		return scriptError(ErrEmptyStack,
			"stack empty at end of script execution")
	}

	v, err := vm.dstack.PopBool()
	if err != nil {
		return err
	}
	if !v {
		// Log interesting data.
		log.Tracef("%v", newLogClosure(func() string {
			var buf strings.Builder
			for i := range vm.scripts {
				dis, _ := vm.DisasmScript(i)
				buf.WriteString(fmt.Sprintf("script%d:\n%s", i, dis))
			}
			return "scripts failed:\n" + buf.String()
		}))
		return scriptError(ErrEvalFalse,
			"false stack entry at end of script execution")
	}
	return nil
}

// Step executes the next instruction and moves the program counter to the next
// instruction in the script, or the next script if the current has ended.
// Step will return true in the case that the last instruction was successfully
// executed.
//
// The result of calling Step or any other method is undefined if an error is
// returned.
func (vm *Engine) Step() (done bool, err error) {
	// Verify the engine is pointing to a valid program counter.
	if err := vm.checkValidPC(); err != nil {
		return true, err
	}

	vm.numOps++
	if vm.maxOps > 0 && vm.numOps > vm.maxOps {
		str := fmt.Sprintf("exceeded max operation limit of %d",
			vm.maxOps)
		return true, withIndex(scriptError(ErrTooManyOperations, str),
			vm.opcodeIdx)
	}

	// Execute the instruction while taking into account unknown opcodes,
	// stack arity and conditionals.
	script := vm.scripts[vm.scriptIdx]
	err = vm.executeInstruction(script[vm.opcodeIdx])
	if err != nil {
		return true, withIndex(err, vm.opcodeIdx)
	}

	// Prepare for next instruction.
	vm.opcodeIdx++
	if vm.opcodeIdx >= len(script) {
		// Illegal to have a conditional that straddles two scripts.
		if len(vm.condStack) != 0 {
			return true, scriptError(ErrUnbalancedConditional,
				"end of script reached in conditional execution")
		}

		// Alt stack doesn't persist between scripts.
		vm.astack.Clear()

		// Reset the opcode index for the next script and advance to it,
		// skipping empty scripts.
		vm.opcodeIdx = 0
		vm.scriptIdx++
		vm.skipEmptyScripts()
		if vm.scriptIdx >= len(vm.scripts) {
			return true, nil
		}
	}

	return false, nil
}

// stepInfo captures the current engine state for the step callback.
func (vm *Engine) stepInfo(scriptIdx, opcodeIdx int) *StepInfo {
	return &StepInfo{
		ScriptIndex: scriptIdx,
		OpcodeIndex: opcodeIdx,
		Stack:       vm.dstack.Values(),
		AltStack:    vm.astack.Values(),
		CondDepth:   len(vm.condStack),
	}
}

// Execute will execute all scripts in the script engine and return either nil
// for a successful run or an error if one occurred.  Unlike Verify it does not
// inspect the final stack; use GetStack for the result.
func (vm *Engine) Execute() (err error) {
	// If the stepCallback is set, we start by making a call back with the
	// initial engine state.
	var stepInfo *StepInfo
	if vm.stepCallback != nil {
		stepInfo = vm.stepInfo(vm.scriptIdx, vm.opcodeIdx)
		if err := vm.stepCallback(stepInfo); err != nil {
			return err
		}
	}

	done := vm.scriptIdx >= len(vm.scripts)
	for !done {
		log.Tracef("%v", newLogClosure(func() string {
			dis, err := vm.DisasmPC()
			if err != nil {
				return fmt.Sprintf("stepping (%v)", err)
			}
			return fmt.Sprintf("stepping %v", dis)
		}))

		done, err = vm.Step()
		if err != nil {
			return err
		}

		log.Tracef("%v", newLogClosure(func() string {
			var dstr, astr string

			// If we're tracing, dump the stacks.
			if vm.dstack.Depth() != 0 {
				dstr = "Stack:\n" + vm.dstack.String()
			}
			if vm.astack.Depth() != 0 {
				astr = "AltStack:\n" + vm.astack.String()
			}

			return dstr + astr
		}))

		if vm.stepCallback != nil {
			scriptIdx := vm.scriptIdx
			opcodeIdx := vm.opcodeIdx

			// In case the execution has completed, we keep the
			// current script index while increasing the opcode
			// index. This is to indicate that no new script is
			// being executed.
			if done {
				scriptIdx = stepInfo.ScriptIndex
				opcodeIdx = stepInfo.OpcodeIndex + 1
			}

			stepInfo = vm.stepInfo(scriptIdx, opcodeIdx)
			if err := vm.stepCallback(stepInfo); err != nil {
				return err
			}
		}
	}

	return nil
}

// NumOps returns the number of instructions stepped so far, including the ones
// skipped by conditionals.
func (vm *Engine) NumOps() int {
	return vm.numOps
}

// GetStack returns the contents of the primary stack as an array where the
// last item in the array is the top of the stack.
func (vm *Engine) GetStack() []Value {
	return vm.dstack.Values()
}

// GetAltStack returns the contents of the alternate stack as an array where
// the last item in the array is the top of the stack.
func (vm *Engine) GetAltStack() []Value {
	return vm.astack.Values()
}

// NewEngine returns a new script engine that executes the provided scripts in
// order on a single data stack.  Leading empty scripts are skipped.
func NewEngine(cfg Config, scripts ...[]Instruction) (*Engine, error) {
	if cfg.MaxOps < 0 {
		str := fmt.Sprintf("max operations %d must not be negative",
			cfg.MaxOps)
		return nil, scriptError(ErrTooManyOperations, str)
	}

	vm := Engine{
		crypto:  cfg.Crypto,
		message: cfg.Message,
		maxOps:  cfg.MaxOps,
		scripts: scripts,
	}
	vm.skipEmptyScripts()

	return &vm, nil
}

// NewDebugEngine returns a new script engine with a script execution callback
// set.  This is useful for debugging script execution.
func NewDebugEngine(cfg Config, stepCallback func(*StepInfo) error,
	scripts ...[]Instruction) (*Engine, error) {

	vm, err := NewEngine(cfg, scripts...)
	if err != nil {
		return nil, err
	}

	vm.stepCallback = stepCallback
	return vm, nil
}

// Execute tokenizes the script text and runs it on a fresh engine, returning
// the final data stack with the last item being the top of the stack.
func Execute(script string, cfg Config) ([]Value, error) {
	instrs, err := Tokenize(script)
	if err != nil {
		return nil, err
	}
	return ExecuteInstructions(instrs, cfg)
}

// ExecuteInstructions runs the instructions on a fresh engine and returns the
// final data stack.  No stack is returned on failure.
func ExecuteInstructions(instrs []Instruction, cfg Config) ([]Value, error) {
	vm, err := NewEngine(cfg, instrs)
	if err != nil {
		return nil, err
	}
	if err := vm.Execute(); err != nil {
		return nil, err
	}
	return vm.GetStack(), nil
}

// Verify executes an unlocking script followed by the locking script it
// satisfies and returns nil when the final top stack item is true.
//
// The unlocking script may only push data.  A conditional block may not
// straddle the two scripts and the alternate stack is cleared between them.
func Verify(unlocking, locking []Instruction, cfg Config) error {
	for i, instr := range unlocking {
		if !instr.isPushOnly() {
			str := fmt.Sprintf("unlocking script is not push only: "+
				"found %s", instr)
			return withIndex(scriptError(ErrNotPushOnly, str), i)
		}
	}

	vm, err := NewEngine(cfg, unlocking, locking)
	if err != nil {
		return err
	}
	if err := vm.Execute(); err != nil {
		return err
	}
	return vm.CheckErrorCondition()
}
