// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"fmt"
	"strings"
)

// stack represents a stack of immutable values for use with scripts.  Values
// may be shared, therefore in usage if a value is to be changed it *must* be
// deep-copied first to avoid changing other values on the stack.
type stack struct {
	stk []Value
}

// Depth returns the number of items on the stack.
func (s *stack) Depth() int {
	return len(s.stk)
}

// Push adds the given value to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 v]
func (s *stack) Push(v Value) {
	s.stk = append(s.stk, v)
}

// PushInt pushes the provided integer to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 int]
func (s *stack) PushInt(n int64) {
	s.Push(Int(n))
}

// PushBool pushes the provided boolean to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 bool]
func (s *stack) PushBool(b bool) {
	s.Push(Bool(b))
}

// PushByteArray pushes the given raw data to the top of the stack.
//
// Stack transformation: [... x1 x2] -> [... x1 x2 data]
func (s *stack) PushByteArray(so []byte) {
	s.Push(Bytes(so))
}

// Pop pops the value off the top of the stack and returns it.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *stack) Pop() (Value, error) {
	return s.nipN(0)
}

// PopInt pops the value off the top of the stack and coerces it to an
// integer.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *stack) PopInt() (int64, error) {
	so, err := s.Pop()
	if err != nil {
		return 0, err
	}

	return so.Int()
}

// PopBool pops the value off the top of the stack and coerces it to a
// boolean.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *stack) PopBool() (bool, error) {
	so, err := s.Pop()
	if err != nil {
		return false, err
	}

	return so.Truthy(), nil
}

// PopByteArray pops the value off the top of the stack and returns its
// canonical encoding.
//
// Stack transformation: [... x1 x2 x3] -> [... x1 x2]
func (s *stack) PopByteArray() ([]byte, error) {
	so, err := s.Pop()
	if err != nil {
		return nil, err
	}

	return so.Encode(), nil
}

// Peek returns the Nth item on the stack without removing it.
func (s *stack) Peek(idx int) (Value, error) {
	sz := len(s.stk)
	if idx < 0 || idx >= sz {
		str := fmt.Sprintf("index %d is invalid for stack size %d", idx,
			sz)
		return Value{}, scriptError(ErrStackUnderflow, str)
	}

	return s.stk[sz-idx-1], nil
}

// nipN is an internal function that removes the nth item on the stack and
// returns it.
//
// Stack transformation:
// nipN(0): [... x1 x2 x3] -> [... x1 x2]
// nipN(1): [... x1 x2 x3] -> [... x1 x3]
// nipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s *stack) nipN(idx int) (Value, error) {
	sz := len(s.stk)
	if idx < 0 || idx > sz-1 {
		str := fmt.Sprintf("index %d is invalid for stack size %d", idx,
			sz)
		return Value{}, scriptError(ErrStackUnderflow, str)
	}

	so := s.stk[sz-idx-1]
	if idx == 0 {
		s.stk = s.stk[:sz-1]
	} else if idx == sz-1 {
		s.stk = s.stk[1:]
	} else {
		s1 := s.stk[sz-idx : sz]
		s.stk = s.stk[:sz-idx-1]
		s.stk = append(s.stk, s1...)
	}
	return so, nil
}

// NipN removes the Nth object on the stack
//
// Stack transformation:
// NipN(0): [... x1 x2 x3] -> [... x1 x2]
// NipN(1): [... x1 x2 x3] -> [... x1 x3]
// NipN(2): [... x1 x2 x3] -> [... x2 x3]
func (s *stack) NipN(idx int) error {
	_, err := s.nipN(idx)
	return err
}

// Tuck copies the item at the top of the stack and inserts it before the 2nd
// to top item.
//
// Stack transformation: [... x1 x2] -> [... x2 x1 x2]
func (s *stack) Tuck() error {
	so2, err := s.Pop()
	if err != nil {
		return err
	}
	so1, err := s.Pop()
	if err != nil {
		return err
	}
	s.Push(so2) // stack [... x2]
	s.Push(so1) // stack [... x2 x1]
	s.Push(so2) // stack [... x2 x1 x2]

	return nil
}

// DropN removes the top N items from the stack.
//
// Stack transformation:
// DropN(1): [... x1 x2] -> [... x1]
// DropN(2): [... x1 x2] -> [...]
func (s *stack) DropN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to drop %d items from stack", n)
		return scriptError(ErrInvalidIndex, str)
	}

	for ; n > 0; n-- {
		_, err := s.Pop()
		if err != nil {
			return err
		}
	}
	return nil
}

// DupN duplicates the top N items on the stack.
//
// Stack transformation:
// DupN(1): [... x1 x2] -> [... x1 x2 x2]
// DupN(2): [... x1 x2] -> [... x1 x2 x1 x2]
func (s *stack) DupN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to dup %d stack items", n)
		return scriptError(ErrInvalidIndex, str)
	}

	// Iteratively duplicate the value n-1 down the stack n times.
	// This leaves an in-order duplicate of the top n items on the stack.
	for i := n; i > 0; i-- {
		so, err := s.Peek(n - 1)
		if err != nil {
			return err
		}
		s.Push(so)
	}
	return nil
}

// RotN rotates the top 3N items on the stack to the left N times.
//
// Stack transformation:
// RotN(1): [... x1 x2 x3] -> [... x2 x3 x1]
// RotN(2): [... x1 x2 x3 x4 x5 x6] -> [... x3 x4 x5 x6 x1 x2]
func (s *stack) RotN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to rotate %d stack items", n)
		return scriptError(ErrInvalidIndex, str)
	}

	// Nip the 3n-1th item from the stack to the top n times to rotate
	// them up to the head of the stack.
	entry := 3*n - 1
	for i := n; i > 0; i-- {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}

		s.Push(so)
	}
	return nil
}

// SwapN swaps the top N items on the stack with those below them.
//
// Stack transformation:
// SwapN(1): [... x1 x2] -> [... x2 x1]
// SwapN(2): [... x1 x2 x3 x4] -> [... x3 x4 x1 x2]
func (s *stack) SwapN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to swap %d stack items", n)
		return scriptError(ErrInvalidIndex, str)
	}

	entry := 2*n - 1
	for i := n; i > 0; i-- {
		// Swap 2n-1th entry to top.
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}

		s.Push(so)
	}
	return nil
}

// OverN copies N items N items back to the top of the stack.
//
// Stack transformation:
// OverN(1): [... x1 x2 x3] -> [... x1 x2 x3 x2]
// OverN(2): [... x1 x2 x3 x4] -> [... x1 x2 x3 x4 x1 x2]
func (s *stack) OverN(n int) error {
	if n < 1 {
		str := fmt.Sprintf("attempt to perform over on %d stack items",
			n)
		return scriptError(ErrInvalidIndex, str)
	}

	// Copy 2n-1th entry to top of the stack.
	entry := 2*n - 1
	for ; n > 0; n-- {
		so, err := s.Peek(entry)
		if err != nil {
			return err
		}
		s.Push(so)
	}

	return nil
}

// Clear removes every item from the stack.
func (s *stack) Clear() {
	s.stk = s.stk[:0]
}

// Values returns a copy of the stack contents where the last item is the top
// of the stack.
func (s *stack) Values() []Value {
	out := make([]Value, len(s.stk))
	copy(out, s.stk)
	return out
}

// String returns the stack in a readable format, top item first.
func (s *stack) String() string {
	var result strings.Builder
	for i := len(s.stk) - 1; i >= 0; i-- {
		v := s.stk[i]
		result.WriteString(fmt.Sprintf("%02d: %s(%s)\n", len(s.stk)-1-i,
			v.Kind(), v))
	}

	return result.String()
}
