package script

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

// checkSigCall records the arguments of one VerifySignature call.
type checkSigCall struct {
	signature []byte
	publicKey []byte
	message   []byte
}

// stubCrypto is a CryptoDelegate whose digest is the first 20 bytes of
// SHA256 and which accepts any signature by the public key "valid".
type stubCrypto struct {
	checks atomic.Int32

	mtx  sync.Mutex
	last checkSigCall
}

func newStubCrypto() *stubCrypto {
	return &stubCrypto{}
}

func (s *stubCrypto) Digest(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:20]
}

func (s *stubCrypto) VerifySignature(signature, publicKey,
	message []byte) bool {

	s.checks.Add(1)

	s.mtx.Lock()
	s.last = checkSigCall{signature, publicKey, message}
	s.mtx.Unlock()

	return bytes.Equal(publicKey, []byte("valid"))
}

func (s *stubCrypto) lastCall() checkSigCall {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return s.last
}

// mustTokenize tokenizes the script and fails the test on error.
func mustTokenize(t *testing.T, script string) []Instruction {
	t.Helper()

	instrs, err := Tokenize(script)
	require.NoError(t, err)
	return instrs
}

func TestConditionals(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   []Value
		err    error
	}{
		{
			name:   "skipped branch is not evaluated",
			script: "0 OP_IF 1 0 OP_ADD OP_ELSE 7 OP_ENDIF",
			want:   ints(7),
		},
		{
			name:   "nested taken",
			script: "1 OP_IF 1 OP_IF 42 OP_ENDIF OP_ENDIF",
			want:   ints(42),
		},
		{
			name:   "nested inside skipped",
			script: "0 OP_IF 1 OP_IF 42 OP_ENDIF OP_ENDIF",
			want:   nil,
		},
		{
			name:   "if without else taken",
			script: "1 OP_IF 5 OP_ENDIF",
			want:   ints(5),
		},
		{
			name:   "if arm taken skips else",
			script: "1 OP_IF 10 OP_ELSE 20 OP_ENDIF",
			want:   ints(10),
		},
		{
			name:   "notif false",
			script: "0 OP_NOTIF 1 OP_ELSE 2 OP_ENDIF",
			want:   ints(1),
		},
		{
			name:   "notif true",
			script: "1 OP_NOTIF 1 OP_ELSE 2 OP_ENDIF",
			want:   ints(2),
		},
		{
			name:   "notif inside skipped",
			script: "0 OP_IF 0 OP_NOTIF 1 OP_ELSE 2 OP_ENDIF OP_ENDIF",
			want:   nil,
		},
		{
			name: "else of nested block inside skipped branch stays " +
				"inactive",
			script: "0 OP_IF 0 OP_IF 1 OP_ELSE 2 OP_ENDIF OP_ELSE 3 " +
				"OP_ENDIF",
			want: ints(3),
		},
		{
			name:   "nested else",
			script: "1 OP_IF 0 OP_IF 1 OP_ELSE 2 OP_ENDIF OP_ELSE 3 OP_ENDIF",
			want:   ints(2),
		},
		{
			name: "sibling blocks",
			script: "1 OP_IF 10 OP_ELSE 20 OP_ENDIF 0 OP_IF 30 OP_ELSE " +
				"40 OP_ENDIF",
			want: ints(10, 40),
		},
		{
			name: "sibling blocks nested in an else",
			script: "0 OP_IF 1 OP_ELSE 1 OP_IF 2 OP_ELSE 3 OP_ENDIF 0 " +
				"OP_IF 4 OP_ELSE 5 OP_ENDIF OP_ENDIF",
			want: ints(2, 5),
		},
		{
			name:   "ill-typed operands in skipped branch",
			script: "0 OP_IF 0x0100 1 OP_ADD OP_ENDIF",
			want:   nil,
		},
		{
			name:   "underflowing opcode in skipped branch",
			script: "0 OP_IF OP_ADD OP_DROP OP_VERIFY OP_ENDIF 9",
			want:   ints(9),
		},
		{
			name:   "condition from bytes",
			script: "0x0080 OP_IF 1 OP_ELSE 2 OP_ENDIF",
			want:   ints(2),
		},
		{
			name:   "unterminated if",
			script: "1 OP_IF 5",
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "unterminated skipped if",
			script: "0 OP_IF 5",
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "else without if",
			script: "1 OP_ELSE",
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "endif without if",
			script: "OP_ENDIF",
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "endif after closed block",
			script: "1 OP_IF OP_ENDIF OP_ENDIF",
			err:    ErrUnbalancedConditional,
		},
		{
			name:   "duplicate else",
			script: "1 OP_IF 1 OP_ELSE 2 OP_ELSE 3 OP_ENDIF",
			err:    ErrDuplicateElse,
		},
		{
			name:   "duplicate else inside skipped branch",
			script: "0 OP_IF 1 OP_IF OP_ELSE OP_ELSE OP_ENDIF OP_ENDIF",
			err:    ErrDuplicateElse,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			stack, err := Execute(test.script, Config{})
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				require.Nil(t, stack)
				return
			}
			require.NoError(t, err)
			requireValues(t, test.want, stack)
		})
	}
}

func TestBalancedConditionalsLeaveNoContext(t *testing.T) {
	t.Parallel()

	scripts := []string{
		"1 OP_IF 2 OP_ENDIF",
		"0 OP_IF 2 OP_ELSE 3 OP_ENDIF",
		"1 OP_IF 0 OP_IF 2 OP_ENDIF OP_ELSE 3 OP_ENDIF",
		"1 OP_IF 1 OP_ENDIF 0 OP_NOTIF 1 OP_ENDIF",
	}
	for _, script := range scripts {
		vm, err := NewEngine(Config{}, mustTokenize(t, script))
		require.NoError(t, err)
		require.NoError(t, vm.Execute(), script)
		require.Empty(t, vm.condStack, script)
	}
}

func TestUnknownOpcodeInSkippedBranch(t *testing.T) {
	t.Parallel()

	instrs := []Instruction{
		Push(Int(0)), Op(OP_IF), Op(0xba), Op(OP_ENDIF),
	}
	_, err := ExecuteInstructions(instrs, Config{})
	require.ErrorIs(t, err, ErrUnknownOpcode)

	var serr Error
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 2, serr.Index)
}

func TestArithmetic(t *testing.T) {
	t.Parallel()

	stack, err := Execute("3 4 OP_ADD 2 OP_SUB", Config{})
	require.NoError(t, err)
	requireValues(t, ints(5), stack)
}

func TestStackUnderflowDoesNotMutate(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "OP_ADD"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), ErrStackUnderflow)
	require.Empty(t, vm.GetStack())

	vm, err = NewEngine(Config{}, mustTokenize(t, "5 OP_ADD"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), ErrStackUnderflow)
	requireValues(t, ints(5), vm.GetStack())

	// The package level helper never returns a stack on failure.
	stack, err := Execute("OP_ADD", Config{})
	require.ErrorIs(t, err, ErrStackUnderflow)
	require.Nil(t, stack)
}

func TestErrorIndex(t *testing.T) {
	t.Parallel()

	_, err := Execute("1 OP_DROP OP_DROP", Config{})
	require.ErrorIs(t, err, ErrStackUnderflow)

	var serr Error
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 2, serr.Index)
}

func TestPayToPubKeyHash(t *testing.T) {
	t.Parallel()

	delegate := newStubCrypto()
	pubKey := []byte("valid")
	pkHash := delegate.Digest(pubKey)

	locking := fmt.Sprintf("OP_DUP OP_HASH160 0x%x OP_EQUALVERIFY "+
		"OP_CHECKSIG", pkHash)
	unlocking := fmt.Sprintf("'signature' 0x%x", pubKey)

	stack, err := Execute(unlocking+" "+locking, Config{Crypto: delegate})
	require.NoError(t, err)
	requireValues(t, []Value{Bool(true)}, stack)
	require.EqualValues(t, 1, delegate.checks.Load())

	err = Verify(mustTokenize(t, unlocking), mustTokenize(t, locking),
		Config{Crypto: delegate})
	require.NoError(t, err)
}

func TestPayToPubKeyHashMismatch(t *testing.T) {
	t.Parallel()

	delegate := newStubCrypto()
	pkHash := delegate.Digest([]byte("someone else"))

	script := fmt.Sprintf("'signature' 'valid' OP_DUP OP_HASH160 0x%x "+
		"OP_EQUALVERIFY OP_CHECKSIG", pkHash)

	_, err := Execute(script, Config{Crypto: delegate})
	require.ErrorIs(t, err, ErrScriptVerifyFailed)
	require.Zero(t, delegate.checks.Load())
}

func TestVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		unlocking string
		locking   string
		err       error
	}{
		{
			name:      "true result",
			unlocking: "1 2",
			locking:   "OP_ADD 3 OP_EQUAL",
		},
		{
			name:      "empty unlocking script",
			unlocking: "",
			locking:   "OP_1",
		},
		{
			name:      "small integer constants are pushes",
			unlocking: "OP_0 OP_1NEGATE OP_16",
			locking:   "OP_DROP OP_DROP OP_NOT",
		},
		{
			name:      "false result",
			unlocking: "1",
			locking:   "0",
			err:       ErrEvalFalse,
		},
		{
			name:      "empty result",
			unlocking: "1",
			locking:   "OP_DROP",
			err:       ErrEmptyStack,
		},
		{
			name:      "both empty",
			unlocking: "",
			locking:   "",
			err:       ErrEmptyStack,
		},
		{
			name:      "unlocking script runs opcodes",
			unlocking: "1 OP_DUP",
			locking:   "OP_EQUAL",
			err:       ErrNotPushOnly,
		},
		{
			name:      "open conditional in locking script",
			unlocking: "1",
			locking:   "OP_IF 1",
			err:       ErrUnbalancedConditional,
		},
		{
			name:      "locking script fails",
			unlocking: "1",
			locking:   "OP_VERIFY 0 OP_VERIFY",
			err:       ErrScriptVerifyFailed,
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			err := Verify(mustTokenize(t, test.unlocking),
				mustTokenize(t, test.locking), Config{})
			if test.err != nil {
				require.ErrorIs(t, err, test.err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestConditionalMayNotStraddleScripts(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 OP_IF"),
		mustTokenize(t, "2 OP_ENDIF"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), ErrUnbalancedConditional)
}

func TestAltStackClearedBetweenScripts(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 OP_TOALTSTACK"),
		mustTokenize(t, "OP_FROMALTSTACK"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), ErrStackUnderflow)

	// Within one script the alt stack persists.
	vm, err = NewEngine(Config{},
		mustTokenize(t, "1 OP_TOALTSTACK 2 OP_FROMALTSTACK"))
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	requireValues(t, ints(2, 1), vm.GetStack())
	require.Empty(t, vm.GetAltStack())
}

func TestEmptyScripts(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, nil, mustTokenize(t, "7"), nil)
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	requireValues(t, ints(7), vm.GetStack())

	vm, err = NewEngine(Config{})
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	require.Empty(t, vm.GetStack())

	stack, err := Execute("", Config{})
	require.NoError(t, err)
	require.Empty(t, stack)
}

func TestMaxOps(t *testing.T) {
	t.Parallel()

	// Six instructions, two of them inside the skipped branch.
	script := "0 OP_IF 1 1 OP_ENDIF 2"

	_, err := Execute(script, Config{MaxOps: 6})
	require.NoError(t, err)

	_, err = Execute(script, Config{MaxOps: 5})
	require.ErrorIs(t, err, ErrTooManyOperations)

	var serr Error
	require.True(t, errors.As(err, &serr))
	require.Equal(t, 5, serr.Index)

	_, err = NewEngine(Config{MaxOps: -1})
	require.ErrorIs(t, err, ErrTooManyOperations)
}

func TestNumOps(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 2"),
		mustTokenize(t, "0 OP_IF 1 OP_ENDIF OP_ADD"))
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	require.Equal(t, 7, vm.NumOps())
}

func TestStepCallback(t *testing.T) {
	t.Parallel()

	var infos []StepInfo
	vm, err := NewDebugEngine(Config{}, func(info *StepInfo) error {
		infos = append(infos, *info)
		return nil
	}, mustTokenize(t, "1 OP_IF 2 OP_ENDIF"))
	require.NoError(t, err)
	require.NoError(t, vm.Execute())

	require.Len(t, infos, 5)

	var (
		opcodeIdxs []int
		depths     []int
	)
	for _, info := range infos {
		require.Zero(t, info.ScriptIndex)
		opcodeIdxs = append(opcodeIdxs, info.OpcodeIndex)
		depths = append(depths, info.CondDepth)
	}
	require.Equal(t, []int{0, 1, 2, 3, 4}, opcodeIdxs)
	require.Equal(t, []int{0, 0, 1, 1, 0}, depths)

	require.Empty(t, infos[0].Stack)
	requireValues(t, ints(1), infos[1].Stack)
	require.Empty(t, infos[2].Stack)
	requireValues(t, ints(2), infos[4].Stack)
}

func TestStepCallbackAcrossScripts(t *testing.T) {
	t.Parallel()

	var scriptIdxs []int
	vm, err := NewDebugEngine(Config{}, func(info *StepInfo) error {
		scriptIdxs = append(scriptIdxs, info.ScriptIndex)
		return nil
	}, mustTokenize(t, "1"), mustTokenize(t, "OP_DUP"))
	require.NoError(t, err)
	require.NoError(t, vm.Execute())
	require.Equal(t, []int{0, 1, 1}, scriptIdxs)
}

func TestStepCallbackError(t *testing.T) {
	t.Parallel()

	errStop := errors.New("stop")
	calls := 0
	vm, err := NewDebugEngine(Config{}, func(info *StepInfo) error {
		calls++
		if calls == 2 {
			return errStop
		}
		return nil
	}, mustTokenize(t, "1 2 3"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.Execute(), errStop)
	require.Equal(t, 2, calls)
}

func TestStep(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 2"))
	require.NoError(t, err)

	done, err := vm.Step()
	require.NoError(t, err)
	require.False(t, done)

	done, err = vm.Step()
	require.NoError(t, err)
	require.True(t, done)
	require.NoError(t, vm.CheckErrorCondition())

	_, err = vm.Step()
	require.ErrorIs(t, err, ErrInvalidProgramCounter)
}

func TestCheckErrorConditionUnfinished(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 2"))
	require.NoError(t, err)
	require.ErrorIs(t, vm.CheckErrorCondition(), ErrInvalidProgramCounter)
}

func TestDisasm(t *testing.T) {
	t.Parallel()

	vm, err := NewEngine(Config{}, mustTokenize(t, "1 OP_DUP"),
		mustTokenize(t, "0xab OP_EQUAL"))
	require.NoError(t, err)

	pc, err := vm.DisasmPC()
	require.NoError(t, err)
	require.Equal(t, "00:0000: 1", pc)

	dis, err := vm.DisasmScript(1)
	require.NoError(t, err)
	require.Equal(t, "01:0000: 0xab\n01:0001: OP_EQUAL\n", dis)

	_, err = vm.DisasmScript(2)
	require.ErrorIs(t, err, ErrInvalidIndex)

	require.NoError(t, vm.Execute())
	_, err = vm.DisasmPC()
	require.ErrorIs(t, err, ErrInvalidProgramCounter)
}

func TestDeterminism(t *testing.T) {
	t.Parallel()

	script := "'abc' OP_SHA256 OP_DUP OP_SIZE 3 OP_MUL OP_SWAP " +
		"1 OP_IF OP_TOALTSTACK OP_FROMALTSTACK OP_ENDIF"

	first, err := Execute(script, Config{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := Execute(script, Config{})
		require.NoError(t, err)
		requireValues(t, first, again)
	}
}

func TestConcurrentEngines(t *testing.T) {
	t.Parallel()

	delegate := newStubCrypto()
	pkHash := delegate.Digest([]byte("valid"))
	instrs := mustTokenize(t, fmt.Sprintf("'sig' 'valid' OP_DUP "+
		"OP_HASH160 0x%x OP_EQUALVERIFY OP_CHECKSIG", pkHash))

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			stack, err := ExecuteInstructions(instrs,
				Config{Crypto: delegate})
			if err != nil {
				errs <- err
				return
			}
			if len(stack) != 1 || !stack[0].Truthy() {
				errs <- fmt.Errorf("unexpected stack %v", stack)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.EqualValues(t, workers, delegate.checks.Load())
}
