package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ArkLabsHQ/scriptvm/pkg/script"
)

// runArgs runs the tool and returns what it printed.
func runArgs(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestRunExecute(t *testing.T) {
	out, err := runArgs(t, "3 4 OP_ADD 2 OP_SUB")
	require.NoError(t, err)
	require.Equal(t, "00: Integer(5)\n", out)

	// Extra arguments are joined into one script.
	out, err = runArgs(t, "1", "'ab'", "OP_SWAP")
	require.NoError(t, err)
	require.Equal(t, "00: Integer(1)\n01: Bytes(0x6162)\n", out)
}

func TestRunDisasmHex(t *testing.T) {
	out, err := runArgs(t, "--disasm", "--hex", "515293")
	require.NoError(t, err)
	require.Equal(t, "OP_1 OP_2 OP_ADD\n515293\n00: Integer(3)\n", out)
}

func TestRunDisasmOversizedPush(t *testing.T) {
	// OP_PUSHDATA2 with a little endian length one byte past the limit.
	data := strings.Repeat("aa", txscript.MaxScriptElementSize+1)
	raw := "4d0902" + data

	out, err := runArgs(t, "--disasm", "--hex", raw)
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("0x%s\n00: Bytes(0x%s)\n", data, data),
		out)
}

func TestRunScriptError(t *testing.T) {
	_, err := runArgs(t, "OP_ADD")
	require.ErrorIs(t, err, script.ErrStackUnderflow)

	_, err = runArgs(t, "OP_BOGUS")
	require.ErrorIs(t, err, script.ErrUnknownOpcode)

	_, err = runArgs(t, "--hex", "4c")
	require.ErrorIs(t, err, script.ErrMalformedPush)
}

func TestRunVerify(t *testing.T) {
	out, err := runArgs(t, "--unlocking", "1 2", "OP_ADD 3 OP_EQUAL")
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	_, err = runArgs(t, "--unlocking", "1", "OP_ADD")
	require.ErrorIs(t, err, script.ErrStackUnderflow)

	_, err = runArgs(t, "--unlocking", "1 OP_DUP", "OP_EQUAL")
	require.ErrorIs(t, err, script.ErrNotPushOnly)
}

func TestRunVerifySignature(t *testing.T) {
	privKey, _ := btcec.PrivKeyFromBytes(bytes.Repeat([]byte{0x02}, 32))
	pubKey := privKey.PubKey().SerializeCompressed()

	tx := wire.NewMsgTx(2)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(5000, nil))
	var rawTx bytes.Buffer
	require.NoError(t, tx.Serialize(&rawTx))

	txHash := tx.TxHash()
	sig := ecdsa.Sign(privKey, chainhash.HashB(txHash[:])).Serialize()

	unlocking := fmt.Sprintf("0x%x 0x%x", sig, pubKey)
	locking := fmt.Sprintf("OP_DUP OP_HASH160 0x%x OP_EQUALVERIFY "+
		"OP_CHECKSIG", btcutil.Hash160(pubKey))

	out, err := runArgs(t, "--tx", fmt.Sprintf("%x", rawTx.Bytes()),
		"--unlocking", unlocking, locking)
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	out, err = runArgs(t, "--message", fmt.Sprintf("%x", txHash[:]),
		"--unlocking", unlocking, locking)
	require.NoError(t, err)
	require.Equal(t, "OK\n", out)

	_, err = runArgs(t, "--message", "00", "--unlocking", unlocking,
		locking)
	require.ErrorIs(t, err, script.ErrEvalFalse)
}

func TestRunHelp(t *testing.T) {
	out, err := runArgs(t, "--help")
	require.NoError(t, err)
	require.Contains(t, out, "Usage: scriptvm")
	require.Contains(t, out, "--max-ops")
}

func TestLoadConfig(t *testing.T) {
	var out bytes.Buffer

	cfg, err := LoadConfig([]string{"1"}, &out)
	require.NoError(t, err)
	require.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	require.Zero(t, cfg.MaxOps)
	require.Empty(t, cfg.Message)
	require.EqualValues(t, defaultSigCacheSize, cfg.SigCacheSize)
	require.Equal(t, "1", cfg.Script)

	cfg, err = LoadConfig([]string{"--log-level", "trace", "--message",
		"abcd", "--sig-cache-size", "0", "1"}, &out)
	require.NoError(t, err)
	require.Equal(t, logrus.TraceLevel, cfg.LogLevel)
	require.Equal(t, []byte{0xab, 0xcd}, cfg.Message)
	require.Zero(t, cfg.SigCacheSize)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		err  string
	}{
		{
			name: "missing script",
			args: nil,
			err:  "missing script argument",
		},
		{
			name: "invalid message",
			args: []string{"--message", "zz", "1"},
			err:  "invalid message",
		},
		{
			name: "invalid tx hex",
			args: []string{"--tx", "zz", "1"},
			err:  "invalid tx",
		},
		{
			name: "undecodable tx",
			args: []string{"--tx", "0102", "1"},
			err:  "failed to decode transaction",
		},
		{
			name: "message and tx",
			args: []string{"--tx", "00", "--message", "00", "1"},
			err:  "mutually exclusive",
		},
		{
			name: "negative max ops",
			args: []string{"--max-ops", "-1", "1"},
			err:  "must not be negative",
		},
		{
			name: "bad log level",
			args: []string{"--log-level", "loud", "1"},
			err:  "not a valid logrus Level",
		},
		{
			name: "unknown flag",
			args: []string{"--nope", "1"},
			err:  "unknown flag",
		},
		{
			name: "missing config file",
			args: []string{"--config", "/nonexistent/scriptvm.yaml", "1"},
			err:  "failed to read config file",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := LoadConfig(test.args, &out)
			require.ErrorContains(t, err, test.err)
		})
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("SCRIPTVM_MAX_OPS", "2")

	cfg, err := LoadConfig([]string{"1"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, 2, cfg.MaxOps)

	_, err = runArgs(t, "1 2 3")
	require.ErrorIs(t, err, script.ErrTooManyOperations)

	// Flags take precedence over the environment.
	cfg, err = LoadConfig([]string{"--max-ops", "5", "1"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, 5, cfg.MaxOps)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scriptvm.yaml")
	err := os.WriteFile(path, []byte("max-ops: 3\nlog-level: debug\n"),
		0o600)
	require.NoError(t, err)

	cfg, err := LoadConfig([]string{"--config", path, "1"}, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, 3, cfg.MaxOps)
	require.Equal(t, logrus.DebugLevel, cfg.LogLevel)
}
