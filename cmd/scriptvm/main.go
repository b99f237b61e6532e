// Command scriptvm executes a script and prints the final stack, or verifies an
// unlocking script against a locking script.
//
//	scriptvm '3 4 OP_ADD 2 OP_SUB'
//	scriptvm --message 00 --unlocking '0x3044... 0x02...' \
//		'OP_DUP OP_HASH160 0x... OP_EQUALVERIFY OP_CHECKSIG'
//	scriptvm --hex --disasm 76a914...88ac
package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/ArkLabsHQ/scriptvm/pkg/script"
	"github.com/ArkLabsHQ/scriptvm/pkg/script/crypto"
)

var log = logrus.WithField("module", "scriptvm")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fields := logrus.Fields{}
		var kind script.ErrorKind
		if errors.As(err, &kind) {
			fields["kind"] = kind
		}
		log.WithFields(fields).WithError(err).Error("script failed")
		os.Exit(1)
	}
}

// run executes the tool with the given arguments, writing results to out.
func run(args []string, out io.Writer) error {
	cfg, err := LoadConfig(args, out)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logrus.SetLevel(cfg.LogLevel)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	script.UseLogger(log.WithField("module", "script"))

	locking, err := parseScript(cfg.Script, cfg.Hex)
	if err != nil {
		return fmt.Errorf("failed to parse script: %w", err)
	}

	if cfg.Disasm {
		fmt.Fprintln(out, script.DisasmString(locking))

		// Scripts parsed from text or hex may hold pushes the binary
		// form cannot carry, which does not prevent running them.
		compiled, err := script.Compile(locking)
		if err != nil {
			log.WithError(err).Warn("script has no binary form")
		} else {
			fmt.Fprintf(out, "%x\n", compiled)
		}
	}

	vmCfg := script.Config{
		Crypto:  crypto.New(cfg.SigCacheSize),
		Message: cfg.Message,
		MaxOps:  cfg.MaxOps,
	}

	if cfg.Unlocking != "" {
		unlocking, err := parseScript(cfg.Unlocking, cfg.Hex)
		if err != nil {
			return fmt.Errorf("failed to parse unlocking script: %w", err)
		}
		if err := script.Verify(unlocking, locking, vmCfg); err != nil {
			return err
		}

		log.WithField("script", cfg.Script).Info("script verified")
		fmt.Fprintln(out, "OK")
		return nil
	}

	vm, err := script.NewEngine(vmCfg, locking)
	if err != nil {
		return err
	}
	if err := vm.Execute(); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"script": cfg.Script,
		"ops":    vm.NumOps(),
	}).Debug("script executed")

	printStack(out, vm.GetStack())
	return nil
}

// parseScript converts a script argument into instructions.
func parseScript(text string, isHex bool) ([]script.Instruction, error) {
	if !isHex {
		return script.Tokenize(text)
	}

	raw, err := hex.DecodeString(strings.Join(strings.Fields(text), ""))
	if err != nil {
		return nil, err
	}
	return script.ParseScript(raw)
}

// printStack writes the stack top item first.
func printStack(out io.Writer, stack []script.Value) {
	for i := len(stack) - 1; i >= 0; i-- {
		v := stack[i]
		fmt.Fprintf(out, "%02d: %s(%s)\n", len(stack)-1-i, v.Kind(), v)
	}
}
