package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ArkLabsHQ/scriptvm/pkg/script/crypto"
)

const (
	envPrefix = "SCRIPTVM"

	configFlag       = "config"
	logLevelFlag     = "log-level"
	maxOpsFlag       = "max-ops"
	messageFlag      = "message"
	txFlag           = "tx"
	unlockingFlag    = "unlocking"
	hexFlag          = "hex"
	disasmFlag       = "disasm"
	sigCacheSizeFlag = "sig-cache-size"

	defaultLogLevel     = "info"
	defaultMaxOps       = 0
	defaultSigCacheSize = 1000
)

// Config is the resolved configuration of a single run.
type Config struct {
	LogLevel     logrus.Level
	MaxOps       int
	Message      []byte
	Unlocking    string
	Hex          bool
	Disasm       bool
	SigCacheSize uint

	// Script is the locking script, or the only script when Unlocking is
	// empty.
	Script string
}

// newFlagSet returns the command line flags of the tool.
func newFlagSet(out io.Writer) *pflag.FlagSet {
	flags := pflag.NewFlagSet("scriptvm", pflag.ContinueOnError)
	flags.SetOutput(out)
	flags.Usage = func() {
		fmt.Fprintf(out, "Usage: scriptvm [flags] <script>\n\n%s",
			flags.FlagUsages())
	}

	flags.String(configFlag, "", "path to a config file (any format viper reads)")
	flags.String(logLevelFlag, defaultLogLevel, "log level (trace logs every step)")
	flags.Int(maxOpsFlag, defaultMaxOps, "maximum instructions to step, 0 for no limit")
	flags.String(messageFlag, "", "hex encoded message signatures are checked against")
	flags.String(txFlag, "", "hex encoded transaction whose hash is used as the message")
	flags.String(unlockingFlag, "", "unlocking script; when set the script is verified against it")
	flags.Bool(hexFlag, false, "scripts are hex encoded binary scripts")
	flags.Bool(disasmFlag, false, "print the disassembly and binary form of the script (pushes over 520 bytes have no binary form)")
	flags.Uint(sigCacheSizeFlag, defaultSigCacheSize, "number of verified signatures to cache, 0 to disable")
	return flags
}

// LoadConfig resolves the configuration from the command line arguments, the
// SCRIPTVM_ environment variables and the optional config file, with flags
// taking precedence.  Usage is written to out.
func LoadConfig(args []string, out io.Writer) (*Config, error) {
	flags := newFlagSet(out)
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString(configFlag); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w",
				path, err)
		}
	}

	level, err := logrus.ParseLevel(v.GetString(logLevelFlag))
	if err != nil {
		return nil, err
	}

	maxOps := v.GetInt(maxOpsFlag)
	if maxOps < 0 {
		return nil, fmt.Errorf("%s must not be negative, got %d",
			maxOpsFlag, maxOps)
	}

	message, err := loadMessage(v)
	if err != nil {
		return nil, err
	}

	if flags.NArg() == 0 {
		return nil, fmt.Errorf("missing script argument")
	}

	return &Config{
		LogLevel:     level,
		MaxOps:       maxOps,
		Message:      message,
		Unlocking:    v.GetString(unlockingFlag),
		Hex:          v.GetBool(hexFlag),
		Disasm:       v.GetBool(disasmFlag),
		SigCacheSize: v.GetUint(sigCacheSizeFlag),
		Script:       strings.Join(flags.Args(), " "),
	}, nil
}

// loadMessage returns the signing message, derived from the transaction when
// one is given.
func loadMessage(v *viper.Viper) ([]byte, error) {
	if rawTx := v.GetString(txFlag); rawTx != "" {
		if v.GetString(messageFlag) != "" {
			return nil, fmt.Errorf("%s and %s are mutually exclusive",
				messageFlag, txFlag)
		}

		txBytes, err := hex.DecodeString(rawTx)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", txFlag, err)
		}
		return crypto.MessageFromTx(txBytes)
	}

	message, err := hex.DecodeString(v.GetString(messageFlag))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", messageFlag, err)
	}
	return message, nil
}
