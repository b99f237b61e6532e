// Copyright (c) 2013-2017 The btcsuite developers
// Copyright (c) 2015-2019 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package script

import (
	"github.com/sirupsen/logrus"
)

// log is the logger used by the engine.  Nothing is emitted below the trace
// level, so the default logrus configuration keeps the engine silent.
var log = logrus.WithField("module", "script")

// UseLogger sets the logger used by the package.  It is not safe to call while
// engines are executing.
func UseLogger(logger *logrus.Entry) {
	log = logger
}

// logClosure is used to provide a closure over expensive logging operations so
// they don't have to be performed when the logging level doesn't warrant it.
type logClosure func() string

// String invokes the underlying function and returns the result.
func (c logClosure) String() string {
	return c()
}

// newLogClosure returns a new closure over a function that returns a string
// which itself provides a Stringer interface so that it can be used with the
// logging system.
func newLogClosure(c func() string) logClosure {
	return logClosure(c)
}
