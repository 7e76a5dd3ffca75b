// SPDX-License-Identifier: ISC
// Copyright (c) 2014-2019 Bitmark Inc.
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package fault

import (
	"fmt"
	"runtime"
	"time"

	"github.com/bitmark-inc/logger"
)

// hold a logger channel for last-resort logging before a panic
var log *logger.L

// Initialise sets up the logger channel used to record invariant
// violations before they panic.
func Initialise() error {
	if nil != log {
		return ErrAlreadyInitialised
	}
	log = logger.New("PANIC")
	if nil == log {
		return ErrInvalidLoggerChannel
	}
	return nil
}

// Finalise flushes any buffered log data.
func Finalise() {
	if nil != log {
		log.Flush()
	}
}

// PanicWithError logs message+err and panics.
func PanicWithError(message string, err error) {
	s := fmt.Sprintf("%s failed with error: %v", message, err)
	internalCriticalf("%s", s)
	time.Sleep(100 * time.Millisecond) // allow logging output to flush
	panic(s)
}

// PanicIfError panics via PanicWithError unless err is nil.
func PanicIfError(message string, err error) {
	if nil == err {
		return
	}
	PanicWithError(message, err)
}

func internalCriticalf(format string, arguments ...interface{}) {
	if _, file, line, ok := runtime.Caller(2); ok {
		format = fmt.Sprintf("(%q:%d) %s", file, line, format)
	}
	if nil == log {
		fmt.Printf("*** "+format+"\n", arguments...)
	} else {
		log.Criticalf(format, arguments...)
		log.Flush()
	}
}
