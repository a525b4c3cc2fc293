//
//  Copyright 2023 PayPal Inc.
//
//  Licensed to the Apache Software Foundation (ASF) under one or more
//  contributor license agreements.  See the NOTICE file distributed with
//  this work for additional information regarding copyright ownership.
//  The ASF licenses this file to You under the Apache License, Version 2.0
//  (the "License"); you may not use this file except in compliance with
//  the License.  You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
//  Unless required by applicable law or agreed to in writing, software
//  distributed under the License is distributed on an "AS IS" BASIS,
//  WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
//  See the License for the specific language governing permissions and
//  limitations under the License.
//

package proto

import (
	"errors"
	"fmt"
)

type Status uint32

const (
	StatusSuccess                 = Status(0)
	StatusNotFound                = Status(1)
	StatusIllegalArgument         = Status(2)
	StatusPermissionDenied        = Status(3)
	StatusTypeMismatch            = Status(4)
	StatusUnsupported             = Status(5)
	StatusNotValidForCurrentState = Status(6)
	StatusWouldExceedLimit        = Status(7)
	StatusBadHandle               = Status(8)
	StatusUnparseableString       = Status(9)
	StatusNetworkIOError          = Status(10)
	StatusNotYetImplemented       = Status(11)
	StatusClientRequestDenied     = Status(12)
	StatusCorruptData             = Status(13)
	StatusDeviceError             = Status(14)
	StatusLastStatus              = Status(15) // add new status before this
)

var statusText = map[Status]string{
	StatusSuccess:                 "success",
	StatusNotFound:                "not found",
	StatusIllegalArgument:         "illegal argument",
	StatusPermissionDenied:        "permission denied",
	StatusTypeMismatch:            "type mismatch",
	StatusUnsupported:             "unsupported",
	StatusNotValidForCurrentState: "not valid for current state",
	StatusWouldExceedLimit:        "would exceed limit",
	StatusBadHandle:               "bad handle",
	StatusUnparseableString:       "unparseable string",
	StatusNetworkIOError:          "network I/O error",
	StatusNotYetImplemented:       "not yet implemented",
	StatusClientRequestDenied:     "client request denied",
	StatusCorruptData:             "corrupt data",
	StatusDeviceError:             "device error",
}

func (s Status) String() string {
	if txt, ok := statusText[s]; ok {
		return txt
	}
	return fmt.Sprintf("status %d", uint32(s))
}

// StatusError is an application-level failure. It is reported to the
// client in a reply and never closes the connection.
type StatusError struct {
	Status  Status
	Message string
}

func Errorf(st Status, format string, a ...interface{}) *StatusError {
	return &StatusError{Status: st, Message: fmt.Sprintf(format, a...)}
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// StatusOf maps err onto a wire status. Errors that are not a
// *StatusError map to StatusDeviceError.
func StatusOf(err error) Status {
	if err == nil {
		return StatusSuccess
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusDeviceError
}

// IsStatusError reports whether err carries an application status.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}
