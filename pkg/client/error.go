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

package client

import (
	"errors"
	"fmt"

	"github.com/nbeaver/mx-trunk-sub019/pkg/proto"
)

var (
	ErrClosed          = errors.New("client closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
	ErrNoCallback      = errors.New("no callback message")
)

// checkReply turns an error reply into a *proto.StatusError.
func checkReply(req proto.MessageType, h *proto.Header, body []byte) error {
	if h.Status != proto.StatusSuccess {
		return &proto.StatusError{Status: h.Status, Message: proto.ErrorMessage(body)}
	}
	if h.Type == proto.MsgUnexpectedError {
		return fmt.Errorf("%w: server does not know %s", ErrUnexpectedReply, req)
	}
	if !h.Type.IsResponse() {
		return fmt.Errorf("%w: %s is not a reply", ErrUnexpectedReply, h.Type)
	}
	return nil
}

// legacyReply reports whether t is an acceptable reply type to req from a
// server that answers by-handle requests with by-name reply types.
func legacyReply(req proto.MessageType, t proto.MessageType) bool {
	switch req {
	case proto.MsgGetByHandle:
		return t == proto.MsgGetByName.Response()
	case proto.MsgPutByHandle:
		return t == proto.MsgPutByName.Response()
	}
	return false
}
