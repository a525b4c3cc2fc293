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

type IOption func(data interface{})

func WithFormat(format string) IOption {
	return func(i interface{}) {
		if c, ok := i.(*Config); ok {
			c.DataFormat = format
		}
	}
}

func WithLong64(on bool) IOption {
	return func(i interface{}) {
		if c, ok := i.(*Config); ok {
			c.Long64 = on
		}
	}
}

func WithClientInfo(user, program string) IOption {
	return func(i interface{}) {
		if c, ok := i.(*Config); ok {
			c.User = user
			c.Program = program
		}
	}
}

// WithLegacyHeader makes the client behave like one that predates message
// ids.
func WithLegacyHeader() IOption {
	return func(i interface{}) {
		if c, ok := i.(*Config); ok {
			c.Legacy = true
		}
	}
}

func WithBufferLimit(limit int) IOption {
	return func(i interface{}) {
		if c, ok := i.(*Config); ok {
			c.BufferLimit = limit
		}
	}
}
