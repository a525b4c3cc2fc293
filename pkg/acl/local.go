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

package acl

import (
	"net"
	"sync"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
)

var (
	localIPMap  map[string]bool
	localIPOnce sync.Once
)

func loadLocalIPs() {
	localIPMap = make(map[string]bool)
	if addrs, err := net.InterfaceAddrs(); err == nil {
		for _, a := range addrs {
			if ipnet, ok := a.(*net.IPNet); ok {
				localIPMap[canonical(ipnet.IP)] = true
			}
		}
	} else {
		glog.Warningf("interface addresses: %s", err)
	}
}

func canonical(ip net.IP) string {
	if v4 := ip.To4(); v4 != nil {
		return v4.String()
	}
	return ip.String()
}

// IsLocalIP reports whether ip is a loopback address or belongs to one of
// this host's interfaces.
func IsLocalIP(ip net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	localIPOnce.Do(loadLocalIPs)
	return localIPMap[canonical(ip)]
}
