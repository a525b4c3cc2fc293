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

// Package acl decides which client addresses may connect.
//
// An ACL file has one pattern per line. A pattern is an exact address
// (192.168.1.10), a CIDR block (10.0.0.0/8), a glob over the address
// text (192.168.*.*), or the word "local" for the addresses of this host.
// Text after '#' is ignored.
package acl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path"
	"strings"

	"github.com/nbeaver/mx-trunk-sub019/pkg/logging/glog"
)

type List struct {
	exact map[string]bool
	nets  []*net.IPNet
	globs []string
	local bool
}

// LoadFile reads an ACL file. A missing file yields a nil List, which
// allows everybody.
func LoadFile(name string) (*List, error) {
	f, err := os.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			glog.Infof("no ACL file %s, all clients allowed", name)
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()
	l, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	glog.Infof("ACL %s loaded with %d patterns", name, l.Len())
	return l, nil
}

func Parse(r io.Reader) (*List, error) {
	l := &List{exact: make(map[string]bool)}
	sc := bufio.NewScanner(r)
	lineno := 0
	for sc.Scan() {
		lineno++
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := l.Add(line); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineno, err)
		}
	}
	return l, sc.Err()
}

// Add adds one pattern.
func (l *List) Add(pattern string) error {
	switch {
	case pattern == "local":
		l.local = true
	case strings.Contains(pattern, "/"):
		_, ipnet, err := net.ParseCIDR(pattern)
		if err != nil {
			return err
		}
		l.nets = append(l.nets, ipnet)
	case strings.ContainsAny(pattern, "*?["):
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad pattern '%s': %w", pattern, err)
		}
		l.globs = append(l.globs, pattern)
	default:
		ip := net.ParseIP(pattern)
		if ip == nil {
			return fmt.Errorf("'%s' is not an IP address", pattern)
		}
		l.exact[ip.String()] = true
	}
	return nil
}

func (l *List) Len() int {
	n := len(l.exact) + len(l.nets) + len(l.globs)
	if l.local {
		n++
	}
	return n
}

// Allowed reports whether a client at addr may connect. Only IP clients
// are checked. Unix domain clients are always allowed.
func (l *List) Allowed(addr net.Addr) bool {
	if l == nil {
		return true
	}
	var ip net.IP
	switch a := addr.(type) {
	case *net.TCPAddr:
		ip = a.IP
	case *net.UnixAddr:
		return true
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return false
		}
		ip = net.ParseIP(host)
	}
	if ip == nil {
		return false
	}
	return l.AllowedIP(ip)
}

func (l *List) AllowedIP(ip net.IP) bool {
	if l == nil {
		return true
	}
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	text := ip.String()
	if l.exact[text] {
		return true
	}
	if l.local && IsLocalIP(ip) {
		return true
	}
	for _, n := range l.nets {
		if n.Contains(ip) {
			return true
		}
	}
	for _, g := range l.globs {
		if ok, _ := path.Match(g, text); ok {
			return true
		}
	}
	return false
}
