/*
 * MIT License
 *
 * Copyright (c) 2025 tunicorn authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package config

import (
	"strconv"
	"strings"
)

// Kind tags which variant an Endpoint holds.
type Kind int

const (
	KindTCP Kind = iota
	KindTCP6
	KindUnix
)

// Endpoint is the tagged union a bind address parses into: tcp(host,port) |
// tcp6(host,port) | unix(path).
type Endpoint struct {
	Kind Kind
	Host string
	Port int
	Path string
}

const defaultPort = 8000

// ParseEndpoint parses a bind address of the form "host:port",
// "[ipv6]:port", "tcp://host:port", or "unix:/path/to/socket".
func ParseEndpoint(s string) (Endpoint, error) {
	switch {
	case strings.HasPrefix(s, "unix://"):
		return Endpoint{Kind: KindUnix, Path: strings.TrimPrefix(s, "unix://")}, nil
	case strings.HasPrefix(s, "unix:"):
		return Endpoint{Kind: KindUnix, Path: strings.TrimPrefix(s, "unix:")}, nil
	}

	if strings.HasPrefix(s, "tcp://") {
		s = strings.TrimPrefix(s, "tcp://")
	}

	var (
		host string
		port = defaultPort
		kind = KindTCP
	)

	switch {
	case s == "":
		host = "0.0.0.0"
	case strings.Contains(s, "["):
		open := strings.IndexByte(s, '[')
		close := strings.IndexByte(s, ']')
		if close < open {
			return Endpoint{}, errInvalidAddress(s)
		}
		host = s[open+1 : close]
		kind = KindTCP6
		s = s[close+1:]
		if strings.HasPrefix(s, ":") {
			p, err := strconv.Atoi(s[1:])
			if err != nil {
				return Endpoint{}, errInvalidAddress(s)
			}
			port = p
		}
		return Endpoint{Kind: kind, Host: host, Port: port}, nil
	case strings.Contains(s, ":"):
		idx := strings.Index(s, ":")
		host = s[:idx]
		rest := s[idx+1:]
		if rest != "" {
			p, err := strconv.Atoi(rest)
			if err != nil {
				return Endpoint{}, errInvalidAddress(s)
			}
			port = p
		}
	default:
		host = s
	}

	return Endpoint{Kind: kind, Host: host, Port: port}, nil
}

type addrError string

func (e addrError) Error() string { return "invalid bind address: " + string(e) }

func errInvalidAddress(s string) error { return addrError(s) }

// String renders the canonical form of an Endpoint, the inverse of
// ParseEndpoint for TCP/TCP6/Unix.
func (e Endpoint) String() string {
	switch e.Kind {
	case KindUnix:
		return "unix:" + e.Path
	case KindTCP6:
		return "[" + e.Host + "]:" + strconv.Itoa(e.Port)
	default:
		return e.Host + ":" + strconv.Itoa(e.Port)
	}
}

// Network returns the net.Listen network name for this endpoint's kind.
func (e Endpoint) Network() string {
	switch e.Kind {
	case KindUnix:
		return "unix"
	case KindTCP6:
		return "tcp6"
	default:
		return "tcp4"
	}
}

// Address returns the net.Listen address argument for this endpoint.
func (e Endpoint) Address() string {
	if e.Kind == KindUnix {
		return e.Path
	}
	return e.Host + ":" + strconv.Itoa(e.Port)
}
