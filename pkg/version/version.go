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

package version

// Build-time variables, overridden via -ldflags "-X".
var (
	release = "dev"
	build   = "none"
	date    = "unknown"
)

// Version describes the running binary, surfaced by the CLI's --version
// flag.
type Version interface {
	GetRelease() string
	GetBuild() string
	GetDate() string
	String() string
}

type v struct{}

// New returns the process-wide Version value.
func New() Version { return v{} }

func (v) GetRelease() string { return release }
func (v) GetBuild() string   { return build }
func (v) GetDate() string    { return date }
func (vv v) String() string  { return vv.GetRelease() + " (" + vv.GetBuild() + ", " + vv.GetDate() + ")" }
