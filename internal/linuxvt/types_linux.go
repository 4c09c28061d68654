// Copyright 2018 Axel Wagner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package linuxvt mirrors the virtual terminal definitions of <linux/vt.h>
// and <linux/kd.h>.
package linuxvt

type VTState struct {
	Active uint16
	Signal uint16
	State  uint16
}

type VTMode struct {
	Mode   int8
	Waitv  int8
	Relsig int16
	Acqsig int16
	Frsig  int16
}

const (
	VT_OPENQRY     = 0x5600
	VT_GETMODE     = 0x5601
	VT_SETMODE     = 0x5602
	VT_GETSTATE    = 0x5603
	VT_RELDISP     = 0x5605
	VT_ACTIVATE    = 0x5606
	VT_WAITACTIVE  = 0x5607
	VT_DISALLOCATE = 0x5608
)

const (
	VT_AUTO    = 0x00
	VT_PROCESS = 0x01
	VT_ACKACQ  = 0x02
)

const (
	KDSETMODE   = 0x4B3A
	KDGETMODE   = 0x4B3B
	KD_TEXT     = 0x00
	KD_GRAPHICS = 0x01
)
