// Package console allows working with Linux consoles in graphics mode, so
// that the kernel text console does not draw over a filtered frame buffer.
package console

import (
	"fmt"
	"os"
	"os/signal"
	"sync"
	"unsafe"

	"github.com/gokrazy/fbfilter/internal/linuxvt"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

const tty = "/dev/tty0"

func nextFreeConsole() (int, error) {
	f, err := os.OpenFile(tty, os.O_WRONLY, 0)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	free, err := unix.IoctlGetInt(int(f.Fd()), linuxvt.VT_OPENQRY)
	if err != nil {
		return 0, fmt.Errorf("VT_OPENQRY: %v", err)
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	return free, nil
}

func disallocateConsole(num int) error {
	f, err := os.OpenFile(tty, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := unix.IoctlSetInt(int(f.Fd()), linuxvt.VT_DISALLOCATE, num); err != nil {
		return fmt.Errorf("VT_DISALLOCATE(%d): %v", num, err)
	}
	return f.Close()
}

func setMode(fd uintptr, mode linuxvt.VTMode) error {
	if _, _, eno := unix.Syscall(unix.SYS_IOCTL, fd, linuxvt.VT_SETMODE, uintptr(unsafe.Pointer(&mode))); eno != 0 {
		return fmt.Errorf("VT_SETMODE: %v", eno)
	}
	return nil
}

func getMode(fd uintptr) (linuxvt.VTMode, error) {
	var mode linuxvt.VTMode
	if _, _, eno := unix.Syscall(unix.SYS_IOCTL, fd, linuxvt.VT_GETMODE, uintptr(unsafe.Pointer(&mode))); eno != 0 {
		return mode, fmt.Errorf("VT_GETMODE: %v", eno)
	}
	return mode, nil
}

// handleSwitches asks the kernel to signal VT switches to us (SIGUSR1 when
// the user switches away, SIGUSR2 when they come back) and acknowledges
// them.
func (h *Handle) handleSwitches() error {
	fd := h.f.Fd()
	mode, err := getMode(fd)
	if err != nil {
		return err
	}

	h.release = make(chan os.Signal, 1)
	signal.Notify(h.release, unix.SIGUSR1)
	go func() {
		for range h.release {
			h.log.Info("user switched to different VT, no longer visible")
			h.setVisible(false)
			if err := unix.IoctlSetInt(int(fd), linuxvt.VT_RELDISP, 1); err != nil {
				h.log.Warn("VT_RELDISP failed", zap.Error(err))
			}
		}
	}()

	h.acquire = make(chan os.Signal, 1)
	signal.Notify(h.acquire, unix.SIGUSR2)
	go func() {
		for range h.acquire {
			h.log.Info("user switched back, now visible")
			h.setVisible(true)
			if err := unix.IoctlSetInt(int(fd), linuxvt.VT_RELDISP, linuxvt.VT_ACKACQ); err != nil {
				h.log.Warn("VT_RELDISP failed", zap.Error(err))
			}
			h.requestRedraw()
		}
	}()

	mode.Mode = linuxvt.VT_PROCESS
	mode.Relsig = int16(unix.SIGUSR1)
	mode.Acqsig = int16(unix.SIGUSR2)

	h.setVisible(true)
	return setMode(fd, mode)
}

func (h *Handle) unhandleSwitches() error {
	fd := h.f.Fd()
	mode, err := getMode(fd)
	if err != nil {
		return err
	}
	mode.Mode = linuxvt.VT_AUTO
	mode.Relsig = 0
	mode.Acqsig = 0
	if err := setMode(fd, mode); err != nil {
		return err
	}
	signal.Stop(h.release)
	signal.Stop(h.acquire)
	close(h.release)
	close(h.acquire)
	return nil
}

// A Handle represents an active Linux console.
type Handle struct {
	log     *zap.Logger
	f       *os.File
	vt      int
	prevVT  int
	redraw  chan struct{}
	release chan os.Signal
	acquire chan os.Signal

	mu      sync.Mutex
	visible bool
	closed  bool
}

// LeaseForGraphics opens the next free Linux console in graphics mode. You must
// call Cleanup() when done to switch back to the previous Linux console.
func LeaseForGraphics(log *zap.Logger) (*Handle, error) {
	// Modeled after https://github.com/g0hl1n/psplash/blob/master/psplash-linuxvt.c
	free, err := nextFreeConsole()
	if err != nil {
		return nil, err
	}
	log = log.With(zap.Int("vt", free))
	log.Info("opening next free console")

	f, err := os.OpenFile(fmt.Sprintf("/dev/tty%d", free), os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	var state linuxvt.VTState
	_, _, eno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), linuxvt.VT_GETSTATE, uintptr(unsafe.Pointer(&state)))
	if eno != 0 {
		f.Close()
		return nil, fmt.Errorf("VT_GETSTATE: %v", eno)
	}

	for _, req := range []uint{linuxvt.VT_ACTIVATE, linuxvt.VT_WAITACTIVE} {
		if err := unix.IoctlSetInt(int(f.Fd()), req, free); err != nil {
			f.Close()
			return nil, fmt.Errorf("activating VT %d: %v", free, err)
		}
	}

	h := &Handle{
		log:    log,
		f:      f,
		vt:     free,
		prevVT: int(state.Active),
		redraw: make(chan struct{}, 1),
	}

	if err := h.handleSwitches(); err != nil {
		f.Close()
		return nil, err
	}

	if err := unix.IoctlSetInt(int(f.Fd()), linuxvt.KDSETMODE, linuxvt.KD_GRAPHICS); err != nil {
		f.Close()
		return nil, fmt.Errorf("KDSETMODE: %v", err)
	}

	return h, nil
}

func (h *Handle) setVisible(v bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.visible = v
}

// Visible returns whether this Linux console is currently visible.
func (h *Handle) Visible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

func (h *Handle) requestRedraw() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	select {
	case h.redraw <- struct{}{}:
	default:
	}
}

// Redraw returns a channel that signals a redraw to the frame buffer is
// necessary because the user switched away and then returned to this Linux
// console.
func (h *Handle) Redraw() <-chan struct{} {
	return h.redraw
}

// Cleanup switches the current console from graphics mode back to text mode,
// then switches to the previous console, and finally disallocates the console.
func (h *Handle) Cleanup() error {
	fd := int(h.f.Fd())
	if err := unix.IoctlSetInt(fd, linuxvt.KDSETMODE, linuxvt.KD_TEXT); err != nil {
		return fmt.Errorf("KDSETMODE: %v", err)
	}

	if err := h.unhandleSwitches(); err != nil {
		return err
	}

	if err := unix.IoctlSetInt(fd, linuxvt.VT_ACTIVATE, h.prevVT); err != nil {
		return fmt.Errorf("VT_ACTIVATE: %v", err)
	}
	if err := unix.IoctlSetInt(fd, linuxvt.VT_WAITACTIVE, h.prevVT); err != nil {
		return fmt.Errorf("VT_WAITACTIVE: %v", err)
	}

	if err := h.f.Close(); err != nil {
		return err
	}

	h.mu.Lock()
	h.closed = true
	close(h.redraw)
	h.mu.Unlock()

	return disallocateConsole(h.vt)
}
