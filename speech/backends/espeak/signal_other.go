//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package espeak

import "github.com/lectorapp/lector/speech"

func suspend(pid int) error {
	return speech.ErrPauseUnsupported
}

func resume(pid int) error {
	return speech.ErrPauseUnsupported
}
