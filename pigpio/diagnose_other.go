//go:build !linux

package pigpio

func diagnose() error { return nil }
