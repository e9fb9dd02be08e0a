// Package teelogger provides loggers which send their output to multiple
// writers, like the tee(1) command.
package teelogger

import (
	"io"
	"log"
	"log/syslog"
	"os"
)

// NewRemoteSyslog returns a logger which writes logs to raddr (UDP remote
// syslog, tagged with tag) and os.Stderr. raddr should be an IP address, as
// DNS may not yet be available in early boot, resulting in failed dials.
func NewRemoteSyslog(raddr, tag string) *log.Logger {
	return newTee(os.Stderr, func() (io.Writer, error) {
		return syslog.Dial("udp", raddr, syslog.LOG_INFO, tag)
	})
}

func newTee(stderr io.Writer, dial func() (io.Writer, error)) *log.Logger {
	w, err := dial()
	if err != nil {
		log.Printf("dialing remote syslog: %v", err)
		w = io.Discard
	}

	return log.New(io.MultiWriter(stderr, w), "", log.LstdFlags|log.Lshortfile)
}
