package main

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/gliderlabs/ssh"
	"github.com/stapelberg/gopigpio/internal/console"
	gossh "golang.org/x/crypto/ssh"
)

func loadAuthorizedKeys(path string) (map[string]bool, error) {
	authorizedKeysBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Failed to load authorized_keys, err: %v", err)
	}

	authorized := make(map[string]bool)
	for _, line := range strings.Split(string(authorizedKeysBytes), "\n") {
		if strings.TrimSpace(line) == "" {
			continue // skip empty lines
		}
		if strings.HasPrefix(line, "#") {
			continue // skip comments
		}
		pubKey, _, _, _, err := gossh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			return nil, fmt.Errorf("ParseAuthorizedKey(%v): %v", line, err)
		}

		authorized[string(pubKey.Marshal())] = true
	}
	return authorized, nil
}

// serveConsole executes one command per line read from rw until EOF.
func serveConsole(rw io.ReadWriter, c *console.Console) error {
	scanner := bufio.NewScanner(rw)
	for scanner.Scan() {
		out, err := c.Execute(scanner.Text())
		if err != nil {
			out = "error: " + err.Error()
		}
		if out == "" {
			continue
		}
		if _, err := fmt.Fprintln(rw, out); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (d *daemon) sshServer(addr, hostKey string, authorized map[string]bool) (*ssh.Server, error) {
	srv := &ssh.Server{
		Addr: addr,
		Handler: func(s ssh.Session) {
			prefix := fmt.Sprintf("[%v@%v]", s.User(), s.RemoteAddr())
			if cmd := s.Command(); len(cmd) > 0 {
				line := strings.Join(cmd, " ")
				log.Printf("%v %q", prefix, line)
				out, err := d.console.Execute(line)
				if err != nil {
					fmt.Fprintf(s.Stderr(), "%v\n", err)
					s.Exit(1)
					return
				}
				if out != "" {
					fmt.Fprintln(s, out)
				}
				s.Exit(0)
				return
			}
			if _, _, isPty := s.Pty(); isPty {
				fmt.Fprintln(s, "gpiod does not support PTYs, use ssh -T")
				s.Exit(1)
				return
			}
			log.Printf("%v console session", prefix)
			if err := serveConsole(s, d.console); err != nil {
				log.Printf("%v %v", prefix, err)
			}
			s.Exit(0)
		},
	}
	if hostKey != "" {
		if err := srv.SetOption(ssh.HostKeyFile(hostKey)); err != nil {
			return nil, err
		}
	}
	if err := srv.SetOption(ssh.PublicKeyAuth(func(ctx ssh.Context, key ssh.PublicKey) bool {
		return authorized[string(key.Marshal())]
	})); err != nil {
		return nil, err
	}
	return srv, nil
}
