package probe

import (
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"time"
)

// session drives one SMTP conversation. Uses textproto directly instead of
// net/smtp: probes need the raw reply code and text of every RCPT, which
// the smtp client hides.
type session struct {
	tp     *textproto.Conn
	banner string
}

// newSession wraps an open connection and consumes the 220 greeting.
// The deadline bounds the whole conversation.
func newSession(conn net.Conn, deadline time.Time) (*session, error) {
	conn.SetDeadline(deadline)

	tp := textproto.NewConn(conn)
	_, banner, err := tp.ReadResponse(220)
	if err != nil {
		tp.Close()
		return nil, fmt.Errorf("banner: %w", err)
	}
	return &session{tp: tp, banner: banner}, nil
}

// hello identifies us. EHLO first; old MTAs that reject it get a HELO.
func (s *session) hello(heloDomain string) error {
	if _, err := s.tp.Cmd("EHLO %s", heloDomain); err != nil {
		return err
	}
	if _, _, err := s.tp.ReadResponse(250); err != nil {
		var tpErr *textproto.Error
		if !errors.As(err, &tpErr) {
			return err
		}
		if _, err := s.tp.Cmd("HELO %s", heloDomain); err != nil {
			return err
		}
		if _, _, err := s.tp.ReadResponse(250); err != nil {
			return fmt.Errorf("HELO rejected: %w", err)
		}
	}
	return nil
}

func (s *session) mailFrom(sender string) error {
	if _, err := s.tp.Cmd("MAIL FROM:<%s>", sender); err != nil {
		return err
	}
	if _, _, err := s.tp.ReadResponse(250); err != nil {
		return fmt.Errorf("MAIL FROM rejected: %w", err)
	}
	return nil
}

// rcpt issues RCPT TO and returns whatever the server replied. Any reply
// code is a signal here, so ReadResponse(0) accepts them all; err is only
// set on transport or parse failures.
func (s *session) rcpt(addr string) (code int, msg string, elapsed time.Duration, err error) {
	start := time.Now()
	if _, err = s.tp.Cmd("RCPT TO:<%s>", addr); err != nil {
		return 0, "", time.Since(start), err
	}
	code, msg, err = s.tp.ReadResponse(0)
	elapsed = time.Since(start)
	if err != nil {
		return 0, "", elapsed, err
	}
	return code, msg, elapsed, nil
}

func (s *session) reset() error {
	if _, err := s.tp.Cmd("RSET"); err != nil {
		return err
	}
	if _, _, err := s.tp.ReadResponse(250); err != nil {
		return fmt.Errorf("RSET rejected: %w", err)
	}
	return nil
}

// quit says goodbye without caring whether the server answers.
func (s *session) quit() {
	s.tp.Cmd("QUIT")
	s.tp.Close()
}
