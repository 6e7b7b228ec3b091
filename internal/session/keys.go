package session

import (
	"bufio"
	"errors"
	"io"
	"unicode"

	"go.uber.org/zap"

	"github.com/Faultbox/arcalib/internal/logger"
)

// ReadKeys blocks reading runes from r and stores each non-space rune as the
// pending key. It returns after storing Quit. End of input counts as Quit so
// the frame loop still shuts down when stdin is closed.
func (s *Session) ReadKeys(r io.Reader) error {
	br := bufio.NewReader(r)
	for {
		ch, _, err := br.ReadRune()
		if err != nil {
			s.Press(rune(Quit))
			if errors.Is(err, io.EOF) {
				logger.Debug("key input closed")
				return nil
			}
			return err
		}
		if unicode.IsSpace(ch) {
			continue
		}
		s.Press(ch)
		logger.Debug("key", zap.String("command", Command(ch).String()))
		if Command(ch) == Quit {
			return nil
		}
	}
}
