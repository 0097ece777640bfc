package notify

import (
	"go.uber.org/zap/zapcore"
)

// NewCore wraps an existing zapcore.Core so that any record above INFO
// is additionally fanned out through sender. This mirrors the Python
// original's logging.Handler that wrapped Apprise at INFO level; here
// we key off "above INFO" per the strictly-WARN-and-up fan-out policy.
func NewCore(base zapcore.Core, sender Sender) zapcore.Core {
	return &notifyingCore{Core: base, sender: sender}
}

type notifyingCore struct {
	zapcore.Core
	sender Sender
}

func (c *notifyingCore) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return ce.AddCore(entry, c)
	}
	return ce
}

func (c *notifyingCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if err := c.Core.Write(entry, fields); err != nil {
		return err
	}
	if entry.Level > zapcore.InfoLevel {
		c.sender.Send(entry.Message)
	}
	return nil
}

func (c *notifyingCore) With(fields []zapcore.Field) zapcore.Core {
	return &notifyingCore{Core: c.Core.With(fields), sender: c.sender}
}
