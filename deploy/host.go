// SPDX-FileCopyrightText: 2023 GISOps Solutions
// SPDX-License-Identifier: Apache-2.0

package deploy

import "go.uber.org/zap"

// Level classifies host log messages.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

// Host is the execution host the engine reports to: a message sink and a
// progress indicator. The engine calls it after every object processed and on
// every caught failure; it never throws past its own per-entry handler.
type Host interface {
	Log(level Level, message string)
	SetProgress(current, total int)
}

// ZapHost reports to a zap logger. Progress updates land at debug level so a
// quiet console only sees the per-object messages.
type ZapHost struct {
	Logger *zap.Logger
}

func (h ZapHost) Log(level Level, message string) {
	switch level {
	case LevelError:
		h.Logger.Error(message)
	case LevelWarning:
		h.Logger.Warn(message)
	default:
		h.Logger.Info(message)
	}
}

func (h ZapHost) SetProgress(current, total int) {
	h.Logger.Debug("progress", zap.Int("current", current), zap.Int("total", total))
}

// NopHost discards all reports.
type NopHost struct{}

func (NopHost) Log(Level, string)    {}
func (NopHost) SetProgress(int, int) {}
