// Copyright 2020 Erin Shepherd
// SPDX-License-Identifier: ISC

package profiles

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the profiles package's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the profiles package's logger.
// This must be called before any registry is loaded.
func SetLogger(l *zap.Logger) {
	logger = l
}
