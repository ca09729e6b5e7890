package provbox

import (
	"sync"

	"github.com/streamingfast/logging"
	"go.uber.org/zap"
)

var setupLoggingOnce sync.Once

// SetupLogging instantiates the registered package loggers. Command handlers
// call it on entry; repeated calls are no-ops so handlers don't need to care
// whether main already did it.
func SetupLogging() {
	setupLoggingOnce.Do(func() {
		logging.InstantiateLoggers(logging.WithDefaultLevel(zap.WarnLevel))
	})
}
